package services

import (
	"context"
	"fmt"

	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockLLM implements driven.LLMService for testing. Behaviour is configured
// per call site through function fields.
type mockLLM struct {
	generateFn   func(prompt string, opts driven.GenerateOptions) (string, error)
	pdfFn        func(pdf []byte, prompt string, opts driven.GenerateOptions) (string, error)
	chatStreamFn func(messages []driven.ChatMessage, onDelta func(string) error) (string, error)
	pingErr      error

	generateCalls   int
	pdfCalls        int
	chatStreamCalls int
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.generateCalls++
	if m.generateFn == nil {
		return "", fmt.Errorf("unexpected Generate call")
	}
	return m.generateFn(prompt, opts)
}

func (m *mockLLM) GenerateWithPDF(_ context.Context, pdf []byte, prompt string, opts driven.GenerateOptions) (string, error) {
	m.pdfCalls++
	if m.pdfFn == nil {
		return "", fmt.Errorf("unexpected GenerateWithPDF call")
	}
	return m.pdfFn(pdf, prompt, opts)
}

func (m *mockLLM) ChatStream(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions, onDelta func(string) error) (string, error) {
	m.chatStreamCalls++
	if m.chatStreamFn == nil {
		return "", fmt.Errorf("unexpected ChatStream call")
	}
	return m.chatStreamFn(messages, onDelta)
}

func (m *mockLLM) ModelName() string { return "mock-model" }

func (m *mockLLM) Ping(_ context.Context) error { return m.pingErr }

func (m *mockLLM) Close() error { return nil }

// mockEmbedder implements driven.EmbeddingService for testing. When batchFn
// is set it takes precedence over the static vector/embedErr behaviour.
type mockEmbedder struct {
	vector   []float32
	embedErr error
	dims     int
	pingErr  error
	batchFn  func(texts []string) ([][]float32, error)

	batchCalls int
	lastInput  driven.InputType
}

func (m *mockEmbedder) Embed(ctx context.Context, text string, input driven.InputType) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text}, input)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string, input driven.InputType) ([][]float32, error) {
	m.batchCalls++
	m.lastInput = input
	if m.batchFn != nil {
		return m.batchFn(texts)
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.vector
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return len(m.vector)
}

func (m *mockEmbedder) ModelName() string { return "mock-embedder" }

func (m *mockEmbedder) Ping(_ context.Context) error { return m.pingErr }

func (m *mockEmbedder) Close() error { return nil }

// mockVectorStore implements driven.VectorStore for testing.
type mockVectorStore struct {
	hits      []domain.VectorHit
	known     domain.KnownEntities
	searchErr error
	upsertErr error
	ensureErr error
	knownErr  error
	pingErr   error

	upserted    [][]domain.EmbeddingRecord
	lastManual  domain.ManualInfo
	lastFilter  domain.QueryEntities
	ensured     int
	ensuredDims int
}

func (m *mockVectorStore) EnsureCollection(_ context.Context, dimension int) error {
	m.ensured++
	m.ensuredDims = dimension
	return m.ensureErr
}

func (m *mockVectorStore) Upsert(_ context.Context, manual domain.ManualInfo, records []domain.EmbeddingRecord) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, records)
	m.lastManual = manual
	return nil
}

func (m *mockVectorStore) Search(_ context.Context, _ []float32, k int, filter domain.QueryEntities) ([]domain.VectorHit, error) {
	m.lastFilter = filter
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

func (m *mockVectorStore) KnownEntities(_ context.Context) (domain.KnownEntities, error) {
	if m.knownErr != nil {
		return domain.KnownEntities{}, m.knownErr
	}
	return m.known, nil
}

func (m *mockVectorStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockVectorStore) Close() error { return nil }

// mockManifest implements driven.ManifestStore in memory.
type mockManifest struct {
	stages  map[string]driven.StageRecord
	manuals map[string]domain.ManualInfo

	markErr error
}

func newMockManifest() *mockManifest {
	return &mockManifest{
		stages:  make(map[string]driven.StageRecord),
		manuals: make(map[string]domain.ManualInfo),
	}
}

func stageKey(document, stage string) string {
	return document + "/" + stage
}

func (m *mockManifest) MarkStage(_ context.Context, rec driven.StageRecord) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.stages[stageKey(rec.Document, rec.Stage)] = rec
	return nil
}

func (m *mockManifest) StageDone(_ context.Context, document, stage string) (bool, error) {
	_, ok := m.stages[stageKey(document, stage)]
	return ok, nil
}

func (m *mockManifest) SaveManual(_ context.Context, document string, manual domain.ManualInfo) error {
	m.manuals[document] = manual
	return nil
}

func (m *mockManifest) Manual(_ context.Context, document string) (domain.ManualInfo, error) {
	manual, ok := m.manuals[document]
	if !ok {
		return domain.ManualInfo{}, domain.ErrNotFound
	}
	return manual, nil
}

func (m *mockManifest) Documents(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for id := range m.manuals {
		seen[id] = true
	}
	for _, rec := range m.stages {
		seen[rec.Document] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockManifest) Close() error { return nil }

// mockPrompts implements driven.PromptStore with compact templates that keep
// the real placeholder shapes.
type mockPrompts struct {
	overrides map[string]string
}

var testPrompts = map[string]string{
	driven.PromptPDFConvert:     "convert the attached pdf",
	driven.PromptSituateChunk:   "doc:%s chunk:%s",
	driven.PromptClassifyManual: "manual:%s",
	driven.PromptClassifyQuery:  "brands:%s models:%s query:%s",
	driven.PromptChatSystem:     "studio assistant system prompt",
	driven.PromptChatIntro:      "intro contract",
	driven.PromptChatTurn:       "docs:%s query:%s",
}

func (m *mockPrompts) Load(name string) (string, error) {
	if m.overrides != nil {
		if prompt, ok := m.overrides[name]; ok {
			return prompt, nil
		}
	}
	prompt, ok := testPrompts[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return prompt, nil
}

func (m *mockPrompts) Reload() {}
