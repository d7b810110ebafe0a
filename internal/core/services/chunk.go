package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driven"
	"github.com/soundbench/soundbench/internal/core/ports/driving"
	"github.com/soundbench/soundbench/internal/logger"
	"github.com/soundbench/soundbench/internal/markdown"
	"github.com/soundbench/soundbench/internal/ratelimit"
)

// Ensure ChunkService implements the interface.
var _ driving.ChunkService = (*ChunkService)(nil)

// Chunking defaults.
const (
	// DefaultFastModel handles chunk contextualisation and classification.
	// These calls run once per chunk, so latency and cost matter more than
	// reasoning depth.
	DefaultFastModel = "claude-3-5-haiku-latest"

	// DefaultMaxSectionChars bounds a single chunk's body. Sections above it
	// are split on paragraph boundaries.
	DefaultMaxSectionChars = 2000

	situateMaxTokens = 1024
)

// ChunkService splits converted Markdown into contextualised chunks and
// classifies each manual's product metadata.
type ChunkService struct {
	llm      driven.LLMService
	manifest driven.ManifestStore
	prompts  driven.PromptStore
	limiter  *ratelimit.Limiter

	fastModel       string
	maxSectionChars int
}

// NewChunkService creates a new chunking service.
func NewChunkService(
	llm driven.LLMService,
	manifest driven.ManifestStore,
	prompts driven.PromptStore,
	limiter *ratelimit.Limiter,
) *ChunkService {
	return &ChunkService{
		llm:             llm,
		manifest:        manifest,
		prompts:         prompts,
		limiter:         limiter,
		fastModel:       DefaultFastModel,
		maxSectionChars: DefaultMaxSectionChars,
	}
}

// SetFastModel overrides the model used for contextualisation and
// classification calls.
func (s *ChunkService) SetFastModel(model string) {
	if model != "" {
		s.fastModel = model
	}
}

// SetMaxSectionChars overrides the chunk size bound.
func (s *ChunkService) SetMaxSectionChars(n int) {
	if n > 0 {
		s.maxSectionChars = n
	}
}

// ChunkDir chunks every Markdown file under inputDir, writing one JSON chunk
// set per document to outputDir.
func (s *ChunkService) ChunkDir(ctx context.Context, inputDir, outputDir string, force bool) (driving.StageResult, error) {
	var result driving.StageResult

	if err := s.llm.Ping(ctx); err != nil {
		return result, fmt.Errorf("llm service unreachable: %w", err)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return result, fmt.Errorf("read input directory: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return result, fmt.Errorf("create output directory: %w", err)
	}

	logger.Section("Chunk")
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		document := entry.Name()
		outPath := filepath.Join(outputDir, chunkSetFilename(document))

		if !force && s.chunked(ctx, document, outPath) {
			logger.Debug("Already chunked, skipping: %s", document)
			result.Skipped++
			continue
		}

		if err := s.chunkFile(ctx, filepath.Join(inputDir, entry.Name()), document, outPath); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// Nothing was written or marked, so a resumed run redoes
				// this document from scratch.
				return result, err
			}
			if errors.Is(err, domain.ErrEmptyDocument) {
				logger.Warn("Skipping %s: %v", document, err)
				result.Skipped++
				continue
			}
			logger.Warn("Failed to chunk %s: %v", document, err)
			result.Failed++
			continue
		}
		result.Processed++
	}

	logger.Info("Chunked %d documents (%d skipped, %d failed)",
		result.Processed, result.Skipped, result.Failed)
	return result, nil
}

// chunked reports whether a document's chunking can be resumed past.
func (s *ChunkService) chunked(ctx context.Context, document, outPath string) bool {
	done, err := s.manifest.StageDone(ctx, document, driven.StageChunk)
	if err != nil || !done {
		return false
	}
	_, err = os.Stat(outPath)
	return err == nil
}

// chunkFile splits one Markdown document into contextualised chunks, then
// classifies the whole manual.
func (s *ChunkService) chunkFile(ctx context.Context, mdPath, document, outPath string) error {
	data, err := os.ReadFile(mdPath)
	if err != nil {
		return fmt.Errorf("read markdown: %w", err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: %s", domain.ErrEmptyDocument, document)
	}

	title := markdown.ExtractTitle(content, document)
	sections := markdown.Split(content, s.maxSectionChars)
	if len(sections) == 0 {
		return fmt.Errorf("%w: no sections found", domain.ErrEmptyDocument)
	}
	logger.Debug("Chunking %s into %d sections", document, len(sections))

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, 0, len(sections))
	for i, section := range sections {
		chunkContext, err := s.situate(ctx, content, section.Content)
		if err != nil {
			// Cancellation is not a provider failure: degrading here would
			// persist a half-contextualised set and mark it done.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A chunk without context is still retrievable by its own text.
			logger.Warn("Context generation failed for %s chunk %d: %v", document, i, err)
			chunkContext = ""
		}

		chunks = append(chunks, domain.Chunk{
			ID:          domain.ChunkID(document, section.HeadingPath, i),
			Document:    document,
			HeadingPath: section.HeadingPath,
			Position:    i,
			Text:        section.Content,
			Context:     chunkContext,
			CreatedAt:   now,
		})
	}

	manual := s.classify(ctx, document, content)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.manifest.SaveManual(ctx, document, manual); err != nil {
		return fmt.Errorf("save manual metadata: %w", err)
	}

	set := domain.ChunkSet{
		Document: document,
		Title:    title,
		Manual:   manual,
		Chunks:   chunks,
	}
	if err := writeJSON(outPath, set); err != nil {
		return err
	}

	return s.manifest.MarkStage(ctx, driven.StageRecord{
		Document: document,
		Stage:    driven.StageChunk,
		Items:    len(chunks),
	})
}

// situate asks the LLM for a short context placing the chunk within the
// whole document.
func (s *ChunkService) situate(ctx context.Context, document, chunk string) (string, error) {
	prompt, err := s.prompts.Load(driven.PromptSituateChunk)
	if err != nil {
		return "", fmt.Errorf("load situate prompt: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	response, err := s.llm.Generate(ctx, fmt.Sprintf(prompt, document, chunk), driven.GenerateOptions{
		MaxTokens: situateMaxTokens,
		Model:     s.fastModel,
	})
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			s.limiter.RecordRateLimitError(0)
		}
		return "", err
	}
	return strings.TrimSpace(response), nil
}

// classify extracts the manual's brand, model, product type and keywords.
// Classification failures degrade to empty metadata rather than failing the
// document.
func (s *ChunkService) classify(ctx context.Context, document, content string) domain.ManualInfo {
	prompt, err := s.prompts.Load(driven.PromptClassifyManual)
	if err != nil {
		logger.Warn("Load classification prompt failed: %v", err)
		return domain.ManualInfo{}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return domain.ManualInfo{}
	}

	response, err := s.llm.Generate(ctx, fmt.Sprintf(prompt, content), driven.GenerateOptions{
		MaxTokens: situateMaxTokens,
		Model:     s.fastModel,
	})
	if err != nil {
		logger.Warn("Classification failed for %s: %v", document, err)
		return domain.ManualInfo{}
	}

	manual, err := parseManualInfo(response)
	if err != nil {
		logger.Warn("Unparseable classification for %s: %v", document, err)
		return domain.ManualInfo{}
	}
	return manual
}

// chunkSetFilename maps a document ID to its chunk set file.
func chunkSetFilename(document string) string {
	return strings.TrimSuffix(document, filepath.Ext(document)) + ".json"
}

// writeJSON marshals v with indentation and writes it to path.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
