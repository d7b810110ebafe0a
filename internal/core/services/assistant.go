package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driven"
	"github.com/soundbench/soundbench/internal/core/ports/driving"
	"github.com/soundbench/soundbench/internal/logger"
)

// Ensure AssistantService implements the interface.
var _ driving.AssistantService = (*AssistantService)(nil)

// Assistant defaults.
const (
	// DefaultTopK is the number of chunks retrieved per grounded turn.
	DefaultTopK = 5

	// DefaultChatMaxTokens bounds the assistant's reply length.
	DefaultChatMaxTokens = 8192

	classifyMaxTokens = 1024
)

// AssistantService answers studio equipment questions, grounding replies in
// retrieved manual chunks once the conversation mentions known gear.
type AssistantService struct {
	llm      driven.LLMService
	embedder driven.EmbeddingService
	vector   driven.VectorStore
	prompts  driven.PromptStore

	topK          int
	maxTokens     int
	classifyModel string

	// Known brands/models change only when the index is rebuilt, so one
	// fetch per process is enough.
	knownOnce sync.Once
	known     domain.KnownEntities
	knownErr  error
}

// NewAssistantService creates a new assistant service.
func NewAssistantService(
	llm driven.LLMService,
	embedder driven.EmbeddingService,
	vector driven.VectorStore,
	prompts driven.PromptStore,
) *AssistantService {
	return &AssistantService{
		llm:           llm,
		embedder:      embedder,
		vector:        vector,
		prompts:       prompts,
		topK:          DefaultTopK,
		maxTokens:     DefaultChatMaxTokens,
		classifyModel: DefaultFastModel,
	}
}

// SetTopK overrides the retrieval depth.
func (s *AssistantService) SetTopK(k int) {
	if k > 0 {
		s.topK = k
	}
}

// SetMaxTokens overrides the reply length bound.
func (s *AssistantService) SetMaxTokens(n int) {
	if n > 0 {
		s.maxTokens = n
	}
}

// SetClassifyModel overrides the model used for query classification.
func (s *AssistantService) SetClassifyModel(model string) {
	if model != "" {
		s.classifyModel = model
	}
}

// Ping verifies the LLM and embedding providers are reachable. The vector
// store is deliberately not checked: its unavailability degrades to
// ungrounded answering instead of blocking the session.
func (s *AssistantService) Ping(ctx context.Context) error {
	if err := s.llm.Ping(ctx); err != nil {
		return fmt.Errorf("llm service: %w", err)
	}
	if err := s.embedder.Ping(ctx); err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}
	return nil
}

// NewSession creates a session seeded with the assistant's behaviour
// contract as its opening exchange.
func (s *AssistantService) NewSession() *domain.Session {
	intro, err := s.prompts.Load(driven.PromptChatIntro)
	if err != nil {
		logger.Warn("Load chat intro prompt failed: %v", err)
		return &domain.Session{}
	}

	return &domain.Session{
		History: []domain.Turn{
			{Role: "user", Content: intro},
			{Role: "assistant", Content: "Understood"},
		},
	}
}

// Classify determines which known brands and models a message references.
// With an empty index there is nothing to match, so the result is empty
// without an LLM call.
func (s *AssistantService) Classify(ctx context.Context, message string) (domain.QueryEntities, error) {
	known, err := s.knownEntities(ctx)
	if err != nil {
		return domain.QueryEntities{}, err
	}
	if len(known.Brands) == 0 && len(known.Models) == 0 {
		return domain.QueryEntities{}, nil
	}

	prompt, err := s.prompts.Load(driven.PromptClassifyQuery)
	if err != nil {
		return domain.QueryEntities{}, fmt.Errorf("load classify prompt: %w", err)
	}

	response, err := s.llm.Generate(ctx, fmt.Sprintf(prompt,
		strings.Join(known.Brands, "\n"),
		strings.Join(known.Models, "\n"),
		message,
	), driven.GenerateOptions{
		MaxTokens: classifyMaxTokens,
		Model:     s.classifyModel,
	})
	if err != nil {
		return domain.QueryEntities{}, fmt.Errorf("classify query: %w", err)
	}

	// Stored payloads are lowercased at chunk time; match their casing so
	// the search filter actually hits.
	return domain.QueryEntities{
		Brands: lowerAll(extractTagList(response, "brands")),
		Models: lowerAll(extractTagList(response, "models")),
	}, nil
}

// Respond runs one conversation turn. Retrieval happens only when the
// session has accumulated entity mentions; classification and retrieval
// failures degrade to an ungrounded answer instead of failing the turn.
func (s *AssistantService) Respond(ctx context.Context, session *domain.Session, message string, onDelta func(string) error) (string, error) {
	entities, err := s.Classify(ctx, message)
	if err != nil {
		logger.Warn("Query classification failed, continuing without entities: %v", err)
	}
	session.AddEntities(entities)

	var documents []string
	if !session.Entities.Empty() {
		documents, err = s.retrieve(ctx, message, session.Entities)
		if err != nil {
			logger.Warn("Retrieval failed, answering without documents: %v", err)
			documents = nil
		}
	}

	turnTemplate, err := s.prompts.Load(driven.PromptChatTurn)
	if err != nil {
		return "", fmt.Errorf("load turn prompt: %w", err)
	}
	system, err := s.prompts.Load(driven.PromptChatSystem)
	if err != nil {
		return "", fmt.Errorf("load system prompt: %w", err)
	}

	turnContent := fmt.Sprintf(turnTemplate, strings.Join(documents, "\n"), message)

	messages := make([]driven.ChatMessage, 0, len(session.History)+2)
	messages = append(messages, driven.ChatMessage{Role: "system", Content: system})
	for _, turn := range session.History {
		messages = append(messages, driven.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, driven.ChatMessage{Role: "user", Content: turnContent})

	reply, err := s.llm.ChatStream(ctx, messages, driven.ChatOptions{
		MaxTokens: s.maxTokens,
	}, onDelta)
	if err != nil {
		return "", err
	}

	session.History = append(session.History,
		domain.Turn{Role: "user", Content: turnContent},
		domain.Turn{Role: "assistant", Content: reply},
	)
	return reply, nil
}

// retrieve embeds the query and searches the vector store, returning chunk
// texts with their context prefixes.
func (s *AssistantService) retrieve(ctx context.Context, query string, filter domain.QueryEntities) ([]string, error) {
	vector, err := s.embedder.Embed(ctx, query, driven.InputQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vector.Search(ctx, vector, s.topK, filter)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	documents := make([]string, 0, len(hits))
	for _, hit := range hits {
		documents = append(documents, hit.Text)
	}
	logger.Debug("Retrieved %d documents for query", len(documents))
	return documents, nil
}

// knownEntities fetches the store's brand/model inventory once.
func (s *AssistantService) knownEntities(ctx context.Context) (domain.KnownEntities, error) {
	s.knownOnce.Do(func() {
		s.known, s.knownErr = s.vector.KnownEntities(ctx)
		if s.knownErr == nil {
			logger.Debug("Loaded %d known brands and %d known models",
				len(s.known.Brands), len(s.known.Models))
		}
	})
	return s.known, s.knownErr
}
