package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driven"
)

func testAssistant(llm *mockLLM, embedder *mockEmbedder, store *mockVectorStore) *AssistantService {
	return NewAssistantService(llm, embedder, store, &mockPrompts{})
}

// classifierOf returns a generateFn answering classify prompts with the given
// tagged response.
func classifierOf(response string) func(string, driven.GenerateOptions) (string, error) {
	return func(prompt string, _ driven.GenerateOptions) (string, error) {
		if strings.HasPrefix(prompt, "brands:") {
			return response, nil
		}
		return "", fmt.Errorf("unexpected prompt %q", prompt)
	}
}

const noMatches = "<brands>none</brands><models>none</models>"

func TestNewSessionSeedsContract(t *testing.T) {
	svc := testAssistant(&mockLLM{}, &mockEmbedder{}, &mockVectorStore{})

	session := svc.NewSession()
	require.Len(t, session.History, 2)
	assert.Equal(t, "user", session.History[0].Role)
	assert.Equal(t, "intro contract", session.History[0].Content)
	assert.Equal(t, "assistant", session.History[1].Role)
	assert.Equal(t, "Understood", session.History[1].Content)
	assert.True(t, session.Entities.Empty())
}

func TestClassifyEmptyIndexSkipsLLM(t *testing.T) {
	llm := &mockLLM{}
	svc := testAssistant(llm, &mockEmbedder{}, &mockVectorStore{})

	entities, err := svc.Classify(context.Background(), "how do I sync the delay")
	require.NoError(t, err)
	assert.True(t, entities.Empty())
	assert.Zero(t, llm.generateCalls, "nothing to match against")
}

func TestClassifyMatchesKnownEntities(t *testing.T) {
	llm := &mockLLM{
		generateFn: func(prompt string, opts driven.GenerateOptions) (string, error) {
			assert.Contains(t, prompt, "brands:Korg")
			assert.Contains(t, prompt, "models:Minilogue XD")
			assert.Contains(t, prompt, "query:what synth")
			assert.Equal(t, DefaultFastModel, opts.Model)
			return "<brands>\nKorg\n</brands>\n<models>\nnone\n</models>", nil
		},
	}
	store := &mockVectorStore{known: domain.KnownEntities{
		Brands: []string{"Korg"},
		Models: []string{"Minilogue XD"},
	}}
	svc := testAssistant(llm, &mockEmbedder{}, store)

	entities, err := svc.Classify(context.Background(), "what synth")
	require.NoError(t, err)
	assert.Equal(t, []string{"korg"}, entities.Brands, "extracted entities match stored payload casing")
	assert.Empty(t, entities.Models)
}

func TestRespondWithoutEntitiesSkipsRetrieval(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{1}}
	store := &mockVectorStore{known: domain.KnownEntities{Brands: []string{"Korg"}}}

	var streamed []string
	llm := &mockLLM{
		generateFn: classifierOf(noMatches),
		chatStreamFn: func(messages []driven.ChatMessage, onDelta func(string) error) (string, error) {
			assert.Equal(t, "system", messages[0].Role)
			last := messages[len(messages)-1]
			assert.Contains(t, last.Content, "query:what is sidechain compression")
			for _, d := range []string{"It ", "ducks."} {
				require.NoError(t, onDelta(d))
				streamed = append(streamed, d)
			}
			return "It ducks.", nil
		},
	}
	svc := testAssistant(llm, embedder, store)
	session := svc.NewSession()

	reply, err := svc.Respond(context.Background(), session, "what is sidechain compression", func(d string) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "It ducks.", reply)
	assert.Zero(t, embedder.batchCalls, "no retrieval without entity mentions")
	assert.Equal(t, []string{"It ", "ducks."}, streamed)

	// History gained the formatted turn and the reply.
	require.Len(t, session.History, 4)
	assert.Equal(t, "assistant", session.History[3].Role)
	assert.Equal(t, "It ducks.", session.History[3].Content)
}

func TestRespondRetrievesWhenEntitiesPresent(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{1}}
	store := &mockVectorStore{
		known: domain.KnownEntities{Brands: []string{"Korg"}},
		hits: []domain.VectorHit{
			{ChunkID: "c1", Score: 0.9, Text: "The reverb section offers hall and plate."},
		},
	}
	llm := &mockLLM{
		generateFn: classifierOf("<brands>\nKorg\n</brands>\n<models>none</models>"),
		chatStreamFn: func(messages []driven.ChatMessage, _ func(string) error) (string, error) {
			last := messages[len(messages)-1]
			assert.Contains(t, last.Content, "The reverb section offers hall and plate.")
			return "Use the plate algorithm.", nil
		},
	}
	svc := testAssistant(llm, embedder, store)
	session := svc.NewSession()

	_, err := svc.Respond(context.Background(), session, "korg reverb?", nil)
	require.NoError(t, err)

	assert.Equal(t, driven.InputQuery, embedder.lastInput)
	assert.Equal(t, []string{"korg"}, store.lastFilter.Brands)
	assert.Equal(t, []string{"korg"}, session.Entities.Brands)
}

func TestRespondEntityMemoryPersistsAcrossTurns(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{1}}
	store := &mockVectorStore{
		known: domain.KnownEntities{Brands: []string{"Korg"}},
		hits:  []domain.VectorHit{{ChunkID: "c1", Text: "chunk"}},
	}

	turn := 0
	llm := &mockLLM{
		generateFn: func(prompt string, _ driven.GenerateOptions) (string, error) {
			turn++
			if turn == 1 {
				return "<brands>\nKorg\n</brands>\n<models>none</models>", nil
			}
			return noMatches, nil
		},
		chatStreamFn: func(_ []driven.ChatMessage, _ func(string) error) (string, error) {
			return "ok", nil
		},
	}
	svc := testAssistant(llm, embedder, store)
	session := svc.NewSession()

	_, err := svc.Respond(context.Background(), session, "tell me about the korg", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.batchCalls)

	// Second turn mentions nothing, but the session remembers the brand.
	_, err = svc.Respond(context.Background(), session, "what about its delay", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.batchCalls, "retrieval keeps running once entities are known")
}

func TestRespondRetrievalFailureDegrades(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{1}}
	store := &mockVectorStore{
		known:     domain.KnownEntities{Brands: []string{"Korg"}},
		searchErr: domain.ErrVectorStoreUnavailable,
	}
	llm := &mockLLM{
		generateFn: classifierOf("<brands>\nKorg\n</brands>\n<models>none</models>"),
		chatStreamFn: func(messages []driven.ChatMessage, _ func(string) error) (string, error) {
			last := messages[len(messages)-1]
			assert.Contains(t, last.Content, "docs: query:korg?", "empty document block")
			return "From general knowledge...", nil
		},
	}
	svc := testAssistant(llm, embedder, store)
	session := svc.NewSession()

	reply, err := svc.Respond(context.Background(), session, "korg?", nil)
	require.NoError(t, err, "retrieval failure must not fail the turn")
	assert.Equal(t, "From general knowledge...", reply)
}

func TestRespondStreamErrorLeavesHistoryUntouched(t *testing.T) {
	store := &mockVectorStore{}
	llm := &mockLLM{
		chatStreamFn: func(_ []driven.ChatMessage, _ func(string) error) (string, error) {
			return "", fmt.Errorf("connection reset")
		},
	}
	svc := testAssistant(llm, &mockEmbedder{}, store)
	session := svc.NewSession()
	before := len(session.History)

	_, err := svc.Respond(context.Background(), session, "hello", nil)
	require.Error(t, err)
	assert.Len(t, session.History, before)
}

func TestPingChecksProviders(t *testing.T) {
	svc := testAssistant(&mockLLM{}, &mockEmbedder{}, &mockVectorStore{})
	require.NoError(t, svc.Ping(context.Background()))
}

func TestPingReportsLLMFailure(t *testing.T) {
	llm := &mockLLM{pingErr: fmt.Errorf("bad key")}
	svc := testAssistant(llm, &mockEmbedder{}, &mockVectorStore{})

	err := svc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm service")
}

func TestPingReportsEmbedderFailure(t *testing.T) {
	embedder := &mockEmbedder{pingErr: fmt.Errorf("bad key")}
	svc := testAssistant(&mockLLM{}, embedder, &mockVectorStore{})

	err := svc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding service")
}

func TestPingIgnoresVectorStore(t *testing.T) {
	store := &mockVectorStore{pingErr: fmt.Errorf("down")}
	svc := testAssistant(&mockLLM{}, &mockEmbedder{}, store)

	// An unreachable store only degrades retrieval; chat still works.
	require.NoError(t, svc.Ping(context.Background()))
}

func TestClassifyUsesConfiguredModel(t *testing.T) {
	llm := &mockLLM{
		generateFn: func(_ string, opts driven.GenerateOptions) (string, error) {
			assert.Equal(t, "custom-fast-model", opts.Model)
			return noMatches, nil
		},
	}
	store := &mockVectorStore{known: domain.KnownEntities{Brands: []string{"Korg"}}}
	svc := testAssistant(llm, &mockEmbedder{}, store)
	svc.SetClassifyModel("custom-fast-model")

	_, err := svc.Classify(context.Background(), "q")
	require.NoError(t, err)
}
