// Command soundbench builds a searchable knowledge base from PDF equipment
// manuals and answers questions about studio gear.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/soundbench/soundbench/internal/adapters/driven/config/file"
	"github.com/soundbench/soundbench/internal/adapters/driven/embedding/voyage"
	"github.com/soundbench/soundbench/internal/adapters/driven/llm/anthropic"
	"github.com/soundbench/soundbench/internal/adapters/driven/manifest/sqlite"
	"github.com/soundbench/soundbench/internal/adapters/driven/vector/qdrant"
	"github.com/soundbench/soundbench/internal/adapters/driving/cli"
	"github.com/soundbench/soundbench/internal/core/services"
	"github.com/soundbench/soundbench/internal/logger"
	"github.com/soundbench/soundbench/internal/ratelimit"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("initialising config store: %w", err)
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("initialising prompt store: %w", err)
	}

	manifest, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("initialising manifest store: %w", err)
	}
	defer func() {
		if err := manifest.Close(); err != nil {
			logger.Warn("closing manifest store: %v", err)
		}
	}()

	// Adapter constructors fill in defaults for unset config keys.
	vectorStore := qdrant.NewStore(qdrant.Config{
		URL:        cfg.GetString("vector.url"),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		Collection: cfg.GetString("vector.collection"),
	})

	llmLimiter := limiterFor(cfg, ratelimit.ProviderLLM, "llm")
	embedLimiter := limiterFor(cfg, ratelimit.ProviderEmbedding, "embedding")

	fastModel := cfg.GetString("llm.fast_model")

	// LLM-backed services need an Anthropic key; without one the related
	// commands report themselves as not configured.
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		llm, err := anthropic.NewLLMService(anthropic.Config{
			APIKey:  apiKey,
			BaseURL: cfg.GetString("llm.base_url"),
			Model:   cfg.GetString("llm.model"),
		})
		if err != nil {
			return fmt.Errorf("initialising LLM service: %w", err)
		}

		convertService := services.NewConvertService(llm, manifest, prompts, llmLimiter)
		convertService.SetMaxTokens(cfg.GetInt("convert.max_tokens"))
		cli.SetConvertService(convertService)

		chunkService := services.NewChunkService(llm, manifest, prompts, llmLimiter)
		chunkService.SetFastModel(fastModel)
		chunkService.SetMaxSectionChars(cfg.GetInt("chunk.max_section_chars"))
		cli.SetChunkService(chunkService)

		if voyageKey := os.Getenv("VOYAGE_API_KEY"); voyageKey != "" {
			embedder, err := voyage.NewEmbeddingService(voyage.Config{
				APIKey:     voyageKey,
				Model:      cfg.GetString("embedding.model"),
				Dimensions: cfg.GetInt("embedding.dimensions"),
			})
			if err != nil {
				return fmt.Errorf("initialising embedding service: %w", err)
			}

			embedService := services.NewEmbedService(embedder, manifest, embedLimiter)
			embedService.SetBatchSize(cfg.GetInt("embedding.batch_size"))
			cli.SetEmbedService(embedService)

			assistantService := services.NewAssistantService(llm, embedder, vectorStore, prompts)
			assistantService.SetTopK(cfg.GetInt("retrieval.top_k"))
			assistantService.SetMaxTokens(cfg.GetInt("chat.max_tokens"))
			assistantService.SetClassifyModel(fastModel)
			cli.SetAssistantService(assistantService)
		} else {
			logger.Debug("VOYAGE_API_KEY not set; embed and chat unavailable")
		}
	} else {
		logger.Debug("ANTHROPIC_API_KEY not set; pipeline and chat unavailable")
	}

	cli.SetIndexService(services.NewIndexService(vectorStore, manifest))
	cli.SetStatusService(services.NewStatusService(manifest))
	cli.SetVersion(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx)
}

// limiterFor builds the provider limiter, honouring a per-provider rate
// override from config (e.g. "llm.requests_per_second").
func limiterFor(cfg *file.ConfigStore, p ratelimit.Provider, prefix string) *ratelimit.Limiter {
	rps := cfg.GetFloat(prefix + ".requests_per_second")
	if rps <= 0 {
		return ratelimit.New(p)
	}

	burst := cfg.GetInt(prefix + ".burst_size")
	if burst <= 0 {
		burst = 1
	}
	return ratelimit.NewWithConfig(ratelimit.Config{
		RequestsPerSecond: rps,
		BurstSize:         burst,
	})
}
