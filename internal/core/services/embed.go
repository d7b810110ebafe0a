package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driven"
	"github.com/soundbench/soundbench/internal/core/ports/driving"
	"github.com/soundbench/soundbench/internal/logger"
	"github.com/soundbench/soundbench/internal/ratelimit"
)

// Ensure EmbedService implements the interface.
var _ driving.EmbedService = (*EmbedService)(nil)

// Embedding defaults.
const (
	// DefaultEmbedBatchSize is the number of chunks sent per API request.
	DefaultEmbedBatchSize = 64

	embedMaxAttempts = 3
)

// EmbedService generates embedding records from chunk sets.
type EmbedService struct {
	embedder driven.EmbeddingService
	manifest driven.ManifestStore
	limiter  *ratelimit.Limiter

	batchSize int
}

// NewEmbedService creates a new embedding service.
func NewEmbedService(
	embedder driven.EmbeddingService,
	manifest driven.ManifestStore,
	limiter *ratelimit.Limiter,
) *EmbedService {
	return &EmbedService{
		embedder:  embedder,
		manifest:  manifest,
		limiter:   limiter,
		batchSize: DefaultEmbedBatchSize,
	}
}

// SetBatchSize overrides the per-request batch size.
func (s *EmbedService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// EmbedDir embeds every chunk set under inputDir, writing one JSON embedding
// set per document to outputDir.
func (s *EmbedService) EmbedDir(ctx context.Context, inputDir, outputDir string, force bool) (driving.StageResult, error) {
	var result driving.StageResult

	if err := s.embedder.Ping(ctx); err != nil {
		return result, fmt.Errorf("embedding service unreachable: %w", err)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return result, fmt.Errorf("read input directory: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return result, fmt.Errorf("create output directory: %w", err)
	}

	logger.Section("Embed")
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		set, err := readChunkSet(filepath.Join(inputDir, entry.Name()))
		if err != nil {
			logger.Warn("Skipping %s: %v", entry.Name(), err)
			result.Skipped++
			continue
		}

		outPath := filepath.Join(outputDir, entry.Name())
		if !force && s.embedded(ctx, set.Document, outPath) {
			logger.Debug("Already embedded, skipping: %s", set.Document)
			result.Skipped++
			continue
		}

		if err := s.embedSet(ctx, set, outPath); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			logger.Warn("Failed to embed %s: %v", set.Document, err)
			result.Failed++
			continue
		}
		result.Processed++
	}

	logger.Info("Embedded %d documents (%d skipped, %d failed)",
		result.Processed, result.Skipped, result.Failed)
	return result, nil
}

// embedded reports whether a document's embedding can be resumed past.
func (s *EmbedService) embedded(ctx context.Context, document, outPath string) bool {
	done, err := s.manifest.StageDone(ctx, document, driven.StageEmbed)
	if err != nil || !done {
		return false
	}
	_, err = os.Stat(outPath)
	return err == nil
}

// embedSet embeds one chunk set in batches and writes the embedding set.
// A failing batch falls back to per-chunk embedding so one bad chunk never
// discards the rest of the document's records.
func (s *EmbedService) embedSet(ctx context.Context, set domain.ChunkSet, outPath string) error {
	if len(set.Chunks) == 0 {
		return fmt.Errorf("%w: chunk set is empty", domain.ErrEmptyDocument)
	}

	dims := s.embedder.Dimensions()
	records := make([]domain.EmbeddingRecord, 0, len(set.Chunks))
	failed := 0

	for start := 0; start < len(set.Chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(set.Chunks))
		batch := set.Chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.EmbeddingText()
		}

		vectors, err := s.embedBatch(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("Batch embed failed for %s, retrying chunks individually: %v",
				set.Document, err)
			vectors, err = s.embedSingly(ctx, texts)
			if err != nil {
				return err
			}
		}

		for i, chunk := range batch {
			if vectors[i] == nil {
				logger.Warn("Excluding chunk %s: embedding failed", chunk.ID)
				failed++
				continue
			}
			if len(vectors[i]) != dims {
				logger.Warn("Excluding chunk %s: got %d dimensions, expected %d",
					chunk.ID, len(vectors[i]), dims)
				failed++
				continue
			}
			records = append(records, domain.EmbeddingRecord{
				ID:          chunk.ID,
				Document:    chunk.Document,
				HeadingPath: chunk.HeadingPath,
				Text:        chunk.Text,
				Context:     chunk.Context,
				Vector:      vectors[i],
			})
		}
		logger.Debug("Embedded %d/%d chunks of %s", end, len(set.Chunks), set.Document)
	}

	if len(records) == 0 {
		return fmt.Errorf("no chunks could be embedded (%d failed)", failed)
	}
	if failed > 0 {
		logger.Warn("Embedded %s with %d of %d chunks excluded",
			set.Document, failed, len(set.Chunks))
	}

	out := domain.EmbeddingSet{
		Document:   set.Document,
		Model:      s.embedder.ModelName(),
		Dimensions: dims,
		Manual:     set.Manual,
		Records:    records,
	}
	if err := writeJSON(outPath, out); err != nil {
		return err
	}

	return s.manifest.MarkStage(ctx, driven.StageRecord{
		Document: set.Document,
		Stage:    driven.StageEmbed,
		Items:    len(records),
	})
}

// embedSingly embeds each text on its own, returning a nil vector for texts
// that persistently fail. Only cancellation is reported as an error.
func (s *EmbedService) embedSingly(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		single, err := s.embedBatch(ctx, []string{text})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		vectors[i] = single[0]
	}
	return vectors, nil
}

// embedBatch sends one batch, retrying through rate limit backoff.
func (s *EmbedService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= embedMaxAttempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts, driven.InputDocument)
		if err == nil {
			if len(vectors) != len(texts) {
				return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts",
					len(vectors), len(texts))
			}
			return vectors, nil
		}

		if errors.Is(err, domain.ErrRateLimited) {
			s.limiter.RecordRateLimitError(0)
		}
		lastErr = err
		logger.Debug("Embedding attempt %d failed: %v", attempt, err)
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", embedMaxAttempts, lastErr)
}

// readChunkSet decodes one chunk set file.
func readChunkSet(path string) (domain.ChunkSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ChunkSet{}, fmt.Errorf("read chunk set: %w", err)
	}

	var set domain.ChunkSet
	if err := json.Unmarshal(data, &set); err != nil {
		return domain.ChunkSet{}, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	if set.Document == "" {
		return domain.ChunkSet{}, fmt.Errorf("%w: chunk set has no document", domain.ErrMalformedDocument)
	}
	return set, nil
}
