package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driven"
	"github.com/soundbench/soundbench/internal/core/ports/driving"
	"github.com/soundbench/soundbench/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService loads embedding sets into the vector store.
type IndexService struct {
	store    driven.VectorStore
	manifest driven.ManifestStore
}

// NewIndexService creates a new indexing service.
func NewIndexService(store driven.VectorStore, manifest driven.ManifestStore) *IndexService {
	return &IndexService{
		store:    store,
		manifest: manifest,
	}
}

// IndexDir upserts every embedding set under inputDir into the vector store.
// Points are keyed by chunk ID, so re-running the same input replaces rather
// than duplicates.
func (s *IndexService) IndexDir(ctx context.Context, inputDir string) (driving.StageResult, error) {
	var result driving.StageResult

	// An unreachable store is a configuration problem; fail before touching
	// any input.
	if err := s.store.Ping(ctx); err != nil {
		return result, fmt.Errorf("vector store unreachable: %w", err)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return result, fmt.Errorf("read input directory: %w", err)
	}

	logger.Section("Index")
	collectionReady := false
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		set, err := readEmbeddingSet(filepath.Join(inputDir, entry.Name()))
		if err != nil {
			logger.Warn("Skipping %s: %v", entry.Name(), err)
			result.Skipped++
			continue
		}

		if !collectionReady {
			if err := s.store.EnsureCollection(ctx, set.Dimensions); err != nil {
				return result, fmt.Errorf("ensure collection: %w", err)
			}
			collectionReady = true
		}

		if err := s.indexSet(ctx, set); err != nil {
			logger.Warn("Failed to index %s: %v", set.Document, err)
			result.Failed++
			continue
		}
		result.Processed++
	}

	logger.Info("Indexed %d documents (%d skipped, %d failed)",
		result.Processed, result.Skipped, result.Failed)
	return result, nil
}

// indexSet upserts one embedding set.
func (s *IndexService) indexSet(ctx context.Context, set domain.EmbeddingSet) error {
	for _, rec := range set.Records {
		if len(rec.Vector) != set.Dimensions {
			return fmt.Errorf("%w: record %s has %d dimensions, set declares %d",
				domain.ErrDimensionMismatch, rec.ID, len(rec.Vector), set.Dimensions)
		}
	}

	if err := s.store.Upsert(ctx, set.Manual, set.Records); err != nil {
		return err
	}
	logger.Debug("Indexed %d records for %s", len(set.Records), set.Document)

	return s.manifest.MarkStage(ctx, driven.StageRecord{
		Document: set.Document,
		Stage:    driven.StageIndex,
		Items:    len(set.Records),
	})
}

// readEmbeddingSet decodes one embedding set file.
func readEmbeddingSet(path string) (domain.EmbeddingSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.EmbeddingSet{}, fmt.Errorf("read embedding set: %w", err)
	}

	var set domain.EmbeddingSet
	if err := json.Unmarshal(data, &set); err != nil {
		return domain.EmbeddingSet{}, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	if set.Document == "" || len(set.Records) == 0 {
		return domain.EmbeddingSet{}, fmt.Errorf("%w: embedding set is empty", domain.ErrMalformedDocument)
	}
	return set, nil
}
