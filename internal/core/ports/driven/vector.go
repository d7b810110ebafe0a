package driven

import (
	"context"

	"github.com/soundbench/soundbench/internal/core/domain"
)

// VectorStore persists embedding records and answers similarity queries.
// Backed by a Qdrant collection with one point per chunk.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist.
	// Calling it again with the same dimension is a no-op.
	EnsureCollection(ctx context.Context, dimension int) error

	// Upsert inserts or replaces points keyed by chunk ID. Re-running with
	// the same records must not create duplicates.
	Upsert(ctx context.Context, manual domain.ManualInfo, records []domain.EmbeddingRecord) error

	// Search finds the k nearest chunks to the query vector. When filter is
	// non-empty, results are restricted to chunks whose manual matches any of
	// the given brands or models.
	Search(ctx context.Context, vector []float32, k int, filter domain.QueryEntities) ([]domain.VectorHit, error)

	// KnownEntities returns the distinct brands and models present in the
	// collection, used to ground the query classifier.
	KnownEntities(ctx context.Context) (domain.KnownEntities, error)

	// Ping validates the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
