package driven

import (
	"context"
	"time"

	"github.com/soundbench/soundbench/internal/core/domain"
)

// Pipeline stage names recorded in the manifest.
const (
	StageConvert = "convert"
	StageChunk   = "chunk"
	StageEmbed   = "embed"
	StageIndex   = "index"
)

// StageRecord describes one completed pipeline stage for a document.
type StageRecord struct {
	// Document is the document ID.
	Document string

	// Stage is one of the Stage* constants.
	Stage string

	// Items is the number of units produced (pages, chunks, records).
	Items int

	// Fallback is true when the stage completed via a degraded path
	// (e.g. local text extraction after API conversion failed).
	Fallback bool

	// CompletedAt is when the stage finished.
	CompletedAt time.Time
}

// ManifestStore tracks per-document pipeline progress so every offline stage
// is safely re-runnable: completed documents are skipped unless forced.
// It also records the manual metadata extracted at chunk time.
type ManifestStore interface {
	// MarkStage records a completed stage for a document, replacing any
	// previous record for the same document and stage.
	MarkStage(ctx context.Context, rec StageRecord) error

	// StageDone reports whether the given stage has completed for a document.
	StageDone(ctx context.Context, document, stage string) (bool, error)

	// SaveManual stores the extracted product metadata for a document.
	SaveManual(ctx context.Context, document string, manual domain.ManualInfo) error

	// Manual returns the stored metadata for a document.
	// Returns domain.ErrNotFound when the document is unknown.
	Manual(ctx context.Context, document string) (domain.ManualInfo, error)

	// Documents lists all document IDs known to the manifest.
	Documents(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}
