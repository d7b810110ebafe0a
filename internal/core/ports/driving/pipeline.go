// Package driving provides interfaces for application entry points (primary/inbound ports).
package driving

import "context"

// StageResult summarises one offline pipeline run.
type StageResult struct {
	// Processed is the number of documents handled successfully.
	Processed int

	// Skipped is the number of documents skipped because the stage already
	// completed for them (resume) or the input was unusable.
	Skipped int

	// Failed is the number of documents that failed.
	Failed int
}

// ConvertService turns a directory of PDF manuals into Markdown files.
type ConvertService interface {
	// ConvertDir converts every PDF under inputDir, writing one Markdown file
	// per document to outputDir. One failing file never aborts the rest.
	ConvertDir(ctx context.Context, inputDir, outputDir string, force bool) (StageResult, error)
}

// ChunkService splits converted Markdown into contextualised chunk records.
type ChunkService interface {
	// ChunkDir chunks every Markdown file under inputDir, writing one JSON
	// chunk set per document to outputDir.
	ChunkDir(ctx context.Context, inputDir, outputDir string, force bool) (StageResult, error)
}

// EmbedService generates embedding records from chunk sets.
type EmbedService interface {
	// EmbedDir embeds every chunk set under inputDir, writing one JSON
	// embedding set per document to outputDir.
	EmbedDir(ctx context.Context, inputDir, outputDir string, force bool) (StageResult, error)
}

// IndexService loads embedding sets into the vector store.
type IndexService interface {
	// IndexDir upserts every embedding set under inputDir. Re-running with
	// the same input is idempotent.
	IndexDir(ctx context.Context, inputDir string) (StageResult, error)
}

// StatusService reports per-document pipeline progress from the manifest.
type StatusService interface {
	// Overview returns one entry per known document, sorted by document ID.
	Overview(ctx context.Context) ([]DocumentStatus, error)
}

// DocumentStatus summarises one document's progress through the pipeline.
type DocumentStatus struct {
	// Document is the document ID.
	Document string

	// Brand and Model are the classified manual metadata, empty before the
	// chunk stage has run.
	Brand string
	Model string

	// Stages maps each stage name to whether it has completed.
	Stages map[string]bool
}
