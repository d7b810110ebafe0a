package domain

import "time"

// Document represents a single source manual moving through the pipeline.
// It is identified by the base name of the original PDF file.
type Document struct {
	// ID is the unique identifier for the document (filename without extension).
	ID string

	// Filename is the original source file name (e.g. "minilogue-xd.pdf").
	Filename string

	// Title is the human-readable title, extracted from the first H1 heading
	// of the converted Markdown or derived from the filename.
	Title string

	// Content is the full Markdown text after conversion.
	Content string

	// Manual holds the extracted product metadata for this manual.
	Manual ManualInfo
}

// ManualInfo is the product metadata extracted from a manual by the
// whole-document classification call. Values are lowercased for consistent
// filtering at query time. Unknown fields are left empty.
type ManualInfo struct {
	Brand       string   `json:"brand"`
	Model       string   `json:"model"`
	ProductType string   `json:"product_type"`
	Keywords    []string `json:"keywords"`
}

// Chunk is the unit of retrieval: a contiguous span of a document's Markdown
// content bounded by heading structure, augmented with a generated context
// string situating it within the whole document.
//
// Chunks are immutable once created. Their IDs are deterministic (see ChunkID)
// so re-running any pipeline stage never duplicates records downstream.
type Chunk struct {
	// ID is the deterministic chunk identifier (a name-based UUID).
	ID string `json:"id"`

	// Document is the parent document ID.
	Document string `json:"document"`

	// HeadingPath is the heading trail from the document root to this chunk's
	// section, e.g. ["Minilogue XD Manual", "Effects", "Reverb"].
	HeadingPath []string `json:"heading_path"`

	// Position is the ordinal position within the document.
	Position int `json:"position"`

	// Text is the raw section text.
	Text string `json:"text"`

	// Context is the LLM-generated situating summary, prepended to Text when
	// embedding. Empty when context generation failed and the chunk was kept
	// anyway.
	Context string `json:"context"`

	// CreatedAt is when the chunk was produced.
	CreatedAt time.Time `json:"created_at"`
}

// EmbeddingText returns the string that is embedded for this chunk:
// the situating context concatenated with the raw text.
func (c Chunk) EmbeddingText() string {
	if c.Context == "" {
		return c.Text
	}
	return c.Context + "\n\n" + c.Text
}

// ChunkSet is the per-document output of the chunking stage, persisted as one
// JSON file per source document.
type ChunkSet struct {
	Document string     `json:"document"`
	Title    string     `json:"title"`
	Manual   ManualInfo `json:"manual"`
	Chunks   []Chunk    `json:"chunks"`
}

// EmbeddingRecord pairs a chunk with its vector. Records are regenerated
// wholesale when upstream output changes; they are never mutated in place.
type EmbeddingRecord struct {
	ID          string    `json:"id"`
	Document    string    `json:"document"`
	HeadingPath []string  `json:"heading_path"`
	Text        string    `json:"text"`
	Context     string    `json:"context"`
	Vector      []float32 `json:"vector"`
}

// EmbeddingSet is the per-document output of the embedding stage.
type EmbeddingSet struct {
	Document   string            `json:"document"`
	Model      string            `json:"model"`
	Dimensions int               `json:"dimensions"`
	Manual     ManualInfo        `json:"manual"`
	Records    []EmbeddingRecord `json:"records"`
}

// VectorHit is a similarity search result from the vector store.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the similarity score reported by the store.
	Score float64

	// Document is the source document ID from the payload.
	Document string

	// HeadingPath is the heading trail from the payload.
	HeadingPath []string

	// Text is the stored chunk text (context + raw text).
	Text string
}
