package driven

import "context"

// InputType distinguishes document embeddings from query embeddings for
// providers that condition the vector on usage (e.g. Voyage).
type InputType string

const (
	// InputDocument marks text that will be stored and retrieved.
	InputDocument InputType = "document"

	// InputQuery marks text used to search stored documents.
	InputQuery InputType = "query"
)

// EmbeddingService generates vector embeddings from text.
//
// Note: this is separate from VectorStore, which stores and searches vectors.
// EmbeddingService generates vectors; VectorStore persists them.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string, input InputType) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one request.
	// The result has exactly one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string, input InputType) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 1024).
	// This must match the vector store collection configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test
	// request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
