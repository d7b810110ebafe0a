package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedDocument indicates a source file could not be parsed.
	// The file is skipped with a warning; the batch continues.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrEmptyDocument indicates a source file produced no content.
	ErrEmptyDocument = errors.New("empty document")

	// ErrLLMUnavailable indicates the LLM service is not configured or
	// unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store cannot be reached.
	// Fatal for indexing; at query time the assistant degrades to answering
	// without retrieved context.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrRateLimited indicates a provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrDimensionMismatch indicates an embedding vector did not have the
	// provider's expected dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
