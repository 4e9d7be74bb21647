package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates bad caller input: chunk overlap not
	// smaller than chunk size, an empty query, a malformed filter.
	// Rejected synchronously, never retried.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable indicates the embedding collaborator cannot
	// be reached. Retryable with backoff during ingestion; surfaced
	// directly to the caller on the query path.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDimensionMismatch indicates a vector whose length differs from
	// the index's established dimensionality. This is embedder
	// configuration drift or data corruption, never transient.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStoreWrite indicates the document store rejected a write during
	// ingestion. The in-progress version is rolled back.
	ErrStoreWrite = errors.New("store write failed")

	// ErrIndexClosed indicates the vector index has been closed.
	ErrIndexClosed = errors.New("vector index closed")
)
