package driven

import "context"

// VectorIndex provides semantic similarity search operations.
// The reference implementation is a flat brute-force scan; an approximate
// structure may replace it provided the ordering contract holds.
//
// The index owns vector normalisation: callers pass raw embedder output
// and the index compares under cosine similarity. The first successful
// Add establishes the index dimensionality; later vectors of a different
// length fail with domain.ErrDimensionMismatch.
type VectorIndex interface {
	// Add inserts a vector for the given chunk ID. The insert is atomic
	// with respect to concurrent searches.
	Add(ctx context.Context, chunkID string, embedding []float32) error

	// Delete tombstones a vector. Deleting an unknown or already-deleted
	// ID is a no-op.
	Delete(ctx context.Context, chunkID string) error

	// Search finds the k most similar live entries to the query vector,
	// ties broken by insertion order (earlier wins).
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// LiveCount returns the number of live (non-tombstoned) entries.
	LiveCount() int

	// LiveIDs returns the chunk IDs of all live entries, in insertion
	// order. Used by the startup consistency check.
	LiveIDs() []string

	// TombstoneRatio returns the fraction of entries that are
	// tombstoned, zero for an empty index.
	TombstoneRatio() float64

	// Compact physically removes tombstoned entries, preserving the
	// insertion order of the survivors. A maintenance operation, never
	// called on the synchronous delete path. Returns the number of
	// entries removed.
	Compact() int

	// Save persists the index to its backing file.
	Save() error

	// Close persists and releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
