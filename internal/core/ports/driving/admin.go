package driving

import (
	"context"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

// AdminService provides administrative operations over the corpus.
type AdminService interface {
	// ListDocuments returns the latest committed version of every live
	// document (id, version, department, type, ingestion timestamp).
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument tombstones all versions of a document and removes
	// its chunks from the vector index.
	DeleteDocument(ctx context.Context, documentID string) error

	// Reindex re-embeds every live chunk under the current embedder
	// configuration and rebuilds the vector index. A maintenance
	// operation distinct from normal ingestion. Returns the number of
	// chunks re-indexed.
	Reindex(ctx context.Context) (int, error)

	// CheckConsistency reconciles the document store and vector index
	// after restart: vectors missing from the index are re-added from
	// stored embeddings, index entries without a live store record are
	// tombstoned. Returns a report of the repairs made.
	CheckConsistency(ctx context.Context) (*ConsistencyReport, error)
}

// ConsistencyReport summarises startup reconciliation.
type ConsistencyReport struct {
	// LiveChunks is the number of committed, live chunks in the store.
	LiveChunks int

	// Restored is the number of vectors re-added to the index.
	Restored int

	// Orphans is the number of index entries tombstoned because no live
	// store record backs them.
	Orphans int

	// Compacted is the number of tombstoned entries physically removed
	// when the tombstone ratio crossed the compaction threshold.
	Compacted int
}
