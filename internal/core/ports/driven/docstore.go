package driven

import (
	"context"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

// DocumentStore persists documents and chunks durably.
// Backed by SQLite for metadata and embedding storage.
//
// Visibility rules: chunks written by SaveChunks stay invisible to reads
// until CommitVersion flips the version live. All reads exclude
// tombstoned chunks. Writers to the same document ID are serialised by
// the ingestion pipeline, not by the store.
type DocumentStore interface {
	// SaveDocument stores a document version record.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// NextVersion returns the next version number for a logical ID.
	// Returns 1 for an unknown ID.
	NextVersion(ctx context.Context, documentID string) (int, error)

	// SaveChunks stores all chunks of one document version in a single
	// transaction. The chunks remain hidden until CommitVersion.
	SaveChunks(ctx context.Context, documentID string, version int, chunks []domain.Chunk) error

	// CommitVersion atomically makes a version's chunks visible.
	CommitVersion(ctx context.Context, documentID string, version int) error

	// GetDocument retrieves the latest committed version of a document.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunk retrieves a committed, live chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks retrieves the live chunks of one document version,
	// ordered by position.
	GetChunks(ctx context.Context, documentID string, version int) ([]domain.Chunk, error)

	// TombstoneDocument marks all chunks of all versions of a document
	// unavailable. Idempotent.
	TombstoneDocument(ctx context.Context, documentID string) error

	// TombstoneVersion marks one version's chunks unavailable. Used when
	// a re-upload supersedes a prior version. Idempotent.
	TombstoneVersion(ctx context.Context, documentID string, version int) error

	// DeleteVersion physically removes one version's records. Used only
	// to roll back a failed, never-committed ingestion attempt.
	DeleteVersion(ctx context.Context, documentID string, version int) error

	// ListDocuments returns the latest committed version of every live
	// document.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// LiveChunks returns every committed, live chunk across all
	// documents. Used by the startup consistency check and by re-index.
	LiveChunks(ctx context.Context) ([]domain.Chunk, error)

	// UpdateChunkEmbeddings replaces the stored embeddings of existing
	// chunks, matched by chunk ID. Used by re-index when the embedder
	// configuration changes; chunk text and offsets stay immutable.
	UpdateChunkEmbeddings(ctx context.Context, chunks []domain.Chunk) error

	// Close releases resources.
	Close() error
}
