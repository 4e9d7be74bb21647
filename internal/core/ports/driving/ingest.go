package driving

import (
	"context"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

// IngestService runs the ingestion pipeline for new and re-uploaded
// documents.
type IngestService interface {
	// Ingest chunks, embeds, stores and indexes one document, committing
	// the new version atomically. On success it returns the assigned
	// document ID and version; on failure the attempted version is rolled
	// back and the returned job carries the retained reason.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestJob, error)

	// Status returns the last known job for a document ID, or nil when
	// no ingestion has been attempted this process.
	Status(ctx context.Context, documentID string) (*domain.IngestJob, error)
}
