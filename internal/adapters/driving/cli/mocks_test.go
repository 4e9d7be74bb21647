package cli

import (
	"context"
	"errors"
	"time"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driving"
)

// setupTestServices installs mock services and returns a cleanup
// function restoring the previous ones.
func setupTestServices() func() {
	oldIngest := ingestService
	oldQuery := queryService
	oldAdmin := adminService

	ingestService = &mockIngestService{}
	queryService = &mockQueryService{}
	adminService = &mockAdminService{}

	return func() {
		ingestService = oldIngest
		queryService = oldQuery
		adminService = oldAdmin
	}
}

type mockIngestService struct{}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestJob, error) {
	return &domain.IngestJob{
		DocumentID: req.DocumentID,
		Version:    1,
		State:      domain.IngestStateCommitted,
		Chunks:     3,
	}, nil
}

func (m *mockIngestService) Status(_ context.Context, documentID string) (*domain.IngestJob, error) {
	return &domain.IngestJob{
		DocumentID: documentID,
		Version:    1,
		State:      domain.IngestStateCommitted,
		Chunks:     3,
	}, nil
}

type mockQueryService struct{}

func (m *mockQueryService) Query(_ context.Context, _ string, opts domain.QueryOptions) ([]domain.QueryResult, error) {
	result := domain.QueryResult{
		ChunkID:     "chunk-1",
		DocumentID:  "remote-work",
		Title:       "Remote Work Policy",
		Department:  "HR",
		DocType:     "policy",
		Version:     1,
		Score:       0.93,
		Snippet:     "Employees may work remotely up to three days per week.",
		StartOffset: 0,
		EndOffset:   55,
	}
	if opts.Department != "" && opts.Department != result.Department {
		return nil, nil
	}
	return []domain.QueryResult{result}, nil
}

// mockQueryServiceContext records the state of the context it was
// called with.
type mockQueryServiceContext struct {
	ctxErr error
}

func (m *mockQueryServiceContext) Query(ctx context.Context, _ string, _ domain.QueryOptions) ([]domain.QueryResult, error) {
	m.ctxErr = ctx.Err()
	if m.ctxErr != nil {
		return nil, m.ctxErr
	}
	return nil, nil
}

type mockQueryServiceError struct{}

func (m *mockQueryServiceError) Query(_ context.Context, _ string, _ domain.QueryOptions) ([]domain.QueryResult, error) {
	return nil, errors.New("query engine exploded")
}

type mockAdminService struct{}

func (m *mockAdminService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return []domain.Document{
		{
			ID:         "remote-work",
			Title:      "Remote Work Policy",
			Department: "HR",
			DocType:    "policy",
			Version:    2,
			UploadedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		},
	}, nil
}

func (m *mockAdminService) DeleteDocument(_ context.Context, documentID string) error {
	if documentID == "ghost" {
		return domain.ErrNotFound
	}
	return nil
}

func (m *mockAdminService) Reindex(_ context.Context) (int, error) {
	return 12, nil
}

func (m *mockAdminService) CheckConsistency(_ context.Context) (*driving.ConsistencyReport, error) {
	return &driving.ConsistencyReport{LiveChunks: 12}, nil
}
