package mcp

import (
	"context"
	"time"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driving"
)

// mockQueryService returns canned results or a canned error.
type mockQueryService struct {
	results  []domain.QueryResult
	err      error
	lastOpts domain.QueryOptions
}

func (m *mockQueryService) Query(_ context.Context, _ string, opts domain.QueryOptions) ([]domain.QueryResult, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// mockAdminService returns canned documents.
type mockAdminService struct {
	docs []domain.Document
	err  error
}

func (m *mockAdminService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.docs, nil
}

func (m *mockAdminService) DeleteDocument(_ context.Context, _ string) error {
	return nil
}

func (m *mockAdminService) Reindex(_ context.Context) (int, error) {
	return 0, nil
}

func (m *mockAdminService) CheckConsistency(_ context.Context) (*driving.ConsistencyReport, error) {
	return &driving.ConsistencyReport{}, nil
}

func sampleDocument() domain.Document {
	return domain.Document{
		ID:         "remote-work",
		Title:      "Remote Work Policy",
		Department: "HR",
		DocType:    "policy",
		Version:    2,
		UploadedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}
