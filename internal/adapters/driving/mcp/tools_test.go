package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

func TestServer_handleQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ranked passages", func(t *testing.T) {
		mockQuery := &mockQueryService{
			results: []domain.QueryResult{
				{
					ChunkID:     "chunk-1",
					DocumentID:  "remote-work",
					Title:       "Remote Work Policy",
					Department:  "HR",
					DocType:     "policy",
					Version:     2,
					Score:       0.93,
					Snippet:     "Employees may work remotely up to three days per week.",
					StartOffset: 0,
					EndOffset:   55,
				},
			},
		}

		ports := &Ports{Query: mockQuery}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := QueryInput{Query: "remote work", K: 5}
		_, output, err := server.handleQuery(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "remote-work", output.Results[0].DocumentID)
		assert.Equal(t, "Remote Work Policy", output.Results[0].Title)
		assert.Equal(t, "HR", output.Results[0].Department)
		assert.Equal(t, 0.93, output.Results[0].Score)
		assert.Equal(t, 2, output.Results[0].Version)
		assert.Equal(t, 55, output.Results[0].EndOffset)
	})

	t.Run("passes filters through", func(t *testing.T) {
		mockQuery := &mockQueryService{}
		ports := &Ports{Query: mockQuery}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := QueryInput{Query: "budget", Department: "Finance", DocType: "form", K: 3}
		_, _, err = server.handleQuery(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "Finance", mockQuery.lastOpts.Department)
		assert.Equal(t, "form", mockQuery.lastOpts.DocType)
		assert.Equal(t, 3, mockQuery.lastOpts.K)
	})

	t.Run("empty corpus yields zero count", func(t *testing.T) {
		ports := &Ports{Query: &mockQueryService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleQuery(ctx, nil, QueryInput{Query: "anything"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
	})

	t.Run("returns error on query failure", func(t *testing.T) {
		mockQuery := &mockQueryService{err: errors.New("embedder down")}
		ports := &Ports{Query: mockQuery}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleQuery(ctx, nil, QueryInput{Query: "anything"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedder down")
	})
}

func TestServer_handleList(t *testing.T) {
	ctx := context.Background()

	t.Run("returns documents", func(t *testing.T) {
		mockAdmin := &mockAdminService{docs: []domain.Document{sampleDocument()}}
		ports := &Ports{Query: &mockQueryService{}, Admin: mockAdmin}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleList(ctx, nil, ListInput{})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Documents, 1)
		assert.Equal(t, "remote-work", output.Documents[0].ID)
		assert.Equal(t, 2, output.Documents[0].Version)
		assert.Equal(t, "2024-03-01T09:00:00Z", output.Documents[0].UploadedAt)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		mockAdmin := &mockAdminService{err: errors.New("store closed")}
		ports := &Ports{Query: &mockQueryService{}, Admin: mockAdmin}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleList(ctx, nil, ListInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "store closed")
	})
}
