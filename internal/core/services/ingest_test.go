package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerialSamurai/BUTLER-NEW/internal/adapters/driven/storage/memory"
	"github.com/SerialSamurai/BUTLER-NEW/internal/adapters/driven/vector/flat"
	"github.com/SerialSamurai/BUTLER-NEW/internal/chunker"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

// testEnv wires the pipeline against in-memory adapters.
type testEnv struct {
	store    *memory.DocumentStore
	index    *flat.Index
	embedder *stubEmbedder
	pipeline *IngestPipeline
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewDocumentStore()
	index, err := flat.New("")
	require.NoError(t, err)

	embedder := newStubEmbedder(8)
	chunk, err := chunker.NewFixedWindow(40, 10)
	require.NoError(t, err)

	pipeline := NewIngestPipeline(store, index, embedder, chunk)
	pipeline.SetEmbedRetry(3, time.Millisecond)

	return &testEnv{store: store, index: index, embedder: embedder, pipeline: pipeline}
}

func policyRequest(id string) domain.IngestRequest {
	return domain.IngestRequest{
		DocumentID: id,
		Title:      "Remote Work Policy",
		Filename:   id + ".txt",
		Department: "HR",
		DocType:    "policy",
		Content: "Employees may work remotely up to three days per week. " +
			"Remote work requests require supervisor approval in advance. " +
			"Equipment for home offices is provided by the county.",
	}
}

func TestIngest_CommitsNewDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job, err := env.pipeline.Ingest(ctx, policyRequest("remote-work"))
	require.NoError(t, err)

	assert.Equal(t, domain.IngestStateCommitted, job.State)
	assert.Equal(t, "remote-work", job.DocumentID)
	assert.Equal(t, 1, job.Version)
	assert.Greater(t, job.Chunks, 1)

	// Document and chunks are visible.
	doc, err := env.store.GetDocument(ctx, "remote-work")
	require.NoError(t, err)
	assert.Equal(t, "HR", doc.Department)
	assert.Equal(t, 1, doc.Version)

	chunks, err := env.store.GetChunks(ctx, "remote-work", 1)
	require.NoError(t, err)
	assert.Len(t, chunks, job.Chunks)

	// Every chunk has a vector in the index.
	assert.Equal(t, job.Chunks, env.index.LiveCount())
}

func TestIngest_AssignsIDWhenEmpty(t *testing.T) {
	env := newTestEnv(t)

	req := policyRequest("")
	job, err := env.pipeline.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, job.DocumentID)
	assert.Equal(t, 1, job.Version)
}

func TestIngest_RejectsEmptyContent(t *testing.T) {
	env := newTestEnv(t)

	req := policyRequest("doc-1")
	req.Content = "   \n\t  "
	_, err := env.pipeline.Ingest(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	// Nothing was written.
	_, err = env.store.GetDocument(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngest_ReuploadSupersedesPriorVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.pipeline.Ingest(ctx, policyRequest("remote-work"))
	require.NoError(t, err)

	oldChunks, err := env.store.GetChunks(ctx, "remote-work", 1)
	require.NoError(t, err)
	require.NotEmpty(t, oldChunks)

	updated := policyRequest("remote-work")
	updated.Content = "Remote work is now allowed five days per week for all county staff. " +
		"Supervisor approval is no longer required for standard schedules."
	second, err := env.pipeline.Ingest(ctx, updated)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)

	// Reads see only the new version.
	doc, err := env.store.GetDocument(ctx, "remote-work")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Version)

	for _, chunk := range oldChunks {
		_, err := env.store.GetChunk(ctx, chunk.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}

	// Superseded vectors are out of the index.
	assert.Equal(t, second.Chunks, env.index.LiveCount())
	for _, id := range env.index.LiveIDs() {
		chunk, err := env.store.GetChunk(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, chunk.Version)
	}
}

func TestIngest_EmbeddingOutageRetriesThenSucceeds(t *testing.T) {
	env := newTestEnv(t)

	env.embedder.failNext(2)
	job, err := env.pipeline.Ingest(context.Background(), policyRequest("doc-1"))
	require.NoError(t, err)

	assert.Equal(t, domain.IngestStateCommitted, job.State)
	assert.Equal(t, 3, env.embedder.callCount())
}

func TestIngest_EmbeddingOutageExhaustsRetries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.embedder.failNext(10)
	job, err := env.pipeline.Ingest(ctx, policyRequest("doc-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	require.NotNil(t, job)
	assert.Equal(t, domain.IngestStateFailed, job.State)
	assert.NotEmpty(t, job.Reason)

	// No partial state: the version number is free again.
	v, err := env.store.NextVersion(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 0, env.index.LiveCount())
}

func TestIngest_FailedReuploadKeepsPriorVersionQueryable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.pipeline.Ingest(ctx, policyRequest("remote-work"))
	require.NoError(t, err)

	env.embedder.failNext(10)
	_, err = env.pipeline.Ingest(ctx, policyRequest("remote-work"))
	require.Error(t, err)

	// The committed version is untouched.
	doc, err := env.store.GetDocument(ctx, "remote-work")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)

	chunks, err := env.store.GetChunks(ctx, "remote-work", 1)
	require.NoError(t, err)
	assert.Len(t, chunks, first.Chunks)
	assert.Equal(t, first.Chunks, env.index.LiveCount())
}

func TestIngest_DimensionDriftRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.pipeline.Ingest(ctx, policyRequest("doc-1"))
	require.NoError(t, err)
	before := env.index.LiveCount()

	// A second pipeline with a differently sized embedder against the
	// same index simulates embedder configuration drift.
	chunk, err := chunker.NewFixedWindow(40, 10)
	require.NoError(t, err)
	drifted := NewIngestPipeline(env.store, env.index, newStubEmbedder(16), chunk)

	_, err = drifted.Ingest(ctx, policyRequest("doc-2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	// The failed document left nothing behind.
	_, err = env.store.GetDocument(ctx, "doc-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, before, env.index.LiveCount())
}

func TestIngest_SameIDIsSerialised(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.pipeline.Ingest(ctx, policyRequest("remote-work"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// All four committed in some order; the corpus holds exactly the
	// latest version's chunks.
	doc, err := env.store.GetDocument(ctx, "remote-work")
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Version)

	chunks, err := env.store.GetChunks(ctx, "remote-work", 4)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), env.index.LiveCount())
}

func TestIngest_StatusTracksLastAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.pipeline.Status(ctx, "never-seen")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.pipeline.Ingest(ctx, policyRequest("doc-1"))
	require.NoError(t, err)

	job, err := env.pipeline.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestStateCommitted, job.State)

	env.embedder.failNext(10)
	_, err = env.pipeline.Ingest(ctx, policyRequest("doc-1"))
	require.Error(t, err)

	job, err = env.pipeline.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestStateFailed, job.State)
	assert.Contains(t, job.Reason, "embedding")
}

func TestIngest_LongDocumentChunksWithOverlap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := policyRequest("long-doc")
	req.Content = strings.Repeat("County ordinance text section. ", 50)

	job, err := env.pipeline.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Greater(t, job.Chunks, 10)

	chunks, err := env.store.GetChunks(ctx, "long-doc", 1)
	require.NoError(t, err)
	for i := 1; i < len(chunks); i++ {
		assert.True(t, chunks[i].Overlap)
		assert.Less(t, chunks[i].StartOffset, chunks[i-1].EndOffset,
			"consecutive chunks share text")
	}
}
