package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

// recordingIngest captures ingestion requests.
type recordingIngest struct {
	mu       sync.Mutex
	requests []domain.IngestRequest
}

func (r *recordingIngest) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return &domain.IngestJob{
		DocumentID: req.DocumentID,
		Version:    len(r.requests),
		State:      domain.IngestStateCommitted,
		Chunks:     1,
	}, nil
}

func (r *recordingIngest) Status(_ context.Context, _ string) (*domain.IngestJob, error) {
	return nil, domain.ErrNotFound
}

func (r *recordingIngest) snapshot() []domain.IngestRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.IngestRequest(nil), r.requests...)
}

func (r *recordingIngest) waitFor(t *testing.T, n int) []domain.IngestRequest {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if reqs := r.snapshot(); len(reqs) >= n {
			return reqs
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d ingestions, have %d", n, len(r.snapshot()))
	return nil
}

func TestNew_RejectsMissingDirectory(t *testing.T) {
	ingest := &recordingIngest{}

	_, err := New(ingest, filepath.Join(t.TempDir(), "nope"), "HR", "policy")
	assert.Error(t, err)
}

func TestNew_RejectsFile(t *testing.T) {
	ingest := &recordingIngest{}
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	_, err := New(ingest, path, "HR", "policy")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestWatcher_IngestsExistingFilesAtStartup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handbook.txt"), []byte("employee handbook"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.pdf"), []byte("binary"), 0600))

	ingest := &recordingIngest{}
	w, err := New(ingest, dir, "HR", "policy")
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	reqs := ingest.waitFor(t, 1)
	cancel()
	<-done

	require.Len(t, reqs, 1)
	assert.Equal(t, "handbook", reqs[0].DocumentID)
	assert.Equal(t, "handbook.txt", reqs[0].Filename)
	assert.Equal(t, "HR", reqs[0].Department)
	assert.Equal(t, "policy", reqs[0].DocType)
	assert.Equal(t, "employee handbook", reqs[0].Content)
}

func TestWatcher_IngestsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	ingest := &recordingIngest{}

	w, err := New(ingest, dir, "Finance", "form")
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watch loop a moment to register.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "budget.md"), []byte("budget form"), 0600))

	reqs := ingest.waitFor(t, 1)
	cancel()
	<-done

	assert.Equal(t, "budget", reqs[0].DocumentID)
	assert.Equal(t, "budget form", reqs[0].Content)
}

func TestWatcher_DebouncesWriteBursts(t *testing.T) {
	dir := t.TempDir()
	ingest := &recordingIngest{}

	w, err := New(ingest, dir, "", "")
	require.NoError(t, err)
	w.SetDebounce(150 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(dir, "notes.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("draft content"), 0600))
		time.Sleep(20 * time.Millisecond)
	}

	reqs := ingest.waitFor(t, 1)
	// Allow a potential stray second flush, then confirm the burst
	// collapsed into at most one extra ingestion.
	time.Sleep(300 * time.Millisecond)
	reqs = ingest.snapshot()
	cancel()
	<-done

	assert.LessOrEqual(t, len(reqs), 2, "burst of writes must be debounced")
	assert.Equal(t, "notes", reqs[0].DocumentID)
}
