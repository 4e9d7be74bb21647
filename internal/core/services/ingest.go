package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driven"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driving"
	"github.com/SerialSamurai/BUTLER-NEW/internal/logger"
)

// Ensure IngestPipeline implements the interface.
var _ driving.IngestService = (*IngestPipeline)(nil)

// Embedding retry policy for transient collaborator outages.
const (
	defaultEmbedAttempts = 3
	defaultEmbedBackoff  = 500 * time.Millisecond
)

// IngestPipeline runs the ingestion state machine: chunk, embed, store,
// index, then commit. A document version becomes visible to queries only
// at commit; any earlier failure rolls the attempted version back so the
// prior committed version stays queryable throughout.
//
// Ingestions for the same document ID are serialised with a per-ID lock.
// Different IDs proceed concurrently.
type IngestPipeline struct {
	store    driven.DocumentStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	chunker  driven.Chunker

	embedAttempts int
	embedBackoff  time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	jobsMu sync.RWMutex
	jobs   map[string]*domain.IngestJob
}

// NewIngestPipeline creates the ingestion pipeline.
func NewIngestPipeline(
	store driven.DocumentStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	chunker driven.Chunker,
) *IngestPipeline {
	return &IngestPipeline{
		store:         store,
		index:         index,
		embedder:      embedder,
		chunker:       chunker,
		embedAttempts: defaultEmbedAttempts,
		embedBackoff:  defaultEmbedBackoff,
		locks:         make(map[string]*sync.Mutex),
		jobs:          make(map[string]*domain.IngestJob),
	}
}

// SetEmbedRetry overrides the embedding retry policy. Non-positive
// values keep the current setting.
func (p *IngestPipeline) SetEmbedRetry(attempts int, backoff time.Duration) {
	if attempts > 0 {
		p.embedAttempts = attempts
	}
	if backoff > 0 {
		p.embedBackoff = backoff
	}
}

// Ingest runs one document through the pipeline. On success the returned
// job is in the committed state and carries the assigned document ID and
// version. On failure the attempted version is rolled back and the job
// carries the failure reason.
func (p *IngestPipeline) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestJob, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: document has no extracted text", domain.ErrInvalidConfig)
	}

	docID := req.DocumentID
	if docID == "" {
		docID = uuid.New().String()
	}

	// Serialise writers to the same logical document. Versions must be
	// assigned and committed in order.
	lock := p.lockFor(docID)
	lock.Lock()
	defer lock.Unlock()

	job := &domain.IngestJob{DocumentID: docID, State: domain.IngestStateReceived}
	p.setJob(job)

	logger.Section("Ingest " + docID)

	version, err := p.store.NextVersion(ctx, docID)
	if err != nil {
		return p.fail(job, fmt.Errorf("resolving version: %w", err))
	}
	job.Version = version
	logger.Debug("ingest %s: writing version %d", docID, version)

	chunks, err := p.chunker.Chunk(docID, version, req.Content)
	if err != nil {
		return p.fail(job, fmt.Errorf("chunking: %w", err))
	}
	if len(chunks) == 0 {
		return p.fail(job, fmt.Errorf("%w: chunking produced no chunks", domain.ErrInvalidConfig))
	}
	job.State = domain.IngestStateChunked
	job.Chunks = len(chunks)
	p.setJob(job)
	logger.Debug("ingest %s: %d chunks (strategy %s)", docID, len(chunks), p.chunker.Name())

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := p.embedWithRetry(ctx, texts)
	if err != nil {
		return p.fail(job, fmt.Errorf("embedding: %w", err))
	}
	if len(vectors) != len(chunks) {
		return p.fail(job, fmt.Errorf("embedding returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	job.State = domain.IngestStateEmbedded
	p.setJob(job)

	doc := &domain.Document{
		ID:         docID,
		Title:      req.Title,
		Filename:   req.Filename,
		Department: req.Department,
		DocType:    req.DocType,
		Version:    version,
		UploadedAt: time.Now().UTC(),
		Metadata:   req.Metadata,
	}
	if err := p.store.SaveDocument(ctx, doc); err != nil {
		return p.fail(job, fmt.Errorf("saving document: %w", err))
	}
	if err := p.store.SaveChunks(ctx, docID, version, chunks); err != nil {
		p.rollback(ctx, docID, version, nil)
		return p.fail(job, fmt.Errorf("saving chunks: %w", err))
	}

	indexed := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if err := p.index.Add(ctx, chunk.ID, chunk.Embedding); err != nil {
			if errors.Is(err, domain.ErrDimensionMismatch) {
				logger.Warn("ingest %s: %v", docID, err)
			}
			p.rollback(ctx, docID, version, indexed)
			return p.fail(job, fmt.Errorf("indexing chunk %d: %w", chunk.Position, err))
		}
		indexed = append(indexed, chunk.ID)
	}
	job.State = domain.IngestStateIndexed
	p.setJob(job)

	// Collect the chunks of prior committed versions before committing;
	// their vectors come out of the index once the new version is live.
	priorChunks := p.priorChunkIDs(ctx, docID, version)

	if err := p.store.CommitVersion(ctx, docID, version); err != nil {
		p.rollback(ctx, docID, version, indexed)
		return p.fail(job, fmt.Errorf("committing version: %w", err))
	}
	job.State = domain.IngestStateCommitted
	p.setJob(job)

	// Supersede prior versions only after the new one is committed, so a
	// commit failure never leaves the document without a live version.
	for v := 1; v < version; v++ {
		if err := p.store.TombstoneVersion(ctx, docID, v); err != nil {
			logger.Warn("ingest %s: tombstoning version %d: %v", docID, v, err)
		}
	}
	for _, chunkID := range priorChunks {
		if err := p.index.Delete(ctx, chunkID); err != nil {
			logger.Warn("ingest %s: removing superseded vector %s: %v", docID, chunkID, err)
		}
	}

	if err := p.index.Save(); err != nil {
		logger.Warn("ingest %s: persisting index: %v", docID, err)
	}

	logger.Info("ingest %s: version %d committed (%d chunks)", docID, version, len(chunks))
	return p.jobCopy(docID), nil
}

// Status returns the last known job for a document ID.
func (p *IngestPipeline) Status(_ context.Context, documentID string) (*domain.IngestJob, error) {
	job := p.jobCopy(documentID)
	if job == nil {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

// embedWithRetry embeds a batch, retrying transient collaborator
// outages with exponential backoff. Other errors fail immediately.
func (p *IngestPipeline) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	backoff := p.embedBackoff
	var lastErr error

	for attempt := 1; attempt <= p.embedAttempts; attempt++ {
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return nil, err
		}
		lastErr = err

		if attempt == p.embedAttempts {
			break
		}
		logger.Debug("embedding attempt %d/%d failed, retrying in %s: %v",
			attempt, p.embedAttempts, backoff, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("after %d attempts: %w", p.embedAttempts, lastErr)
}

// priorChunkIDs returns the chunk IDs of every committed version of the
// document below the given one.
func (p *IngestPipeline) priorChunkIDs(ctx context.Context, docID string, version int) []string {
	var ids []string
	for v := 1; v < version; v++ {
		chunks, err := p.store.GetChunks(ctx, docID, v)
		if err != nil {
			logger.Warn("ingest %s: reading version %d chunks: %v", docID, v, err)
			continue
		}
		for _, chunk := range chunks {
			ids = append(ids, chunk.ID)
		}
	}
	return ids
}

// rollback undoes a failed, never-committed ingestion attempt: index
// inserts are tombstoned and the version's store records are removed.
func (p *IngestPipeline) rollback(ctx context.Context, docID string, version int, indexed []string) {
	for _, chunkID := range indexed {
		if err := p.index.Delete(ctx, chunkID); err != nil {
			logger.Warn("rollback %s: removing vector %s: %v", docID, chunkID, err)
		}
	}
	if err := p.store.DeleteVersion(ctx, docID, version); err != nil {
		logger.Warn("rollback %s: deleting version %d: %v", docID, version, err)
	}
}

// fail marks the job failed with the retained reason and returns the
// error to the caller.
func (p *IngestPipeline) fail(job *domain.IngestJob, err error) (*domain.IngestJob, error) {
	job.State = domain.IngestStateFailed
	job.Reason = err.Error()
	p.setJob(job)
	logger.Debug("ingest %s: failed: %v", job.DocumentID, err)
	return p.jobCopy(job.DocumentID), err
}

// lockFor returns the per-document lock, creating it on first use.
func (p *IngestPipeline) lockFor(docID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[docID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[docID] = lock
	}
	return lock
}

// setJob records the job state under the jobs lock.
func (p *IngestPipeline) setJob(job *domain.IngestJob) {
	p.jobsMu.Lock()
	defer p.jobsMu.Unlock()
	copied := *job
	p.jobs[job.DocumentID] = &copied
}

// jobCopy returns a copy of the recorded job, or nil if none exists.
func (p *IngestPipeline) jobCopy(docID string) *domain.IngestJob {
	p.jobsMu.RLock()
	defer p.jobsMu.RUnlock()
	job, ok := p.jobs[docID]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}
