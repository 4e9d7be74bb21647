package services

import (
	"context"
	"fmt"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driven"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driving"
	"github.com/SerialSamurai/BUTLER-NEW/internal/logger"
)

// Ensure Admin implements the interface.
var _ driving.AdminService = (*Admin)(nil)

// defaultCompactRatio is the tombstone fraction above which the
// consistency check compacts the index.
const defaultCompactRatio = 0.25

// Admin provides corpus maintenance: listing, deletion, re-indexing and
// the startup consistency check between store and index.
type Admin struct {
	store    driven.DocumentStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService

	compactRatio float64
}

// NewAdmin creates the admin service.
func NewAdmin(
	store driven.DocumentStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
) *Admin {
	return &Admin{
		store:        store,
		index:        index,
		embedder:     embedder,
		compactRatio: defaultCompactRatio,
	}
}

// SetCompactRatio overrides the tombstone fraction that triggers
// compaction during the consistency check. Non-positive values keep the
// current setting.
func (a *Admin) SetCompactRatio(ratio float64) {
	if ratio > 0 {
		a.compactRatio = ratio
	}
}

// ListDocuments returns the latest committed version of every live
// document.
func (a *Admin) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return a.store.ListDocuments(ctx)
}

// DeleteDocument tombstones all versions of a document and removes its
// chunks from the vector index. Deleting an unknown document is an
// error; deleting twice is not.
func (a *Admin) DeleteDocument(ctx context.Context, documentID string) error {
	doc, err := a.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	// Chunk IDs must be collected before the tombstone lands; tombstoned
	// chunks are invisible to reads.
	chunks, err := a.store.GetChunks(ctx, documentID, doc.Version)
	if err != nil {
		return fmt.Errorf("reading chunks: %w", err)
	}

	if err := a.store.TombstoneDocument(ctx, documentID); err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := a.index.Delete(ctx, chunk.ID); err != nil {
			logger.Warn("delete %s: removing vector %s: %v", documentID, chunk.ID, err)
		}
	}
	if err := a.index.Save(); err != nil {
		logger.Warn("delete %s: persisting index: %v", documentID, err)
	}

	logger.Info("deleted document %s (%d chunks tombstoned)", documentID, len(chunks))
	return nil
}

// Reindex re-embeds every live chunk under the current embedder
// configuration and rebuilds the vector index from scratch. The rebuild
// tolerates a dimensionality change, which normal ingestion rejects.
// Returns the number of chunks re-indexed.
func (a *Admin) Reindex(ctx context.Context) (int, error) {
	logger.Section("Reindex")

	chunks, err := a.store.LiveChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading live chunks: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	logger.Debug("reindex: re-embedding %d chunks with %s", len(chunks), a.embedder.ModelName())

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := a.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("re-embedding: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("re-embedding returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	if err := a.store.UpdateChunkEmbeddings(ctx, chunks); err != nil {
		return 0, fmt.Errorf("updating stored embeddings: %w", err)
	}

	// Empty the index before re-adding so a changed dimensionality can
	// re-establish itself on the first insert.
	for _, chunkID := range a.index.LiveIDs() {
		if err := a.index.Delete(ctx, chunkID); err != nil {
			return 0, fmt.Errorf("clearing index: %w", err)
		}
	}
	a.index.Compact()

	for _, chunk := range chunks {
		if err := a.index.Add(ctx, chunk.ID, chunk.Embedding); err != nil {
			return 0, fmt.Errorf("re-adding chunk %s: %w", chunk.ID, err)
		}
	}
	if err := a.index.Save(); err != nil {
		return 0, fmt.Errorf("persisting index: %w", err)
	}

	logger.Info("reindex: %d chunks re-embedded and re-indexed", len(chunks))
	return len(chunks), nil
}

// CheckConsistency reconciles the document store and vector index after
// a restart. The store is authoritative: vectors missing from the index
// are restored from stored embeddings, index entries without a live
// store record are tombstoned.
func (a *Admin) CheckConsistency(ctx context.Context) (*driving.ConsistencyReport, error) {
	logger.Section("Consistency check")

	chunks, err := a.store.LiveChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading live chunks: %w", err)
	}

	live := make(map[string]bool, len(chunks))
	for _, chunk := range chunks {
		live[chunk.ID] = true
	}

	report := &driving.ConsistencyReport{LiveChunks: len(chunks)}

	indexed := make(map[string]bool)
	for _, chunkID := range a.index.LiveIDs() {
		indexed[chunkID] = true
		if !live[chunkID] {
			if err := a.index.Delete(ctx, chunkID); err != nil {
				return nil, fmt.Errorf("tombstoning orphan %s: %w", chunkID, err)
			}
			report.Orphans++
		}
	}

	for _, chunk := range chunks {
		if indexed[chunk.ID] {
			continue
		}
		if len(chunk.Embedding) == 0 {
			logger.Warn("consistency: chunk %s has no stored embedding, cannot restore", chunk.ID)
			continue
		}
		if err := a.index.Add(ctx, chunk.ID, chunk.Embedding); err != nil {
			return nil, fmt.Errorf("restoring vector %s: %w", chunk.ID, err)
		}
		report.Restored++
	}

	dirty := report.Restored > 0 || report.Orphans > 0
	if dirty {
		logger.Warn("consistency: restored %d vectors, tombstoned %d orphans", report.Restored, report.Orphans)
	}

	// Compaction is deferred to this maintenance pass so synchronous
	// deletes stay cheap.
	if a.index.TombstoneRatio() >= a.compactRatio {
		report.Compacted = a.index.Compact()
		logger.Info("consistency: compacted %d tombstoned entries", report.Compacted)
		dirty = true
	}

	if dirty {
		if err := a.index.Save(); err != nil {
			return nil, fmt.Errorf("persisting index: %w", err)
		}
	}

	return report, nil
}
