// Package memory provides in-memory implementations of driven ports,
// used in tests and as a reference for the port semantics.
package memory

import (
	"context"
	"sync"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// versionKey identifies one document version.
type versionKey struct {
	id      string
	version int
}

// versionState holds one stored document version and its chunks.
type versionState struct {
	doc        domain.Document
	chunks     []domain.Chunk
	committed  bool
	tombstoned bool
}

// DocumentStore is an in-memory implementation of driven.DocumentStore
// with the same visibility rules as the SQLite store: chunks are hidden
// until their version is committed, and reads exclude tombstones.
type DocumentStore struct {
	mu       sync.RWMutex
	versions map[versionKey]*versionState
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		versions: make(map[versionKey]*versionState),
	}
}

// SaveDocument stores a document version record, initially uncommitted.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[versionKey{doc.ID, doc.Version}] = &versionState{doc: *doc}
	return nil
}

// NextVersion returns the next version number for a logical ID.
func (s *DocumentStore) NextVersion(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	max := 0
	for key := range s.versions {
		if key.id == documentID && key.version > max {
			max = key.version
		}
	}
	return max + 1, nil
}

// SaveChunks stores all chunks of one document version.
func (s *DocumentStore) SaveChunks(_ context.Context, documentID string, version int, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.versions[versionKey{documentID, version}]
	if !ok {
		return domain.ErrNotFound
	}
	state.chunks = append([]domain.Chunk(nil), chunks...)
	return nil
}

// CommitVersion atomically makes a version's chunks visible.
func (s *DocumentStore) CommitVersion(_ context.Context, documentID string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.versions[versionKey{documentID, version}]
	if !ok {
		return domain.ErrNotFound
	}
	state.committed = true
	return nil
}

// GetDocument retrieves the latest committed, live version of a document.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *versionState
	for key, state := range s.versions {
		if key.id != id || !state.committed || state.tombstoned {
			continue
		}
		if best == nil || state.doc.Version > best.doc.Version {
			best = state
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	doc := best.doc
	return &doc, nil
}

// GetChunk retrieves a committed, live chunk by ID.
func (s *DocumentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, state := range s.versions {
		if !state.committed || state.tombstoned {
			continue
		}
		for i := range state.chunks {
			if state.chunks[i].ID == id {
				chunk := state.chunks[i]
				return &chunk, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// GetChunks retrieves the live chunks of one document version.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string, version int) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.versions[versionKey{documentID, version}]
	if !ok || !state.committed || state.tombstoned {
		return nil, nil
	}
	return append([]domain.Chunk(nil), state.chunks...), nil
}

// TombstoneDocument marks all versions of a document unavailable.
func (s *DocumentStore) TombstoneDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, state := range s.versions {
		if key.id == documentID {
			state.tombstoned = true
		}
	}
	return nil
}

// TombstoneVersion marks one version unavailable.
func (s *DocumentStore) TombstoneVersion(_ context.Context, documentID string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.versions[versionKey{documentID, version}]; ok {
		state.tombstoned = true
	}
	return nil
}

// DeleteVersion physically removes one version's records.
func (s *DocumentStore) DeleteVersion(_ context.Context, documentID string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.versions, versionKey{documentID, version})
	return nil
}

// ListDocuments returns the latest committed version of every live
// document.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := make(map[string]*versionState)
	for key, state := range s.versions {
		if !state.committed || state.tombstoned {
			continue
		}
		if cur, ok := latest[key.id]; !ok || state.doc.Version > cur.doc.Version {
			latest[key.id] = state
		}
	}
	docs := make([]domain.Document, 0, len(latest))
	for _, state := range latest {
		docs = append(docs, state.doc)
	}
	return docs, nil
}

// LiveChunks returns every committed, live chunk across all documents.
func (s *DocumentStore) LiveChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var chunks []domain.Chunk
	for _, state := range s.versions {
		if !state.committed || state.tombstoned {
			continue
		}
		chunks = append(chunks, state.chunks...)
	}
	return chunks, nil
}

// UpdateChunkEmbeddings replaces the stored embeddings of existing
// chunks, matched by chunk ID.
func (s *DocumentStore) UpdateChunkEmbeddings(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[string][]float32, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.ID] = chunk.Embedding
	}
	for _, state := range s.versions {
		for i := range state.chunks {
			if embedding, ok := byID[state.chunks[i].ID]; ok {
				state.chunks[i].Embedding = embedding
			}
		}
	}
	return nil
}

// Close releases resources.
func (s *DocumentStore) Close() error {
	return nil
}
