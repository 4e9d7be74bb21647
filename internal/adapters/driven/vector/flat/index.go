// Package flat provides a brute-force vector index with tombstone
// deletes and snapshot persistence. It scans every live vector on
// search, which makes it the correctness baseline for the VectorIndex
// port: results are exact, ordered by cosine similarity with ties
// broken by insertion order.
package flat

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// entry is one (chunk id, vector, liveness) record. Vectors are stored
// L2-normalised so search is a dot product.
type entry struct {
	ID     string
	Vector []float32
	Live   bool
}

// snapshot is the on-disk representation.
type snapshot struct {
	Dimension int
	Entries   []entry
}

// Index is a flat, in-memory vector index persisted as a gob snapshot.
// The zero dimensionality is established by the first successful Add.
type Index struct {
	mu        sync.RWMutex
	path      string
	dimension int
	entries   []entry
	byID      map[string]int
	closed    bool
}

// New creates or opens a flat index. If path is empty the index is
// memory-only and Save is a no-op. An existing snapshot at path is
// loaded, re-establishing dimensionality and insertion order.
func New(path string) (*Index, error) {
	idx := &Index{
		path: path,
		byID: make(map[string]int),
	}

	if path == "" {
		return idx, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening index snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding index snapshot: %w", err)
	}

	idx.dimension = snap.Dimension
	idx.entries = snap.Entries
	for i := range idx.entries {
		idx.byID[idx.entries[i].ID] = i
	}

	return idx, nil
}

// Add inserts a vector for the given chunk ID. The first successful
// insert establishes the index dimensionality; vectors of any other
// length fail with domain.ErrDimensionMismatch. Re-adding an existing
// ID replaces its vector. The insert is atomic with respect to
// concurrent searches.
func (idx *Index) Add(_ context.Context, chunkID string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty vector for chunk %s", domain.ErrDimensionMismatch, chunkID)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return domain.ErrIndexClosed
	}

	if idx.dimension == 0 {
		idx.dimension = len(embedding)
	} else if len(embedding) != idx.dimension {
		return fmt.Errorf("%w: got %d, index dimensionality is %d",
			domain.ErrDimensionMismatch, len(embedding), idx.dimension)
	}

	vec := normalise(embedding)

	if i, ok := idx.byID[chunkID]; ok {
		idx.entries[i].Vector = vec
		idx.entries[i].Live = true
		return nil
	}

	idx.entries = append(idx.entries, entry{ID: chunkID, Vector: vec, Live: true})
	idx.byID[chunkID] = len(idx.entries) - 1
	return nil
}

// Delete tombstones a vector. Deleting an unknown or already-deleted
// ID is a no-op, not an error.
func (idx *Index) Delete(_ context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return domain.ErrIndexClosed
	}

	if i, ok := idx.byID[chunkID]; ok {
		idx.entries[i].Live = false
	}
	return nil
}

// Search scans all live vectors and returns the k most similar to the
// query, highest cosine similarity first. Ties are broken by insertion
// order (earlier-inserted wins). The query is normalised internally.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, domain.ErrIndexClosed
	}
	if idx.dimension == 0 {
		return nil, nil
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), idx.dimension)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := normalise(query)

	type scored struct {
		order int
		sim   float64
	}

	hits := make([]scored, 0, len(idx.entries))
	for i := range idx.entries {
		if !idx.entries[i].Live {
			continue
		}
		hits = append(hits, scored{order: i, sim: dot(q, idx.entries[i].Vector)})
	}

	// Stable sort on descending similarity keeps insertion order for ties.
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].sim > hits[b].sim
	})

	if k > len(hits) {
		k = len(hits)
	}

	results := make([]driven.VectorHit, k)
	for i := 0; i < k; i++ {
		sim := hits[i].sim
		if sim < 0 {
			sim = 0
		}
		results[i] = driven.VectorHit{
			ChunkID:    idx.entries[hits[i].order].ID,
			Similarity: sim,
		}
	}
	return results, nil
}

// LiveCount returns the number of live entries.
func (idx *Index) LiveCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := 0
	for i := range idx.entries {
		if idx.entries[i].Live {
			n++
		}
	}
	return n
}

// LiveIDs returns the chunk IDs of all live entries in insertion order.
func (idx *Index) LiveIDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ids := make([]string, 0, len(idx.entries))
	for i := range idx.entries {
		if idx.entries[i].Live {
			ids = append(ids, idx.entries[i].ID)
		}
	}
	return ids
}

// TombstoneRatio returns the fraction of entries that are tombstoned.
func (idx *Index) TombstoneRatio() float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.entries) == 0 {
		return 0
	}
	dead := 0
	for i := range idx.entries {
		if !idx.entries[i].Live {
			dead++
		}
	}
	return float64(dead) / float64(len(idx.entries))
}

// Compact physically removes tombstoned entries, preserving insertion
// order of the survivors. Returns the number of entries removed.
func (idx *Index) Compact() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return 0
	}

	kept := idx.entries[:0]
	removed := 0
	for i := range idx.entries {
		if idx.entries[i].Live {
			kept = append(kept, idx.entries[i])
		} else {
			removed++
		}
	}
	idx.entries = kept

	idx.byID = make(map[string]int, len(idx.entries))
	for i := range idx.entries {
		idx.byID[idx.entries[i].ID] = i
	}
	if len(idx.entries) == 0 {
		idx.dimension = 0
	}
	return removed
}

// Save persists the index snapshot. The snapshot is written to a
// temporary file and renamed so a crash mid-write never corrupts the
// previous snapshot.
func (idx *Index) Save() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.saveLocked()
}

func (idx *Index) saveLocked() error {
	if idx.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(idx.path), 0700); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	tmp := idx.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("creating index snapshot: %w", err)
	}

	snap := snapshot{Dimension: idx.dimension, Entries: idx.entries}
	if err := gob.NewEncoder(f).Encode(&snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding index snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing index snapshot: %w", err)
	}

	if err := os.Rename(tmp, idx.path); err != nil {
		return fmt.Errorf("replacing index snapshot: %w", err)
	}
	return nil
}

// Close persists the snapshot and marks the index closed.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	if err := idx.saveLocked(); err != nil {
		return err
	}
	idx.closed = true
	return nil
}

// normalise returns an L2-normalised copy of v. A zero vector is
// returned unchanged (its similarity to anything is 0).
func normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}

	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
