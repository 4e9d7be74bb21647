package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

// stubEmbedder produces deterministic pseudo-random vectors from a text
// hash: identical text always embeds to the identical vector, so an
// exact-text query scores cosine similarity 1 against its chunk.
type stubEmbedder struct {
	dims int

	mu        sync.Mutex
	failTimes int // fail the next N batch/embed calls
	calls     int
}

func newStubEmbedder(dims int) *stubEmbedder {
	return &stubEmbedder{dims: dims}
}

// failNext makes the next n calls fail with ErrEmbeddingUnavailable.
func (s *stubEmbedder) failNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failTimes = n
}

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubEmbedder) tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failTimes > 0 {
		s.failTimes--
		return fmt.Errorf("%w: stub outage", domain.ErrEmbeddingUnavailable)
	}
	return nil
}

func (s *stubEmbedder) vector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text)) //nolint:errcheck
	state := h.Sum64() | 1

	vec := make([]float32, s.dims)
	for i := range vec {
		// xorshift keeps the sequence deterministic per text.
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		vec[i] = float32(state%2000)/1000 - 1
	}
	return vec
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if err := s.tick(); err != nil {
		return nil, err
	}
	return s.vector(text), nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if err := s.tick(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = s.vector(text)
	}
	return vectors, nil
}

func (s *stubEmbedder) Dimensions() int              { return s.dims }
func (s *stubEmbedder) ModelName() string            { return "stub" }
func (s *stubEmbedder) Ping(_ context.Context) error { return nil }
func (s *stubEmbedder) Close() error                 { return nil }
