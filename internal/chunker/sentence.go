package chunker

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

// span is a half-open [start, end) offset range of one sentence.
type span struct {
	start int
	end   int
}

// Sentence is a boundary-aware strategy: windows grow sentence by
// sentence up to maxSize characters, so no sentence is cut mid-way
// unless it alone exceeds maxSize (then it falls back to a raw split).
// Overlap is approximate: the next window re-includes trailing
// sentences covering at least overlap characters when possible.
type Sentence struct {
	maxSize int
	overlap int
}

// NewSentence creates a sentence-boundary strategy.
// Fails with domain.ErrInvalidConfig unless 0 <= overlap < maxSize.
func NewSentence(maxSize, overlap int) (*Sentence, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidConfig, overlap, maxSize)
	}
	return &Sentence{maxSize: maxSize, overlap: overlap}, nil
}

// Name returns the strategy name.
func (s *Sentence) Name() string {
	return "sentence"
}

// Chunk splits text on sentence boundaries into overlapping windows.
func (s *Sentence) Chunk(documentID string, version int, text string) ([]domain.Chunk, error) {
	if text == "" {
		return nil, nil
	}

	sentences := s.split(text)
	var chunks []domain.Chunk

	position := 0
	i := 0
	for i < len(sentences) {
		start := sentences[i].start
		end := sentences[i].end
		j := i + 1
		for j < len(sentences) && sentences[j].end-start <= s.maxSize {
			end = sentences[j].end
			j++
		}

		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			DocumentID:  documentID,
			Version:     version,
			Position:    position,
			StartOffset: start,
			EndOffset:   end,
			Content:     text[start:end],
			Overlap:     position > 0 && s.overlap > 0,
		})
		position++

		if j >= len(sentences) {
			break
		}

		// Back up whole sentences until at least overlap characters of
		// the emitted window are re-included. Always advance by one
		// sentence to guarantee progress.
		next := j
		for next > i+1 && end-sentences[next].start < s.overlap {
			next--
		}
		i = next
	}

	return chunks, nil
}

// split finds sentence spans, treating '.', '!', '?' and '\n' as
// terminators. A sentence longer than maxSize is split at raw maxSize
// boundaries so every span fits a window.
func (s *Sentence) split(text string) []span {
	var spans []span
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			end := i + 1
			if end > start {
				spans = append(spans, s.bound(start, end)...)
			}
			start = end
		}
	}
	if start < len(text) {
		spans = append(spans, s.bound(start, len(text))...)
	}
	return spans
}

// bound splits an oversized span into maxSize pieces.
func (s *Sentence) bound(start, end int) []span {
	if end-start <= s.maxSize {
		return []span{{start: start, end: end}}
	}
	var spans []span
	for p := start; p < end; p += s.maxSize {
		q := p + s.maxSize
		if q > end {
			q = end
		}
		spans = append(spans, span{start: p, end: q})
	}
	return spans
}
