// Package chunker splits extracted document text into overlapping,
// offset-addressable passages for embedding and retrieval.
package chunker

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

// DefaultMaxSize is the default number of characters per chunk.
const DefaultMaxSize = 500

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 100

// FixedWindow advances a window of maxSize characters across the text;
// each subsequent window starts maxSize-overlap after the previous one,
// so consecutive chunks share exactly overlap trailing/leading
// characters. The final window is truncated to the remaining text.
// Word and sentence boundaries are not respected; the unit is a raw
// text-offset window.
type FixedWindow struct {
	maxSize int
	overlap int
}

// NewFixedWindow creates a fixed-window strategy.
// Fails with domain.ErrInvalidConfig unless 0 <= overlap < maxSize.
func NewFixedWindow(maxSize, overlap int) (*FixedWindow, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidConfig, overlap, maxSize)
	}
	return &FixedWindow{maxSize: maxSize, overlap: overlap}, nil
}

// Name returns the strategy name.
func (f *FixedWindow) Name() string {
	return "fixed"
}

// Chunk splits text into fixed-size overlapping windows.
func (f *FixedWindow) Chunk(documentID string, version int, text string) ([]domain.Chunk, error) {
	if text == "" {
		return nil, nil
	}

	step := f.maxSize - f.overlap
	chunks := make([]domain.Chunk, 0, len(text)/step+1)

	position := 0
	for start := 0; start < len(text); start += step {
		end := start + f.maxSize
		if end > len(text) {
			end = len(text)
		}

		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			DocumentID:  documentID,
			Version:     version,
			Position:    position,
			StartOffset: start,
			EndOffset:   end,
			Content:     text[start:end],
			Overlap:     position > 0 && f.overlap > 0,
		})
		position++

		if end == len(text) {
			break
		}
	}

	return chunks, nil
}
