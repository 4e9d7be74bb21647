package driven

import "github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"

// Chunker splits extracted document text into ordered, offset-addressable
// chunks. Implementations must be deterministic: unchanged text with
// unchanged parameters reproduces identical offsets and content.
type Chunker interface {
	// Name returns the strategy name used in configuration.
	Name() string

	// Chunk splits text into ordered chunks carrying exact source
	// offsets. Empty text produces no chunks.
	Chunk(documentID string, version int, text string) ([]domain.Chunk, error)
}
