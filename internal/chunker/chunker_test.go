package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

func TestNewFixedWindow_RejectsBadParameters(t *testing.T) {
	tests := []struct {
		name    string
		maxSize int
		overlap int
	}{
		{name: "zero size", maxSize: 0, overlap: 0},
		{name: "negative size", maxSize: -10, overlap: 0},
		{name: "overlap equals size", maxSize: 100, overlap: 100},
		{name: "overlap exceeds size", maxSize: 100, overlap: 150},
		{name: "negative overlap", maxSize: 100, overlap: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFixedWindow(tt.maxSize, tt.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestFixedWindow_EmptyTextProducesNoChunks(t *testing.T) {
	fw, err := NewFixedWindow(100, 20)
	require.NoError(t, err)

	chunks, err := fw.Chunk("doc-1", 1, "")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestFixedWindow_ShortTextIsOneChunk(t *testing.T) {
	fw, err := NewFixedWindow(100, 20)
	require.NoError(t, err)

	chunks, err := fw.Chunk("doc-1", 1, "hello world")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 11, chunks[0].EndOffset)
	assert.Equal(t, "hello world", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Position)
	assert.False(t, chunks[0].Overlap)
}

func TestFixedWindow_OffsetsReconstructText(t *testing.T) {
	fw, err := NewFixedWindow(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 20) // 200 chars
	chunks, err := fw.Chunk("doc-1", 1, text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i := range chunks {
		assert.Equal(t, text[chunks[i].StartOffset:chunks[i].EndOffset], chunks[i].Content,
			"chunk %d content must equal its offset slice", i)
		assert.Equal(t, i, chunks[i].Position)
	}

	// Last chunk ends exactly at the end of the text.
	assert.Equal(t, len(text), chunks[len(chunks)-1].EndOffset)
}

func TestFixedWindow_ConsecutiveChunksShareExactOverlap(t *testing.T) {
	fw, err := NewFixedWindow(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("x", 145)
	chunks, err := fw.Chunk("doc-1", 1, text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		shared := chunks[i-1].EndOffset - chunks[i].StartOffset
		if chunks[i].EndOffset == len(text) && shared > 10 {
			// Final truncated window may sit deeper inside the previous one.
			continue
		}
		assert.Equal(t, 10, shared, "chunks %d and %d", i-1, i)
		assert.True(t, chunks[i].Overlap)
	}
	assert.False(t, chunks[0].Overlap)
}

func TestFixedWindow_NoOverlapFlagWhenOverlapZero(t *testing.T) {
	fw, err := NewFixedWindow(50, 0)
	require.NoError(t, err)

	chunks, err := fw.Chunk("doc-1", 1, strings.Repeat("y", 120))
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i := range chunks {
		assert.False(t, chunks[i].Overlap)
	}
	// Windows abut exactly.
	assert.Equal(t, chunks[0].EndOffset, chunks[1].StartOffset)
	assert.Equal(t, chunks[1].EndOffset, chunks[2].StartOffset)
}

func TestFixedWindow_DeterministicOffsets(t *testing.T) {
	fw, err := NewFixedWindow(60, 15)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox. ", 30)
	first, err := fw.Chunk("doc-1", 1, text)
	require.NoError(t, err)
	second, err := fw.Chunk("doc-1", 2, text)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].StartOffset, second[i].StartOffset)
		assert.Equal(t, first[i].EndOffset, second[i].EndOffset)
		assert.Equal(t, first[i].Content, second[i].Content)
		// IDs are fresh per run; versions differ.
		assert.NotEqual(t, first[i].ID, second[i].ID)
	}
}

func TestFixedWindow_ChunksCarryDocumentIdentity(t *testing.T) {
	fw, err := NewFixedWindow(30, 5)
	require.NoError(t, err)

	chunks, err := fw.Chunk("policy-42", 3, strings.Repeat("z", 80))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	seen := make(map[string]bool)
	for i := range chunks {
		assert.Equal(t, "policy-42", chunks[i].DocumentID)
		assert.Equal(t, 3, chunks[i].Version)
		assert.NotEmpty(t, chunks[i].ID)
		assert.False(t, seen[chunks[i].ID], "chunk IDs must be unique")
		seen[chunks[i].ID] = true
	}
}
