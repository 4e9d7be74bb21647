package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driven"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driving"
	"github.com/SerialSamurai/BUTLER-NEW/internal/logger"
)

// Ensure QueryEngine implements the interface.
var _ driving.QueryService = (*QueryEngine)(nil)

const (
	// DefaultK is the result count when the caller asks for zero.
	DefaultK = 5

	// MaxK caps the result count; larger requests are clamped.
	MaxK = 50

	// Oversampling factors compensate for hits dropped during
	// hydration and filtering.
	oversampleFiltered   = 3
	oversampleUnfiltered = 2

	// snippetLimit bounds the displayed passage text.
	snippetLimit = 200
)

// QueryEngine answers natural-language queries: embed the text, search
// the vector index with oversampling, hydrate hits from the document
// store, apply metadata filters and truncate to k.
type QueryEngine struct {
	store    driven.DocumentStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
}

// NewQueryEngine creates the query engine.
func NewQueryEngine(
	store driven.DocumentStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
) *QueryEngine {
	return &QueryEngine{store: store, index: index, embedder: embedder}
}

// Query returns up to opts.K passages ranked by cosine similarity.
// An empty result set is valid and means no relevant passages exist.
func (e *QueryEngine) Query(ctx context.Context, text string, opts domain.QueryOptions) ([]domain.QueryResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is empty", domain.ErrInvalidConfig)
	}

	k := opts.K
	if k <= 0 {
		k = DefaultK
	}
	if k > MaxK {
		k = MaxK
	}

	// Oversample so post-search hydration and filtering can drop hits
	// without starving the result set.
	oversample := oversampleUnfiltered
	if opts.Filtered() {
		oversample = oversampleFiltered
	}

	logger.Section("Query")
	logger.Debug("query: k=%d oversample=%d department=%q type=%q", k, oversample, opts.Department, opts.DocType)

	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := e.index.Search(ctx, vector, k*oversample)
	if err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			logger.Warn("query rejected: %v (embedder configuration changed? run reindex)", err)
		}
		return nil, fmt.Errorf("searching index: %w", err)
	}
	logger.Debug("query: %d candidate hits", len(hits))

	results := make([]domain.QueryResult, 0, k)
	for _, hit := range hits {
		chunk, err := e.store.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Tombstoned or deleted since indexing; skip.
				continue
			}
			return nil, fmt.Errorf("hydrating chunk %s: %w", hit.ChunkID, err)
		}

		doc, err := e.store.GetDocument(ctx, chunk.DocumentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("hydrating document %s: %w", chunk.DocumentID, err)
		}
		if doc.Version != chunk.Version {
			// Superseded chunk whose tombstone has not landed yet.
			continue
		}

		if opts.Department != "" && !strings.EqualFold(doc.Department, opts.Department) {
			continue
		}
		if opts.DocType != "" && !strings.EqualFold(doc.DocType, opts.DocType) {
			continue
		}

		results = append(results, domain.QueryResult{
			ChunkID:     chunk.ID,
			DocumentID:  doc.ID,
			Title:       doc.Title,
			Department:  doc.Department,
			DocType:     doc.DocType,
			Version:     chunk.Version,
			Score:       hit.Similarity,
			Snippet:     snippet(chunk.Content),
			StartOffset: chunk.StartOffset,
			EndOffset:   chunk.EndOffset,
		})
		if len(results) == k {
			break
		}
	}

	logger.Debug("query: returning %d results", len(results))
	return results, nil
}

// snippet truncates passage text for display, backing up to a rune
// boundary so the cut never produces invalid UTF-8.
func snippet(content string) string {
	if len(content) <= snippetLimit {
		return content
	}
	cut := snippetLimit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}
