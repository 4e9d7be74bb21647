package driving

import (
	"context"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
)

// QueryService answers natural-language queries with ranked passages.
type QueryService interface {
	// Query embeds the text, searches the vector index and returns up to
	// opts.K hydrated passages in score-descending order. An empty result
	// set is valid and means "no relevant passages found".
	Query(ctx context.Context, text string, opts domain.QueryOptions) ([]domain.QueryResult, error)
}
