// Package embedding provides shared helpers for embedding adapters.
package embedding

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driven"
)

// Ensure Throttled implements the interface.
var _ driven.EmbeddingService = (*Throttled)(nil)

// DefaultRate is the default sustained embed calls per second.
const DefaultRate = 5.0

// DefaultBurst is the default burst size.
const DefaultBurst = 10

// Throttled wraps an EmbeddingService with a token-bucket rate limit so
// batch ingestion cannot saturate a shared model endpoint. Each text in
// a batch consumes one token.
type Throttled struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
}

// NewThrottled wraps svc with the given sustained rate and burst.
// Non-positive values fall back to the defaults.
func NewThrottled(svc driven.EmbeddingService, perSecond float64, burst int) *Throttled {
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &Throttled{
		inner:   svc,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Embed waits for a token, then delegates.
func (t *Throttled) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Embed(ctx, text)
}

// EmbedBatch waits for one token per text, then delegates the whole
// batch so the adapter can still use its native batch API.
func (t *Throttled) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for range texts {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return t.inner.EmbedBatch(ctx, texts)
}

// Dimensions returns the wrapped service's vector size.
func (t *Throttled) Dimensions() int {
	return t.inner.Dimensions()
}

// ModelName returns the wrapped service's model name.
func (t *Throttled) ModelName() string {
	return t.inner.ModelName()
}

// Ping delegates without consuming a token.
func (t *Throttled) Ping(ctx context.Context) error {
	return t.inner.Ping(ctx)
}

// Close closes the wrapped service.
func (t *Throttled) Close() error {
	return t.inner.Close()
}
