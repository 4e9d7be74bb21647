package chunker

import (
	"fmt"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driven"
)

// Compile-time checks that the built-in strategies satisfy the port.
var (
	_ driven.Chunker = (*FixedWindow)(nil)
	_ driven.Chunker = (*Sentence)(nil)
)

// BuilderFunc creates a chunker with the given window parameters.
type BuilderFunc func(maxSize, overlap int) (driven.Chunker, error)

// Registry maps strategy names to their builders, allowing the chunking
// strategy to be selected by configuration instead of hard-coded.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a registry with the built-in strategies
// ("fixed" and "sentence") pre-registered.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]BuilderFunc)}
	r.Register("fixed", func(maxSize, overlap int) (driven.Chunker, error) {
		return NewFixedWindow(maxSize, overlap)
	})
	r.Register("sentence", func(maxSize, overlap int) (driven.Chunker, error) {
		return NewSentence(maxSize, overlap)
	})
	return r
}

// Register adds a strategy builder to the registry.
// Name should match the strategy's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a strategy by name with the given window parameters.
func (r *Registry) Build(name string, maxSize, overlap int) (driven.Chunker, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown chunking strategy %q", domain.ErrInvalidConfig, name)
	}
	return builder(maxSize, overlap)
}

// Has returns true if a strategy with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered strategy names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	return names
}
