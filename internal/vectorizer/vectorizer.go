// Package vectorizer turns a normalized query into its dense and sparse
// representations.
package vectorizer

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

// Embedder abstracts the dense representation provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Vectorizer produces both representations for a query. The sparse
// side is local hashing; only the dense side can fail.
type Vectorizer struct {
	embedder Embedder
	encoder  *SparseEncoder
}

// New creates a Vectorizer from a dense embedder and a sparse encoder.
func New(embedder Embedder, encoder *SparseEncoder) *Vectorizer {
	return &Vectorizer{embedder: embedder, encoder: encoder}
}

// Vectorize returns the dense and sparse representations of q.
func (v *Vectorizer) Vectorize(ctx context.Context, q domain.Query) ([]float32, domain.SparseVector, error) {
	dense, err := v.embedder.Embed(ctx, q.Normalized())
	if err != nil {
		return nil, domain.SparseVector{}, fmt.Errorf("dense representation: %w", err)
	}
	return dense, v.encoder.Encode(q.Normalized()), nil
}
