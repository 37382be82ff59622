package domain

import (
	"fmt"
	"math"
)

// DefaultDenseDimensions is the dense embedding size used when the
// vectorizer config does not override it.
const DefaultDenseDimensions = 384

// SparseFeatureSpace is the fixed hashed feature space for sparse vectors.
// Sized so that collisions stay statistically rare at catalog scale
// (tens of thousands of distinct terms).
const SparseFeatureSpace = 30000

// SparseVector is a term-weight vector over the hashed feature space.
// Indices are unique and ascending; weights are non-negative.
type SparseVector struct {
	Indices []uint32
	Weights []float32
}

// Len returns the number of populated features.
func (v SparseVector) Len() int { return len(v.Indices) }

// IsZero reports whether the vector has no populated features.
func (v SparseVector) IsZero() bool { return len(v.Indices) == 0 }

// Validate checks the sparse vector invariants: matching lengths,
// strictly ascending indices within the feature space, non-negative weights.
func (v SparseVector) Validate() error {
	if len(v.Indices) != len(v.Weights) {
		return fmt.Errorf("sparse vector: %d indices vs %d weights", len(v.Indices), len(v.Weights))
	}
	for i, idx := range v.Indices {
		if idx >= SparseFeatureSpace {
			return fmt.Errorf("sparse vector: index %d outside feature space", idx)
		}
		if i > 0 && idx <= v.Indices[i-1] {
			return fmt.Errorf("sparse vector: indices not strictly ascending at position %d", i)
		}
		if v.Weights[i] < 0 {
			return fmt.Errorf("sparse vector: negative weight at index %d", idx)
		}
	}
	return nil
}

// NormalizeDense scales a dense vector to unit length in place so that the
// store's cosine distance behaves as pure angular similarity. A zero vector
// is left untouched.
func NormalizeDense(v []float32) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
