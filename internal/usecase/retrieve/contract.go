package retrieve

import (
	"context"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

// Vectorizer produces both query representations.
type Vectorizer interface {
	Vectorize(ctx context.Context, q domain.Query) ([]float32, domain.SparseVector, error)
}

// Repository reads candidates from the catalog, one method per representation.
type Repository interface {
	Dense(ctx context.Context, vector []float32, k int) (domain.CandidateSet, error)
	Sparse(ctx context.Context, sv domain.SparseVector, k int) (domain.CandidateSet, error)
}
