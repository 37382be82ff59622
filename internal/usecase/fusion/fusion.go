// Package fusion merges the two candidate rankings into one.
package fusion

import (
	"context"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

// Fuser merges the dense and sparse rankings into one ordered candidate set
// of at most the configured size.
type Fuser interface {
	Fuse(ctx context.Context, q domain.Query, dense, sparse domain.CandidateSet) (domain.CandidateSet, error)
}
