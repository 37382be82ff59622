// Package gate turns a fused candidate set into a terminal decision.
package gate

import (
	"context"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

// Gate produces exactly one decision per query. The returned candidate set
// is the (possibly reduced) set the decision applies to; it is what the
// response and trace carry.
type Gate interface {
	Decide(ctx context.Context, q domain.Query, set domain.CandidateSet) (domain.Decision, domain.CandidateSet, error)
}
