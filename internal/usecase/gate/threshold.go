package gate

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

// Threshold accepts when the best candidate clears a minimum score, and
// keeps the top candidates above it. Used by the ranking pipeline where
// the reranker score is already calibrated to (0, 1).
type Threshold struct {
	minScore float64
	topK     int
}

// NewThreshold creates a threshold gate.
func NewThreshold(minScore float64, topK int) *Threshold {
	return &Threshold{minScore: minScore, topK: topK}
}

// Decide keeps candidates scoring at or above the minimum, bounded to topK.
// The input set must already be ordered best-first.
func (g *Threshold) Decide(_ context.Context, _ domain.Query, set domain.CandidateSet) (domain.Decision, domain.CandidateSet, error) {
	kept := make(domain.CandidateSet, 0, len(set))
	for _, c := range set {
		if c.Rerank >= g.minScore {
			kept = append(kept, c)
		}
	}
	kept = kept.Truncate(g.topK)

	if len(kept) == 0 {
		return domain.Decision{
			Outcome:   domain.Rejected,
			Rationale: fmt.Sprintf("no candidate scored at or above %.2f", g.minScore),
			Kind:      domain.KindThreshold,
		}, nil, nil
	}

	return domain.Decision{
		Outcome:     domain.Accepted,
		CandidateID: kept[0].ID,
		Rationale:   fmt.Sprintf("%d candidate(s) above %.2f", len(kept), g.minScore),
		Kind:        domain.KindThreshold,
	}, kept, nil
}
