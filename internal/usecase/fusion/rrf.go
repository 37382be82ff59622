package fusion

import (
	"context"
	"sort"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// RRF fuses rankings via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
type RRF struct {
	topK int
}

// NewRRF creates an RRF fuser bounded to topK candidates.
func NewRRF(topK int) *RRF {
	return &RRF{topK: topK}
}

// Fuse merges dense and sparse rankings. Purely rank-based, so the raw
// per-representation scores only survive as annotations on the output.
// Ties break by ID so the ordering is deterministic.
func (f *RRF) Fuse(_ context.Context, _ domain.Query, dense, sparse domain.CandidateSet) (domain.CandidateSet, error) {
	merged := make(map[string]*domain.Candidate)

	for rank := range dense {
		c := dense[rank]
		c.Fused = 1.0 / float64(rrfK+rank+1)
		merged[c.ID] = &c
	}

	for rank := range sparse {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[sparse[rank].ID]; ok {
			existing.Fused += s
			existing.Sparse = sparse[rank].Sparse
		} else {
			c := sparse[rank]
			c.Fused = s
			merged[c.ID] = &c
		}
	}

	out := make(domain.CandidateSet, 0, len(merged))
	for _, c := range merged {
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Fused != out[j].Fused {
			return out[i].Fused > out[j].Fused
		}
		return out[i].ID < out[j].ID
	})

	return out.Truncate(f.topK), nil
}
