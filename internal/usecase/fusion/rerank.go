package fusion

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

// PairScorer scores (query, title) pairs and returns one raw logit per
// title, in input order.
type PairScorer interface {
	ScorePairs(ctx context.Context, query string, titles []string) ([]float64, error)
}

// Rerank fuses by union then re-scores the pool with a cross-encoder.
// Dense hits enter the pool first, so on a dense/sparse tie for the last
// slot the dense hit wins.
type Rerank struct {
	scorer PairScorer
	pool   int
}

// NewRerank creates a cross-encoder fuser with the given pool size.
func NewRerank(scorer PairScorer, pool int) *Rerank {
	return &Rerank{scorer: scorer, pool: pool}
}

// Fuse deduplicates the union of both rankings, bounds it to the pool size
// and orders it by cross-encoder score. Logits map through a sigmoid so
// scores land in (0, 1). A scorer failure fails the whole fusion.
func (f *Rerank) Fuse(ctx context.Context, q domain.Query, dense, sparse domain.CandidateSet) (domain.CandidateSet, error) {
	pool := union(dense, sparse).Truncate(f.pool)
	if len(pool) == 0 {
		return nil, nil
	}

	titles := make([]string, len(pool))
	for i := range pool {
		titles[i] = pool[i].Title
	}

	// The cross-encoder scores the raw query text, not the normalized form.
	logits, err := f.scorer.ScorePairs(ctx, q.Raw(), titles)
	if err != nil {
		return nil, fmt.Errorf("rerank pool: %w: %w", domain.ErrDownstreamService, err)
	}
	if len(logits) != len(pool) {
		return nil, fmt.Errorf("rerank pool: %d scores for %d pairs: %w",
			len(logits), len(pool), domain.ErrDownstreamService)
	}

	for i := range pool {
		pool[i].Rerank = sigmoid(logits[i])
	}

	// Equal scores break by candidate ID, same rule as RRF.
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Rerank != pool[j].Rerank {
			return pool[i].Rerank > pool[j].Rerank
		}
		return pool[i].ID < pool[j].ID
	})

	return pool, nil
}

// union concatenates both rankings keeping first occurrence per ID.
func union(dense, sparse domain.CandidateSet) domain.CandidateSet {
	out := make(domain.CandidateSet, 0, len(dense)+len(sparse))
	seen := make(map[string]int, len(dense)+len(sparse))

	for _, c := range dense {
		seen[c.ID] = len(out)
		out = append(out, c)
	}
	for _, c := range sparse {
		if i, ok := seen[c.ID]; ok {
			out[i].Sparse = c.Sparse
			continue
		}
		seen[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
