// Package retrieve runs the dual-representation candidate fetch.
package retrieve

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skumatch/internal/domain"
	"github.com/kailas-cloud/skumatch/internal/metrics"
)

// Service fetches candidates from both representations in parallel. Each
// sub-query gets its own deadline; one that times out or fails contributes
// an empty list instead of failing the request. Only vectorization failure
// and the both-empty case are hard errors.
type Service struct {
	vectorizer Vectorizer
	repo       Repository
	fetchK     int
	subTimeout time.Duration
	logger     *zap.Logger
}

// New creates a retrieval service. fetchK bounds each sub-query;
// subTimeout is the per-sub-query deadline.
func New(v Vectorizer, repo Repository, fetchK int, subTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		vectorizer: v,
		repo:       repo,
		fetchK:     fetchK,
		subTimeout: subTimeout,
		logger:     logger,
	}
}

// Retrieve vectorizes the query and fetches candidates from both
// representations. Returns domain.ErrNoCandidates when both come back empty.
func (s *Service) Retrieve(ctx context.Context, q domain.Query) (dense, sparse domain.CandidateSet, err error) {
	vec, sv, err := s.vectorizer.Vectorize(ctx, q)
	if err != nil {
		return nil, nil, fmt.Errorf("vectorize query: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		dense = s.subQuery(ctx, "dense", func(subCtx context.Context) (domain.CandidateSet, error) {
			return s.repo.Dense(subCtx, vec, s.fetchK)
		})
	}()

	go func() {
		defer wg.Done()
		sparse = s.subQuery(ctx, "sparse", func(subCtx context.Context) (domain.CandidateSet, error) {
			return s.repo.Sparse(subCtx, sv, s.fetchK)
		})
	}()

	wg.Wait()

	if len(dense) == 0 && len(sparse) == 0 {
		return nil, nil, domain.ErrNoCandidates
	}
	return dense, sparse, nil
}

// subQuery runs one representation fetch under its own deadline.
// Any failure degrades to an empty result.
func (s *Service) subQuery(
	ctx context.Context,
	representation string,
	fetch func(ctx context.Context) (domain.CandidateSet, error),
) domain.CandidateSet {
	subCtx, cancel := context.WithTimeout(ctx, s.subTimeout)
	defer cancel()

	set, err := fetch(subCtx)
	if err != nil {
		metrics.RetrievalDegradedTotal.WithLabelValues(representation).Inc()
		s.logger.Warn("Sub-query degraded to empty",
			zap.String("representation", representation),
			zap.Error(err))
		return nil
	}
	return set
}
