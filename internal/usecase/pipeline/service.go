// Package pipeline orchestrates one query end to end: cache, retrieval,
// fusion, decision, trace. Two instances run in production, differing only
// in their fuser, gate, and cache namespace.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skumatch/internal/domain"
	"github.com/kailas-cloud/skumatch/internal/metrics"
)

// Source labels reported to clients. Cache replays keep the source of the
// run that produced them; hits are distinguished in the trace only.
const (
	SourceLive  = "Hybrid+TinyBERT"
	SourceEmpty = "Empty"
)

// Result is the pipeline output for one query. Status mirrors the trace
// vocabulary: success when the gate accepted, not_found otherwise.
type Result struct {
	Query      domain.Query
	Candidates domain.CandidateSet
	Decision   domain.Decision
	Status     string
	Source     string
	LatencyMs  float64
	CacheHit   bool
}

// cached is the serialized response stored in the cache. It carries every
// client-visible field, so a hit replays the original response unchanged.
type cached struct {
	Candidates domain.CandidateSet `json:"candidates"`
	Decision   domain.Decision     `json:"decision"`
	Status     string              `json:"status"`
	Source     string              `json:"source"`
	LatencyMs  float64             `json:"latency_ms"`
}

// Service runs one configured pipeline.
type Service struct {
	name      string
	retriever Retriever
	fuser     Fuser
	gate      Gate
	cache     ResponseCache
	recorder  TraceRecorder
	logger    *zap.Logger
}

// New creates a pipeline. name is the metrics/cache/trace namespace
// ("resolve" or "rank").
func New(
	name string,
	retriever Retriever,
	fuser Fuser,
	gate Gate,
	cache ResponseCache,
	recorder TraceRecorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		name:      name,
		retriever: retriever,
		fuser:     fuser,
		gate:      gate,
		cache:     cache,
		recorder:  recorder,
		logger:    logger,
	}
}

// Run resolves one raw query. Exactly one trace record is emitted per call,
// cache hits included. count participates in the cache key so different
// result sizes never alias.
func (s *Service) Run(ctx context.Context, raw string, count int) (res *Result, err error) {
	start := time.Now()

	q := domain.NewQuery(raw)
	if q.Normalized() == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrBadRequest)
	}

	// A client disconnect must not abort sub-queries or the judge call already
	// issued, and must not lose the cache write. Stage deadlines still apply;
	// each stage sets its own timeout on this detached context.
	ctx = context.WithoutCancel(ctx)

	// Fused candidates, kept for the trace on failures past retrieval.
	var fused domain.CandidateSet

	defer func() {
		latency := float64(time.Since(start).Nanoseconds()) / 1e6
		if res != nil && res.LatencyMs == 0 {
			res.LatencyMs = latency
		}
		s.trace(q, res, fused, err, latency)
	}()

	if data, ok := s.cache.Get(ctx, q.Normalized(), count); ok {
		var c cached
		if jsonErr := json.Unmarshal(data, &c); jsonErr == nil {
			// Replay verbatim: source and latency are the original run's,
			// so the response is byte-identical to the one cached.
			return &Result{
				Query:      q,
				Candidates: c.Candidates,
				Decision:   c.Decision,
				Status:     c.Status,
				Source:     c.Source,
				LatencyMs:  c.LatencyMs,
				CacheHit:   true,
			}, nil
		}
		// A corrupt entry is a miss; it will be overwritten below.
		s.logger.Warn("Discarding corrupt cache entry",
			zap.String("pipeline", s.name),
			zap.String("query", q.Normalized()))
	}

	dense, sparse, err := s.stage2(ctx, "retrieve", q)
	if err != nil {
		if errors.Is(err, domain.ErrNoCandidates) {
			return s.emptyResult(q), nil
		}
		return nil, err
	}

	fused, err = s.stage(ctx, "fuse", func(ctx context.Context) (domain.CandidateSet, error) {
		return s.fuser.Fuse(ctx, q, dense, sparse)
	})
	if err != nil {
		return nil, err
	}
	if len(fused) == 0 {
		return s.emptyResult(q), nil
	}

	decideStart := time.Now()
	decision, kept, err := s.gate.Decide(ctx, q, fused)
	metrics.PipelineStageDuration.WithLabelValues(s.name, "decide").Observe(time.Since(decideStart).Seconds())
	if err != nil {
		return nil, err
	}
	metrics.PipelineDecisionsTotal.WithLabelValues(s.name, string(decision.Outcome)).Inc()

	status := domain.TraceNotFound
	if decision.Accepted() {
		status = domain.TraceSuccess
	}

	res = &Result{
		Query:      q,
		Candidates: kept,
		Decision:   decision,
		Status:     status,
		Source:     SourceLive,
		LatencyMs:  float64(time.Since(start).Nanoseconds()) / 1e6,
	}

	if decision.Cacheable() {
		s.writeCache(ctx, q, count, res)
	}

	return res, nil
}

// stage runs one pipeline step under the stage duration metric.
func (s *Service) stage(
	ctx context.Context,
	name string,
	fn func(ctx context.Context) (domain.CandidateSet, error),
) (domain.CandidateSet, error) {
	start := time.Now()
	set, err := fn(ctx)
	metrics.PipelineStageDuration.WithLabelValues(s.name, name).Observe(time.Since(start).Seconds())
	return set, err
}

// stage2 is stage for the two-ranking retrieval step.
func (s *Service) stage2(ctx context.Context, name string, q domain.Query) (domain.CandidateSet, domain.CandidateSet, error) {
	start := time.Now()
	dense, sparse, err := s.retriever.Retrieve(ctx, q)
	metrics.PipelineStageDuration.WithLabelValues(s.name, name).Observe(time.Since(start).Seconds())
	return dense, sparse, err
}

// emptyResult is the terminal for queries where retrieval produced nothing.
// No gate ran, so the result carries no decision.
func (s *Service) emptyResult(q domain.Query) *Result {
	return &Result{
		Query:  q,
		Status: domain.TraceNotFound,
		Source: SourceEmpty,
	}
}

func (s *Service) writeCache(ctx context.Context, q domain.Query, count int, res *Result) {
	data, err := json.Marshal(cached{
		Candidates: res.Candidates,
		Decision:   res.Decision,
		Status:     res.Status,
		Source:     res.Source,
		LatencyMs:  res.LatencyMs,
	})
	if err != nil {
		s.logger.Warn("Failed to serialize result for cache", zap.Error(err))
		return
	}
	s.cache.Put(ctx, q.Normalized(), count, data)
}

// trace emits the single per-invocation audit record. The recorder is
// fire-and-forget, so this never delays the response.
func (s *Service) trace(q domain.Query, res *Result, fused domain.CandidateSet, err error, latencyMs float64) {
	rec := &domain.TraceRecord{
		TimestampMs: time.Now().UnixMilli(),
		Pipeline:    s.name,
		Query:       q.Raw(),
		Normalized:  q.Normalized(),
		LatencyMs:   latencyMs,
	}

	switch {
	case err != nil:
		rec.Status = domain.TraceError
		rec.Error = err.Error()
		// Failures past retrieval still record what was on the table.
		rec.Candidates = domain.TraceCandidates(fused)
	case res != nil:
		rec.Status = res.Status
		rec.CacheHit = res.CacheHit
		rec.Candidates = domain.TraceCandidates(res.Candidates)
		if res.Decision.Outcome != "" {
			decision := res.Decision
			rec.Decision = &decision
		}
	}

	s.recorder.Record(rec)
}
