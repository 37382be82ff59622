// Package trace records resolved queries to an append-only audit log
// without ever blocking the serving path.
package trace

import (
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skumatch/internal/domain"
	"github.com/kailas-cloud/skumatch/internal/metrics"
)

// Recorder hands records to a bounded worker pool. When the pool is
// saturated the new record is dropped and counted; in-flight writes are
// never cancelled.
type Recorder struct {
	pool   *ants.Pool
	sink   Sink
	logger *zap.Logger
}

// NewRecorder creates a recorder with the given number of sink workers.
func NewRecorder(workers int, sink Sink, logger *zap.Logger) (*Recorder, error) {
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create trace pool: %w", err)
	}
	return &Recorder{pool: pool, sink: sink, logger: logger}, nil
}

// Record submits one record for asynchronous persistence. Fire-and-forget:
// the caller never learns about sink failures.
func (r *Recorder) Record(rec *domain.TraceRecord) {
	err := r.pool.Submit(func() {
		if err := r.sink.Write(rec); err != nil {
			r.logger.Warn("Failed to write trace record",
				zap.String("pipeline", rec.Pipeline),
				zap.Error(err))
		}
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			metrics.TraceDroppedTotal.Inc()
			r.logger.Warn("Trace record dropped, pool saturated",
				zap.String("pipeline", rec.Pipeline))
			return
		}
		r.logger.Warn("Failed to submit trace record", zap.Error(err))
	}
}

// Close drains pending writes and closes the sink.
func (r *Recorder) Close() error {
	if err := r.pool.ReleaseTimeout(5 * time.Second); err != nil {
		r.logger.Warn("Trace pool did not drain in time", zap.Error(err))
	}
	return r.sink.Close()
}
