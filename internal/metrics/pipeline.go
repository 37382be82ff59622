package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skumatch",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"pipeline", "stage"},
	)

	PipelineDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skumatch",
			Name:      "pipeline_decisions_total",
			Help:      "Total pipeline decisions by outcome",
		},
		[]string{"pipeline", "outcome"},
	)

	ResponseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skumatch",
			Name:      "response_cache_total",
			Help:      "Response cache hits and misses",
		},
		[]string{"pipeline", "result"}, // "hit" / "miss"
	)

	RetrievalDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skumatch",
			Name:      "retrieval_degraded_total",
			Help:      "Sub-queries that timed out or failed and returned empty",
		},
		[]string{"representation"}, // "dense" / "sparse"
	)

	TraceDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skumatch",
			Name:      "trace_dropped_total",
			Help:      "Trace records dropped because the recorder pool was saturated",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(PipelineDecisionsTotal)
	prometheus.MustRegister(ResponseCacheTotal)
	prometheus.MustRegister(RetrievalDegradedTotal)
	prometheus.MustRegister(TraceDroppedTotal)
	pipelineMetricsRegistered = true
}
