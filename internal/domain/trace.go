package domain

// Terminal statuses for a trace record.
const (
	TraceSuccess  = "success"
	TraceNotFound = "not_found"
	TraceError    = "error"
)

// TraceCandidate is a compact view of one candidate for the trace log.
type TraceCandidate struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Dense  float64 `json:"dense_score,omitempty"`
	Sparse float64 `json:"sparse_score,omitempty"`
	Fused  float64 `json:"fused_score,omitempty"`
	Rerank float64 `json:"rerank_score,omitempty"`
}

// TraceRecord captures one resolved query end to end for offline audit.
// Records are append-only: once written to the sink they are never updated.
type TraceRecord struct {
	TimestampMs int64            `json:"timestamp_ms"`
	Pipeline    string           `json:"pipeline"`
	Query       string           `json:"query"`
	Normalized  string           `json:"normalized_query"`
	CacheHit    bool             `json:"cache_hit,omitempty"`
	Candidates  []TraceCandidate `json:"candidates,omitempty"`
	Decision    *Decision        `json:"decision,omitempty"`
	LatencyMs   float64          `json:"latency_ms"`
	Status      string           `json:"status"`
	Error       string           `json:"error,omitempty"`
}

// TraceCandidates converts a candidate set into its trace view.
func TraceCandidates(set CandidateSet) []TraceCandidate {
	if len(set) == 0 {
		return nil
	}
	out := make([]TraceCandidate, len(set))
	for i, c := range set {
		out[i] = TraceCandidate{
			ID:     c.ID,
			Title:  c.Title,
			Dense:  c.Dense,
			Sparse: c.Sparse,
			Fused:  c.Fused,
			Rerank: c.Rerank,
		}
	}
	return out
}
