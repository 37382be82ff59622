package domain

// Candidate is one catalog hit flowing through the pipeline. The payload is
// owned by the catalog and read-only here; Title is extracted from it once at
// retrieval time via the payload normalizer. Score fields are populated per
// representation as the candidate passes each stage; a zero score means the
// candidate was absent from that representation.
type Candidate struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Payload map[string]any `json:"payload,omitempty"`

	Dense  float64 `json:"dense_score,omitempty"`
	Sparse float64 `json:"sparse_score,omitempty"`
	Fused  float64 `json:"fused_score,omitempty"`
	Rerank float64 `json:"rerank_score,omitempty"`
}

// CandidateSet is an ordered sequence of candidates with no duplicate IDs.
type CandidateSet []Candidate

// IDs returns the candidate identifiers in order.
func (s CandidateSet) IDs() []string {
	ids := make([]string, len(s))
	for i := range s {
		ids[i] = s[i].ID
	}
	return ids
}

// Contains reports whether the set holds a candidate with the given ID.
func (s CandidateSet) Contains(id string) bool {
	for i := range s {
		if s[i].ID == id {
			return true
		}
	}
	return false
}

// Truncate bounds the set to at most n candidates.
func (s CandidateSet) Truncate(n int) CandidateSet {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
