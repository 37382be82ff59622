package domain

// Outcome is the terminal verdict of the decision gate.
type Outcome string

const (
	// Accepted means the gate matched the query to exactly one candidate.
	Accepted Outcome = "accepted"
	// Rejected means the gate found no acceptable candidate.
	Rejected Outcome = "rejected"
)

// DecisionKind records which gate path produced the decision. Invalid and
// malformed judge outputs surface to callers as rejections but stay
// distinguishable in the trace.
type DecisionKind string

const (
	KindJudge          DecisionKind = "judge"
	KindJudgeInvalid   DecisionKind = "judge_invalid"
	KindJudgeMalformed DecisionKind = "judge_malformed"
	KindThreshold      DecisionKind = "threshold"
)

// Decision is produced exactly once per query by the decision gate and is
// immutable. CandidateID is set only when Outcome is Accepted and always
// references a member of the candidate set the decision was computed from.
type Decision struct {
	Outcome     Outcome      `json:"outcome"`
	CandidateID string       `json:"candidate_id,omitempty"`
	Rationale   string       `json:"rationale"`
	Kind        DecisionKind `json:"kind"`
}

// Accepted reports whether the decision is a genuine positive match.
func (d Decision) Accepted() bool { return d.Outcome == Accepted }

// Cacheable reports whether a response built from this decision may be
// written to the cache. Rejections and invalid/malformed judge outputs are
// never cached so transient judge failures cannot be replayed as answers.
func (d Decision) Cacheable() bool {
	return d.Outcome == Accepted && d.Kind != KindJudgeInvalid && d.Kind != KindJudgeMalformed
}
