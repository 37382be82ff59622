package domain

import "errors"

var (
	// ErrVectorizationUnavailable signals that the embedding backend is down.
	// Fatal for the request: the pipeline never runs on a partial vectorization.
	ErrVectorizationUnavailable = errors.New("vectorization unavailable")
	// ErrNoCandidates signals that both retrieval representations came back empty.
	ErrNoCandidates = errors.New("no candidates found")
	// ErrDecisionInvalid signals a judge verdict referencing a candidate outside the set.
	ErrDecisionInvalid = errors.New("decision references invalid candidate")
	// ErrDecisionMalformed signals a judge response that failed structural validation.
	ErrDecisionMalformed = errors.New("decision response malformed")
	// ErrDownstreamService signals a failed call to an external collaborator.
	// Surfaced to clients as a generic upstream failure; detail goes to the trace only.
	ErrDownstreamService = errors.New("downstream service error")
	// ErrBadRequest signals an invalid inbound request.
	ErrBadRequest = errors.New("bad request")
)
