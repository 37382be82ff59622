package pipeline

import (
	"context"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

// Retriever runs the dual-representation candidate fetch.
type Retriever interface {
	Retrieve(ctx context.Context, q domain.Query) (dense, sparse domain.CandidateSet, err error)
}

// Fuser merges the two rankings into one ordered candidate set.
type Fuser interface {
	Fuse(ctx context.Context, q domain.Query, dense, sparse domain.CandidateSet) (domain.CandidateSet, error)
}

// Gate produces the terminal decision over the fused set.
type Gate interface {
	Decide(ctx context.Context, q domain.Query, set domain.CandidateSet) (domain.Decision, domain.CandidateSet, error)
}

// ResponseCache stores serialized finished results keyed by normalized query.
type ResponseCache interface {
	Get(ctx context.Context, normalized string, count int) ([]byte, bool)
	Put(ctx context.Context, normalized string, count int, value []byte)
}

// TraceRecorder persists one audit record per invocation, asynchronously.
type TraceRecorder interface {
	Record(rec *domain.TraceRecord)
}
