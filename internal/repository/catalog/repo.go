// Package catalog reads candidates out of the product store, one method per
// query representation.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skumatch/internal/db"
	"github.com/kailas-cloud/skumatch/internal/domain"
	"github.com/kailas-cloud/skumatch/internal/domain/payload"
)

// store is the consumer interface for catalog retrieval (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchSparse(ctx context.Context, q *db.SparseQuery) (*db.SearchResult, error)
	PayloadMulti(ctx context.Context, keys []string) ([][]byte, error)
}

// Repository maps store search results onto domain candidates.
type Repository struct {
	store         store
	keys          db.Keys
	postingsLimit int
	logger        *zap.Logger
}

// New creates a catalog repository.
func New(s store, keys db.Keys, postingsLimit int, logger *zap.Logger) *Repository {
	return &Repository{store: s, keys: keys, postingsLimit: postingsLimit, logger: logger}
}

// Dense runs KNN search over the dense space and returns up to k candidates
// ordered by similarity. Payloads arrive with the search response, so no
// second round-trip is needed.
func (r *Repository) Dense(ctx context.Context, vector []float32, k int) (domain.CandidateSet, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{Vector: vector, K: k})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	out := make(domain.CandidateSet, 0, len(res.Entries))
	for _, e := range res.Entries {
		c := r.candidate(e.Key, e.Payload)
		c.Dense = e.Score
		out = append(out, c)
	}
	return out, nil
}

// Sparse runs term-overlap search over the postings and returns up to k
// candidates ordered by weighted overlap. Payloads are hydrated in one
// batched fetch.
func (r *Repository) Sparse(ctx context.Context, sv domain.SparseVector, k int) (domain.CandidateSet, error) {
	if sv.IsZero() {
		return nil, nil
	}

	res, err := r.store.SearchSparse(ctx, &db.SparseQuery{
		Indices:       sv.Indices,
		Weights:       sv.Weights,
		K:             k,
		PostingsLimit: r.postingsLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", err)
	}
	if len(res.Entries) == 0 {
		return nil, nil
	}

	keys := make([]string, len(res.Entries))
	for i, e := range res.Entries {
		keys[i] = e.Key
	}

	payloads, err := r.store.PayloadMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hydrate payloads: %w", err)
	}

	out := make(domain.CandidateSet, 0, len(res.Entries))
	for i, e := range res.Entries {
		c := r.candidate(e.Key, payloads[i])
		c.Sparse = e.Score
		out = append(out, c)
	}
	return out, nil
}

// candidate builds a domain candidate from a store key and payload blob.
// A payload that fails to decode degrades to an empty map rather than
// dropping the hit. The payload's own id wins over the key-derived one so
// re-keyed catalogs keep stable candidate ids.
func (r *Repository) candidate(key string, blob []byte) domain.Candidate {
	var p map[string]any
	if len(blob) > 0 {
		if err := json.Unmarshal(blob, &p); err != nil {
			r.logger.Warn("Failed to decode catalog payload",
				zap.String("key", key), zap.Error(err))
			p = nil
		}
	}
	if p == nil {
		p = map[string]any{}
	}

	return domain.Candidate{
		ID:      payload.ProductID(p, strings.TrimPrefix(key, r.keys.ProductPrefix())),
		Title:   payload.Title(p),
		Payload: p,
	}
}
