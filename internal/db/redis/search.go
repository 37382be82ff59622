package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/skumatch/internal/db"
)

// Catalog hash field names. __payload holds the raw catalog JSON so that
// nested attributes survive round-trips; __vector and __sparse hold the
// two representations.
const (
	fieldVector  = "__vector"
	fieldSparse  = "__sparse"
	fieldPayload = "__payload"
	fieldScore   = "__vector_score"
)

// SearchKNN runs a dense cosine similarity search via FT.SEARCH.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	// The distance must be yielded under an explicit alias: without AS,
	// RediSearch derives the yield name from the field name, which here
	// would be ____vector_score and break the RETURN/SORTBY clauses.
	queryStr := fmt.Sprintf("*=>[KNN %d @%s $BLOB AS %s]", q.K, fieldVector, fieldScore)

	args := []string{
		s.keys.CatalogIndex(), queryStr,
		"RETURN", "2", fieldScore, fieldPayload,
		"SORTBY", fieldScore,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw)
}

// SearchSparse runs a term-weight overlap search over the posting sets.
// Postings for each query term are read in one pipelined round-trip and the
// weighted dot product is accumulated client-side.
func (s *Store) SearchSparse(ctx context.Context, q *db.SparseQuery) (*db.SearchResult, error) {
	if len(q.Indices) == 0 {
		return &db.SearchResult{}, nil
	}
	if len(q.Indices) != len(q.Weights) {
		return nil, fmt.Errorf("indices/weights length mismatch")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	limit := q.PostingsLimit
	if limit <= 0 {
		limit = 1000
	}

	cmds := make([]rueidis.Completed, len(q.Indices))
	for i, idx := range q.Indices {
		cmds[i] = s.b().Arbitrary("ZRANGE").
			Args(s.keys.Posting(idx),
				"+inf", "0", "BYSCORE", "REV",
				"LIMIT", "0", strconv.Itoa(limit),
				"WITHSCORES").
			Build()
	}

	scores := make(map[string]float64)
	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		postings, err := res.AsZScores()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, &db.Error{Op: db.OpZRange, Err: fmt.Errorf("term %d: %w", q.Indices[i], err)}
		}
		qw := float64(q.Weights[i])
		for _, p := range postings {
			scores[p.Member] += qw * p.Score
		}
	}

	entries := topEntries(scores, q.K, s.keys)
	return &db.SearchResult{Total: len(scores), Entries: entries}, nil
}

// topEntries selects the K best-scoring documents. Ties break by key so the
// ordering is reproducible across runs.
func topEntries(scores map[string]float64, k int, keys db.Keys) []db.SearchEntry {
	entries := make([]db.SearchEntry, 0, len(scores))
	for id, score := range scores {
		entries = append(entries, db.SearchEntry{Key: keys.Product(id), Score: score})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Key < entries[j].Key
	})

	if len(entries) > k {
		entries = entries[:k]
	}
	return entries
}

// --- Result parsing ---

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{Key: key}
		for _, kv := range pairFields(fields) {
			switch kv.name {
			case fieldScore:
				if dist, err := strconv.ParseFloat(kv.value, 64); err == nil {
					entry.Score = max(0, 1.0-dist) // cosine distance → similarity, clamped to [0,1]
				}
			case fieldPayload:
				entry.Payload = []byte(kv.value)
			}
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

type fieldPair struct {
	name, value string
}

func pairFields(fields []rueidis.RedisMessage) []fieldPair {
	pairs := make([]fieldPair, 0, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		pairs = append(pairs, fieldPair{name: name, value: value})
	}
	return pairs
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
