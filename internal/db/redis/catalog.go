package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/skumatch/internal/db"
)

// PayloadMulti fetches the payload blob for multiple catalog keys in a
// single DoMulti round-trip. A missing key yields a nil payload.
func (s *Store) PayloadMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hget().Key(key).Field(fieldPayload).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([][]byte, len(results))

	for i, res := range results {
		data, err := res.AsBytes()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, &db.Error{Op: db.OpHGet, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		out[i] = data
	}

	return out, nil
}

// UpsertProduct writes one catalog record: the hash with both vector
// representations and the payload blob, plus one posting per sparse term.
// Last write wins on a given id.
func (s *Store) UpsertProduct(ctx context.Context, p *db.Product) error {
	if p.ID == "" {
		return fmt.Errorf("product id is required")
	}
	if len(p.Indices) != len(p.Weights) {
		return fmt.Errorf("indices/weights length mismatch")
	}

	key := s.keys.Product(p.ID)

	hset := s.b().Hset().Key(key).FieldValue().
		FieldValue(fieldVector, vectorToBytes(p.Dense)).
		FieldValue(fieldSparse, encodeSparse(p.Indices, p.Weights)).
		FieldValue(fieldPayload, string(p.Payload)).
		Build()

	cmds := make([]rueidis.Completed, 0, 1+len(p.Indices))
	cmds = append(cmds, hset)
	for i, idx := range p.Indices {
		cmds = append(cmds, s.b().Zadd().Key(s.keys.Posting(idx)).
			ScoreMember().
			ScoreMember(float64(p.Weights[i]), p.ID).
			Build())
	}

	results := s.client.DoMulti(ctx, cmds...)
	for _, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("upsert %s: %w", p.ID, err)}
		}
	}
	return nil
}

// encodeSparse serializes a sparse vector as "idx:weight idx:weight ...".
// Stored alongside the postings so a record can be re-indexed without
// re-vectorizing.
func encodeSparse(indices []uint32, weights []float32) string {
	var sb strings.Builder
	for i, idx := range indices {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatUint(uint64(idx), 10))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(float64(weights[i]), 'g', -1, 32))
	}
	return sb.String()
}
