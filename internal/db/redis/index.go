package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/skumatch/internal/db"
)

// CreateCatalogIndex creates the HNSW FT index over catalog hashes.
// Returns db.ErrIndexExists when the index is already present.
func (s *Store) CreateCatalogIndex(ctx context.Context, cfg *db.IndexConfig) error {
	if cfg.Dimensions <= 0 {
		return fmt.Errorf("vector dimensions must be positive")
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(cfg.Dimensions),
		"DISTANCE_METRIC", "COSINE",
	}
	if cfg.M > 0 {
		attrs = append(attrs, "M", strconv.Itoa(cfg.M))
	}
	if cfg.EFConstruct > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(cfg.EFConstruct))
	}

	args := []string{
		s.keys.CatalogIndex(),
		"ON", "HASH",
		"PREFIX", "1", s.keys.ProductPrefix(),
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", strconv.Itoa(len(attrs)),
	}
	args = append(args, attrs...)

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}
