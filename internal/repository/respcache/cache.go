// Package respcache caches finished pipeline responses keyed by the
// normalized query. Store trouble never surfaces to callers: a failed read
// is a miss and a failed write is dropped, so the pipeline keeps serving
// while the cache is down.
package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skumatch/internal/db"
)

// keyVersion invalidates all existing entries whenever the response shape
// or scoring changes.
const keyVersion = "v5"

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache stores serialized pipeline responses with expire-after-write.
type Cache struct {
	store      store
	keys       db.Keys
	pipeline   string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a response cache for one pipeline namespace.
// cacheTotal is a counter vec with labels "pipeline" and "result", passed explicitly.
func New(
	s store,
	keys db.Keys,
	pipeline string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	return &Cache{
		store:      s,
		keys:       keys,
		pipeline:   pipeline,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get returns the cached response for a normalized query, or ok=false on
// miss or store failure.
func (c *Cache) Get(ctx context.Context, normalized string, count int) ([]byte, bool) {
	key := c.key(normalized, count)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read response cache",
				zap.String("key", key), zap.Error(err))
		}
		c.incCache("miss")
		return nil, false
	}
	if len(data) == 0 {
		c.incCache("miss")
		return nil, false
	}

	c.incCache("hit")
	return data, true
}

// Put stores a serialized response. Failures are logged and dropped.
func (c *Cache) Put(ctx context.Context, normalized string, count int, value []byte) {
	key := c.key(normalized, count)
	if err := c.store.SetWithTTL(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("Failed to write response cache",
			zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(c.pipeline, result).Inc()
	}
}

func (c *Cache) key(normalized string, count int) string {
	h := sha256.Sum256([]byte(normalized + "|" + strconv.Itoa(count)))
	return c.keys.ResponseCache(c.pipeline, hex.EncodeToString(h[:])+":"+keyVersion)
}
