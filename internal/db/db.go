// Package db defines the store facade for the catalog and cache. Consumers
// depend on the narrow sub-interfaces, never on the concrete rueidis store.
package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	KVStore
	Searcher
	CatalogStore
	IndexManager
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides key-value operations with expire-after-write semantics.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Searcher runs similarity queries against the two catalog representations.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchSparse(ctx context.Context, q *SparseQuery) (*SearchResult, error)
}

// CatalogStore provides catalog document access and the upsert surface used
// by the (external) ingestion process.
type CatalogStore interface {
	PayloadMulti(ctx context.Context, keys []string) ([][]byte, error)
	UpsertProduct(ctx context.Context, p *Product) error
}

// IndexManager provides FT index lifecycle operations for the dense space.
type IndexManager interface {
	CreateCatalogIndex(ctx context.Context, cfg *IndexConfig) error
}
