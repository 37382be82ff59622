package db

import "strconv"

// KNNQuery is the input for dense vector similarity search.
type KNNQuery struct {
	Vector []float32
	K      int
}

// SparseQuery is the input for sparse term-weight similarity search.
// Indices and Weights follow the domain sparse-vector invariants
// (ascending unique indices, non-negative weights).
type SparseQuery struct {
	Indices []uint32
	Weights []float32
	K       int
	// PostingsLimit bounds how many postings are read per term; common terms
	// would otherwise fan out across the whole catalog.
	PostingsLimit int
}

// SearchResult is the output of a similarity query.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single catalog hit. Payload is the raw JSON payload blob
// when the query hydrates it, nil otherwise.
type SearchEntry struct {
	Key     string
	Score   float64
	Payload []byte
}

// Product is the upsert surface for one catalog record.
type Product struct {
	ID      string
	Dense   []float32
	Indices []uint32
	Weights []float32
	Payload []byte
}

// IndexConfig describes the dense HNSW index over catalog hashes.
type IndexConfig struct {
	Dimensions  int
	M           int
	EFConstruct int
}

// Keys derives every Redis key from the configured prefix so that the store,
// repositories, and cache agree on one naming scheme.
type Keys struct {
	Prefix string
}

// Product returns the catalog hash key for a document id.
func (k Keys) Product(id string) string { return k.Prefix + "prod:" + id }

// ProductPrefix returns the shared prefix of all catalog hash keys.
func (k Keys) ProductPrefix() string { return k.Prefix + "prod:" }

// Posting returns the sorted-set key holding postings for one sparse term.
func (k Keys) Posting(index uint32) string {
	return k.Prefix + "post:" + strconv.FormatUint(uint64(index), 10)
}

// CatalogIndex returns the FT index name for the dense space.
func (k Keys) CatalogIndex() string { return k.Prefix + "catalog:idx" }

// ResponseCache returns the response cache key for a pipeline namespace
// and hashed request key.
func (k Keys) ResponseCache(pipeline, hash string) string {
	return k.Prefix + "resp:" + pipeline + ":" + hash
}
