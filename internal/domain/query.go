package domain

import "strings"

// Query is an immutable product query with its derived normalized form.
// The normalized form is the cache and trace key: lowercased with runs of
// whitespace collapsed to single spaces, so "  Sony  XM5 " and "sony xm5"
// address the same cache entry.
type Query struct {
	raw        string
	normalized string
}

// NewQuery builds a query from raw text.
func NewQuery(raw string) Query {
	return Query{raw: raw, normalized: NormalizeQuery(raw)}
}

// Raw returns the query text as the client sent it.
func (q Query) Raw() string { return q.raw }

// Normalized returns the canonical cache/trace key form.
func (q Query) Normalized() string { return q.normalized }

// NormalizeQuery canonicalizes query text for cache keying.
func NormalizeQuery(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
