package vectorizer

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

// SparseEncoder hashes query terms into the fixed feature space.
// Purely computational, so it never fails and needs no context.
type SparseEncoder struct {
	features uint32
}

// NewSparseEncoder creates an encoder over a feature space of the given size.
// Zero or negative falls back to domain.SparseFeatureSpace.
func NewSparseEncoder(features int) *SparseEncoder {
	if features <= 0 {
		features = domain.SparseFeatureSpace
	}
	return &SparseEncoder{features: uint32(features)}
}

// Encode tokenizes text, hashes each term into the feature space and
// returns the L2-normalized term-count vector. Identical inputs always
// produce identical vectors. An all-stopword or empty query yields a
// zero vector.
func (e *SparseEncoder) Encode(text string) domain.SparseVector {
	terms := tokenize(text)
	if len(terms) == 0 {
		return domain.SparseVector{}
	}

	counts := make(map[uint32]float32, len(terms))
	for _, term := range terms {
		counts[hashTerm(term)%e.features]++
	}

	indices := make([]uint32, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	var sum float64
	for _, c := range counts {
		sum += float64(c) * float64(c)
	}
	norm := float32(math.Sqrt(sum))

	weights := make([]float32, len(indices))
	for i, idx := range indices {
		weights[i] = counts[idx] / norm
	}

	return domain.SparseVector{Indices: indices, Weights: weights}
}

// tokenize splits text into lowercase alphanumeric runs.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hashTerm(term string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	return h.Sum32()
}
