package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultHashDimension matches the size of small sentence embedding models.
const DefaultHashDimension = 384

// Hash is an offline Provider based on feature hashing of word unigrams and
// bigrams. Identical texts always map to identical vectors and texts sharing
// words get a positive similarity.
type Hash struct {
	dim int
}

// NewHash creates a hashing provider.
func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &Hash{dim: dim}
}

func (h *Hash) Dimension() int { return h.dim }

func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	vec := Zero(h.dim)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}

	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	return Normalize(vec), nil
}

func (h *Hash) add(vec []float32, feature string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()

	idx := int(sum % uint64(h.dim))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
