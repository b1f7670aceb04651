// Package embedding turns text into vectors for semantic similarity.
package embedding

import (
	"context"
	"math"
	"strings"
)

// Provider embeds text into a fixed-length vector. Implementations must be
// deterministic for identical input, safe for concurrent use, and must
// return a zero vector for empty or whitespace-only text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// IsBlank reports whether text carries nothing to embed.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// Zero returns a zero vector of the given dimension.
func Zero(dim int) []float32 {
	if dim < 0 {
		dim = 0
	}
	return make([]float32, dim)
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length are compared over the shorter prefix. Empty or zero vectors give 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Normalize scales v to unit length in place.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
