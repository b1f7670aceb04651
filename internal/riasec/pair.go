package riasec

import (
	"fmt"
	"sort"
	"strings"
)

// Pair is an unordered pair of distinct categories stored in canonical order,
// so (X,Y) and (Y,X) compare equal once built through NewPair.
type Pair struct {
	First  Category
	Second Category
}

// NewPair normalizes the two categories by their canonical index.
func NewPair(order Order, x, y Category) (Pair, error) {
	if !x.Valid() || !y.Valid() {
		return Pair{}, fmt.Errorf("invalid pair %q-%q", x, y)
	}
	if x == y {
		return Pair{}, fmt.Errorf("pair needs two distinct categories, got %q twice", x)
	}
	if order.Index(y) < order.Index(x) {
		x, y = y, x
	}
	return Pair{First: x, Second: y}, nil
}

// ParsePair parses "R-I" (or "I-R", "RI") into a normalized pair.
func ParsePair(order Order, s string) (Pair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", " ", "", "/", "", ",", "").Replace(s)
	if len(s) != 2 {
		return Pair{}, fmt.Errorf("invalid pair %q", s)
	}
	return NewPair(order, Category(s[:1]), Category(s[1:]))
}

// Contains reports whether c is one of the pair members.
func (p Pair) Contains(c Category) bool {
	return p.First == c || p.Second == c
}

func (p Pair) String() string {
	return string(p.First) + "-" + string(p.Second)
}

// AllPairs returns the 15 unordered pairs in canonical order.
func AllPairs(order Order) []Pair {
	pairs := make([]Pair, 0, 15)
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			pairs = append(pairs, Pair{First: order[i], Second: order[j]})
		}
	}
	return pairs
}

// SortPairs orders pairs by the canonical index of their members.
func SortPairs(order Order, pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if order.Index(a.First) != order.Index(b.First) {
			return order.Index(a.First) < order.Index(b.First)
		}
		return order.Index(a.Second) < order.Index(b.Second)
	})
}
