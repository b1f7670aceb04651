// Package tiebreak finds category pairs whose scores are too close to rank.
package tiebreak

import (
	"fmt"
	"math"
	"strings"

	"github.com/spigell/riasec-matcher/internal/riasec"
)

// DefaultThreshold flags pairs whose scores differ by less than one answer.
const DefaultThreshold = 1

// PairSet is a set of normalized pairs.
type PairSet map[riasec.Pair]struct{}

// Add inserts p.
func (s PairSet) Add(p riasec.Pair) {
	s[p] = struct{}{}
}

// Has reports membership.
func (s PairSet) Has(p riasec.Pair) bool {
	_, ok := s[p]
	return ok
}

// Minus returns the pairs of s that are not in other.
func (s PairSet) Minus(other PairSet) PairSet {
	out := make(PairSet, len(s))
	for p := range s {
		if !other.Has(p) {
			out.Add(p)
		}
	}
	return out
}

// Sorted returns the pairs in canonical order.
func (s PairSet) Sorted(order riasec.Order) []riasec.Pair {
	pairs := make([]riasec.Pair, 0, len(s))
	for p := range s {
		pairs = append(pairs, p)
	}
	riasec.SortPairs(order, pairs)
	return pairs
}

// Strings renders the sorted pairs.
func (s PairSet) Strings(order riasec.Order) []string {
	pairs := s.Sorted(order)
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.String())
	}
	return out
}

func (s PairSet) String() string {
	return "[" + strings.Join(s.Strings(riasec.DefaultOrder), " ") + "]"
}

// ValidateThreshold rejects negative or non-finite thresholds.
func ValidateThreshold(threshold float64) error {
	if threshold < 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return fmt.Errorf("tie threshold must be a non-negative number, got %v", threshold)
	}
	return nil
}

// Detect returns the pairs among the top three ranked categories that need a
// tie-breaker. Rank 1/2 and rank 2/3 are flagged when their difference is
// strictly below threshold. Every pair among categories sharing the rank 3
// score is flagged as well. The result depends only on the inputs.
func Detect(scores riasec.Scores, order riasec.Order, threshold float64) PairSet {
	pairs := make(PairSet)

	ranked := scores.Ranked(order)
	if len(ranked) < 3 {
		return pairs
	}

	flag := func(a, b riasec.Ranked) {
		if math.Abs(a.Score-b.Score) < threshold {
			if p, err := riasec.NewPair(order, a.Category, b.Category); err == nil {
				pairs.Add(p)
			}
		}
	}

	flag(ranked[0], ranked[1])
	flag(ranked[1], ranked[2])

	third := ranked[2].Score
	var atThird []riasec.Category
	for _, r := range ranked {
		if r.Score == third {
			atThird = append(atThird, r.Category)
		}
	}

	for i := 0; i < len(atThird); i++ {
		for j := i + 1; j < len(atThird); j++ {
			if p, err := riasec.NewPair(order, atThird[i], atThird[j]); err == nil {
				pairs.Add(p)
			}
		}
	}

	return pairs
}
