package riasec

import (
	"sort"
	"strings"
)

// Scores holds a value per category. Values are never negative.
type Scores map[Category]float64

// NewScores returns scores with every category present at zero.
func NewScores() Scores {
	s := make(Scores, len(DefaultOrder))
	for _, c := range DefaultOrder {
		s[c] = 0
	}
	return s
}

// Clone copies the scores, filling any missing category with zero.
func (s Scores) Clone() Scores {
	out := NewScores()
	for c, v := range s {
		if c.Valid() {
			out[c] = v
		}
	}
	return out
}

// Ranked is a category with its score.
type Ranked struct {
	Category Category
	Score    float64
}

// Ranked sorts all six categories descending by score, breaking ties by the
// canonical order. The result is a strict ranking.
func (s Scores) Ranked(order Order) []Ranked {
	ranked := make([]Ranked, 0, len(order))
	for _, c := range order {
		ranked = append(ranked, Ranked{Category: c, Score: s[c]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return order.Index(ranked[i].Category) < order.Index(ranked[j].Category)
	})
	return ranked
}

// Top returns the first n ranked categories.
func (s Scores) Top(order Order, n int) []Category {
	ranked := s.Ranked(order)
	if n > len(ranked) {
		n = len(ranked)
	}
	top := make([]Category, 0, n)
	for _, r := range ranked[:n] {
		top = append(top, r.Category)
	}
	return top
}

// Code joins the first n ranked categories, e.g. "RIA".
func (s Scores) Code(order Order, n int) string {
	return Join(s.Top(order, n))
}

// Join concatenates category symbols.
func Join(cs []Category) string {
	var b strings.Builder
	for _, c := range cs {
		b.WriteString(string(c))
	}
	return b.String()
}

// Total sums all category scores.
func (s Scores) Total() float64 {
	var total float64
	for _, v := range s {
		total += v
	}
	return total
}
