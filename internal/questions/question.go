package questions

import (
	"github.com/spigell/riasec-matcher/internal/riasec"
)

// Option is a single forced-choice answer.
type Option struct {
	Label    string          `json:"label"`
	Text     string          `json:"text"`
	Category riasec.Category `json:"category"`
	// Traits is only set on main question options.
	Traits map[string]int `json:"traits,omitempty"`
}

// Question is an immutable bank item. Main questions have no Pair.
type Question struct {
	ID      int          `json:"id"`
	Prompt  string       `json:"prompt"`
	Options []Option     `json:"options"`
	Pair    *riasec.Pair `json:"-"`
	Weight  float64      `json:"weight,omitempty"`
	Hint    string       `json:"hint,omitempty"`
}

// Option returns the option with the given label.
func (q *Question) Option(label string) (Option, bool) {
	for _, o := range q.Options {
		if o.Label == label {
			return o, true
		}
	}
	return Option{}, false
}

// Labels returns option labels in display order.
func (q *Question) Labels() []string {
	labels := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		labels = append(labels, o.Label)
	}
	return labels
}

// EffectiveWeight is the per-answer contribution, 1 unless configured.
func (q *Question) EffectiveWeight() float64 {
	if q.Weight <= 0 {
		return 1
	}
	return q.Weight
}

// IsTieBreak reports whether the question disambiguates a category pair.
func (q *Question) IsTieBreak() bool {
	return q.Pair != nil
}

// Bank holds main and tie-breaker questions. It is read-only after load and
// safe to share.
type Bank struct {
	Main          []Question
	TieBreak      []Question
	TraitTaxonomy string

	byID map[int]*Question
}

// Find resolves a question id. Ids up to the main bank size belong to the
// main bank, the rest to the tie-breaker bank. The second return value
// reports which bank the id was resolved against.
func (b *Bank) Find(id int) (*Question, bool, bool) {
	isMain := id <= len(b.Main)
	q, ok := b.byID[id]
	if !ok || q.IsTieBreak() == isMain {
		return nil, isMain, false
	}
	return q, isMain, true
}

// ForPair returns up to limit tie-breaker questions for the pair in bank
// order, skipping ids listed in exclude.
func (b *Bank) ForPair(pair riasec.Pair, exclude map[int]bool, limit int) []*Question {
	var out []*Question
	for i := range b.TieBreak {
		if limit > 0 && len(out) >= limit {
			break
		}
		q := &b.TieBreak[i]
		if q.Pair == nil || *q.Pair != pair || exclude[q.ID] {
			continue
		}
		out = append(out, q)
	}
	return out
}

// MainIDs returns main question ids in bank order.
func (b *Bank) MainIDs() []int {
	ids := make([]int, 0, len(b.Main))
	for _, q := range b.Main {
		ids = append(ids, q.ID)
	}
	return ids
}

// Len returns the total number of questions.
func (b *Bank) Len() int {
	return len(b.Main) + len(b.TieBreak)
}
