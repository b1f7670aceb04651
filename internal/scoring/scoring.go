package scoring

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/questions"
	"github.com/spigell/riasec-matcher/internal/riasec"
)

// SkippedAnswer describes an answer that could not contribute to scoring.
type SkippedAnswer struct {
	QuestionID int
	Label      string
	Reason     string
}

// Result is the outcome of scoring a set of answers.
type Result struct {
	Categories riasec.Scores
	Traits     map[string]float64
	Skipped    []SkippedAnswer
}

// Engine turns recorded answers into category and trait scores. It holds no
// per-session state and is safe for concurrent use.
type Engine struct {
	bank       *questions.Bank
	remap      *TraitRemap
	enrichment []EnrichmentRule
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRemap overrides the remap table picked from the bank taxonomy.
func WithRemap(r *TraitRemap) Option {
	return func(e *Engine) { e.remap = r }
}

// WithTextEnrichment enables keyword enrichment of traits from question hints.
func WithTextEnrichment(rules []EnrichmentRule) Option {
	return func(e *Engine) { e.enrichment = rules }
}

// New creates a scoring engine over the bank.
func New(bank *questions.Bank, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	remap, err := RemapFor(bank.TraitTaxonomy)
	if err != nil {
		return nil, err
	}

	e := &Engine{bank: bank, remap: remap, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Compute scores the answers. Unknown questions and options are skipped and
// reported but never fail the computation. Tie-breaker answers only count
// towards categories.
func (e *Engine) Compute(answers map[int]string) Result {
	res := Result{
		Categories: riasec.NewScores(),
		Traits:     e.remap.Zero(),
	}

	// Deterministic iteration keeps logs and skipped order stable.
	ids := make([]int, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		label := answers[id]

		q, isMain, ok := e.bank.Find(id)
		if !ok {
			res.Skipped = append(res.Skipped, e.skip(id, label, "unknown question"))
			continue
		}

		option, ok := q.Option(label)
		if !ok {
			res.Skipped = append(res.Skipped, e.skip(id, label, "unknown option"))
			continue
		}

		if !option.Category.Valid() {
			res.Skipped = append(res.Skipped, e.skip(id, label, "unknown category"))
			continue
		}

		weight := q.EffectiveWeight()
		res.Categories[option.Category] += weight

		if !isMain {
			continue
		}

		for name, value := range option.Traits {
			for _, mapped := range e.remap.Apply(name) {
				res.Traits[mapped] += float64(value) * weight
			}
		}

		if len(e.enrichment) > 0 {
			for trait, boost := range enrich(e.enrichment, q.Hint) {
				if _, known := res.Traits[trait]; known {
					res.Traits[trait] += float64(boost)
				}
			}
		}
	}

	return res
}

func (e *Engine) skip(id int, label, reason string) SkippedAnswer {
	e.logger.Warn("skipping malformed answer",
		zap.Int("question_id", id),
		zap.String("label", label),
		zap.String("reason", reason),
	)
	return SkippedAnswer{QuestionID: id, Label: label, Reason: reason}
}

// Percentiles scales traits to 0..100 relative to the highest trait.
func Percentiles(traits map[string]float64) map[string]int {
	out := make(map[string]int, len(traits))

	var highest float64
	for _, v := range traits {
		if v > highest {
			highest = v
		}
	}

	for name, v := range traits {
		if highest <= 0 {
			out[name] = 0
			continue
		}
		out[name] = int(math.Round(v / highest * 100))
	}
	return out
}

// TopTraits returns up to n trait names ordered by descending value, ties by name.
func TopTraits[V int | float64](traits map[string]V, n int) []string {
	names := SortedNames(traits)
	sort.SliceStable(names, func(i, j int) bool {
		return traits[names[i]] > traits[names[j]]
	})
	if n < len(names) {
		names = names[:n]
	}
	return names
}
