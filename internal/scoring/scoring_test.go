package scoring

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/riasec-matcher/internal/questions"
	"github.com/spigell/riasec-matcher/internal/riasec"
)

const testBank = `{
  "traitTaxonomy": "v1",
  "main": [
    {"id": 1, "prompt": "one", "options": [
      {"label": "A", "text": "fix", "category": "R", "traits": {"Technical": 1, "Spatial": 1}},
      {"label": "B", "text": "study", "category": "I", "traits": {"Analytical": 2, "Unknown": 5}}]},
    {"id": 2, "prompt": "two", "weight": 2, "hint": "repair machines", "options": [
      {"label": "A", "text": "draw", "category": "A", "traits": {"Creative": 1}},
      {"label": "B", "text": "help", "category": "S", "traits": {"Numerical": 1}}]}
  ],
  "tiebreak": [
    {"id": 3, "pair": "R-I", "prompt": "tie", "options": [
      {"label": "A", "text": "r", "category": "R", "traits": {"Technical": 9}},
      {"label": "B", "text": "i", "category": "I"}]}
  ]
}`

func newTestEngine(t *testing.T, logger *zap.Logger, opts ...Option) *Engine {
	t.Helper()
	bank, err := questions.Load([]byte(testBank), riasec.DefaultOrder)
	if err != nil {
		t.Fatalf("loading bank: %v", err)
	}
	engine, err := New(bank, logger, opts...)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	return engine
}

func TestComputeCategoriesAndTraits(t *testing.T) {
	engine := newTestEngine(t, nil)

	res := engine.Compute(map[int]string{1: "B", 2: "A", 3: "A"})

	if res.Categories[riasec.Investigative] != 1 {
		t.Fatalf("expected I=1, got %v", res.Categories[riasec.Investigative])
	}
	if res.Categories[riasec.Artistic] != 2 {
		t.Fatalf("expected weighted A=2, got %v", res.Categories[riasec.Artistic])
	}
	if res.Categories[riasec.Realistic] != 1 {
		t.Fatalf("expected tie-breaker to add R=1, got %v", res.Categories[riasec.Realistic])
	}

	if got := res.Traits[TraitLogicalReasoning]; got != 2 {
		t.Fatalf("expected Analytical remapped to Logical Reasoning=2, got %v", got)
	}
	if got := res.Traits[TraitCreative]; got != 2 {
		t.Fatalf("expected weighted Creative=2, got %v", got)
	}
	if got := res.Traits[TraitMechanical]; got != 0 {
		t.Fatalf("expected tie-breaker traits ignored, got Mechanical=%v", got)
	}
	if _, ok := res.Traits["Unknown"]; ok {
		t.Fatalf("expected unknown trait to be dropped")
	}
	if len(res.Traits) != len(KnownTraits) {
		t.Fatalf("expected %d traits, got %d", len(KnownTraits), len(res.Traits))
	}
	if len(res.Categories) != 6 {
		t.Fatalf("expected all categories present, got %v", res.Categories)
	}
}

func TestComputeSkipsMalformedAnswers(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	engine := newTestEngine(t, zap.New(core))

	res := engine.Compute(map[int]string{1: "A", 2: "Z", 42: "A"})

	if res.Categories[riasec.Realistic] != 1 {
		t.Fatalf("expected valid answer to count, got %v", res.Categories)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("expected 2 skipped answers, got %+v", res.Skipped)
	}
	if res.Skipped[0].QuestionID != 2 || res.Skipped[0].Reason != "unknown option" {
		t.Fatalf("unexpected skipped entry: %+v", res.Skipped[0])
	}
	if res.Skipped[1].QuestionID != 42 || res.Skipped[1].Reason != "unknown question" {
		t.Fatalf("unexpected skipped entry: %+v", res.Skipped[1])
	}

	entries := observed.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(entries))
	}
	if entries[0].ContextMap()["question_id"] != int64(2) {
		t.Fatalf("unexpected log context: %v", entries[0].ContextMap())
	}
}

func TestComputeIsMonotonic(t *testing.T) {
	engine := newTestEngine(t, nil)

	sequence := []struct {
		id    int
		label string
	}{{1, "A"}, {2, "B"}, {3, "B"}}

	answers := map[int]string{}
	prev := engine.Compute(answers)
	for _, step := range sequence {
		answers[step.id] = step.label
		next := engine.Compute(answers)
		for c, v := range prev.Categories {
			if next.Categories[c] < v {
				t.Fatalf("category %s decreased from %v to %v", c, v, next.Categories[c])
			}
		}
		for name, v := range prev.Traits {
			if next.Traits[name] < v {
				t.Fatalf("trait %s decreased from %v to %v", name, v, next.Traits[name])
			}
		}
		prev = next
	}
}

func TestTextEnrichment(t *testing.T) {
	engine := newTestEngine(t, nil, WithTextEnrichment(DefaultEnrichment))

	res := engine.Compute(map[int]string{2: "B"})

	if got := res.Traits[TraitMechanical]; got != 1 {
		t.Fatalf("expected hint to boost Mechanical, got %v", got)
	}
	if got := res.Traits[TraitNumerical]; got != 2 {
		t.Fatalf("expected weighted Numerical=2, got %v", got)
	}
}

func TestTraitRemapApply(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "renamed", input: "Technical", want: []string{TraitMechanical}},
		{name: "known passes through", input: TraitNumerical, want: []string{TraitNumerical}},
		{name: "unknown dropped", input: "Telepathy", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TraitRemapV1.Apply(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}

	if _, err := RemapFor("v9"); err == nil {
		t.Fatalf("expected unknown taxonomy error")
	}
}

func TestPercentiles(t *testing.T) {
	got := Percentiles(map[string]float64{"a": 4, "b": 1, "c": 0})
	if got["a"] != 100 || got["b"] != 25 || got["c"] != 0 {
		t.Fatalf("unexpected percentiles: %v", got)
	}

	zero := Percentiles(map[string]float64{"a": 0})
	if zero["a"] != 0 {
		t.Fatalf("expected zero percentiles, got %v", zero)
	}

	top := TopTraits(map[string]int{"x": 10, "y": 30, "z": 30}, 2)
	if len(top) != 2 || top[0] != "y" || top[1] != "z" {
		t.Fatalf("unexpected top traits: %v", top)
	}
}
