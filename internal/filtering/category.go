package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/catalog"
	"github.com/spigell/riasec-matcher/internal/riasec"
)

const (
	// CategoryName is the name of the category compatibility step.
	CategoryName = "category"

	baseLetters    = 3
	widenedLetters = 4
)

// CategoryFilter keeps jobs whose code is an exact arrangement of the
// user's top three categories, widening to the top four when nothing
// survives.
type CategoryFilter struct {
	ranked  []riasec.Category
	maxLen  int
	letters []riasec.Category
	widened bool
}

func NewCategory() *CategoryFilter {
	return &CategoryFilter{}
}

func (f *CategoryFilter) Name() string { return CategoryName }

func (f *CategoryFilter) Disable(string) {}

func (f *CategoryFilter) IsEnabled() bool { return true }

func (f *CategoryFilter) Validate(cfg *Config) error {
	if cfg == nil || len(cfg.Ranked) < baseLetters {
		return fmt.Errorf("category ranking needs at least %d categories", baseLetters)
	}
	f.ranked = append([]riasec.Category(nil), cfg.Ranked...)
	f.maxLen = cfg.MaxCodeLength
	f.letters = nil
	f.widened = false
	return nil
}

func (f *CategoryFilter) Apply(_ context.Context, deps Deps, jobs *catalog.Jobs) (*catalog.Jobs, Step, error) {
	initial := jobs.Len()

	f.letters = f.ranked[:baseLetters]
	kept := f.keep(jobs, f.letters)

	if kept.Len() == 0 && len(f.ranked) >= widenedLetters {
		f.letters = f.ranked[:widenedLetters]
		f.widened = true
		kept = f.keep(jobs, f.letters)

		deps.Logger.Info("widening category filter",
			zap.Bool("widened", true),
			zap.String("letters", riasec.Join(f.letters)),
			zap.Int("left", kept.Len()),
		)
	}

	return kept, Step{Initial: initial, Dropped: initial - kept.Len(), Left: kept.Len()}, nil
}

func (f *CategoryFilter) keep(jobs *catalog.Jobs, letters []riasec.Category) *catalog.Jobs {
	allowed := riasec.AllowedCodes(letters, f.maxLen)
	kept := jobs.Clone()
	kept.Retain(func(j *catalog.Job) bool {
		return riasec.Compatible(j.CategoryCode, allowed)
	})
	return kept
}

// WidestCodes returns every code the category step can keep for the
// ranking, widened or not.
func WidestCodes(ranked []riasec.Category, maxLen int) riasec.CodeSet {
	return riasec.AllowedCodes(ranked[:min(len(ranked), widenedLetters)], maxLen)
}

// Letters returns the categories used by the last Apply.
func (f *CategoryFilter) Letters() []riasec.Category {
	return f.letters
}

// Widened reports whether the last Apply fell back to the top four.
func (f *CategoryFilter) Widened() bool {
	return f.widened
}

func (f *CategoryFilter) Status() Status {
	details := map[string]string{
		"widened": strconv.FormatBool(f.widened),
	}
	if len(f.letters) > 0 {
		details["letters"] = riasec.Join(f.letters)
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
