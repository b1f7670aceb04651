// Package matching scores catalog jobs against a user profile and assembles
// recommendations grouped by interest cluster.
package matching

import (
	"errors"

	"github.com/spigell/riasec-matcher/internal/assessment"
	"github.com/spigell/riasec-matcher/internal/riasec"
)

// ErrMissingCategoryCode is returned when a profile has neither category
// scores nor a category code.
var ErrMissingCategoryCode = errors.New("profile has no category code, complete the assessment first")

// Profile is the user side of a match.
type Profile struct {
	CategoryScores   riasec.Scores  `json:"category_scores,omitempty"`
	CategoryCode     string         `json:"category_code,omitempty"`
	Interests        []string       `json:"interests,omitempty"`
	TraitPercentiles map[string]int `json:"trait_percentiles,omitempty"`
	FieldOfStudy     string         `json:"field_of_study,omitempty"`
	Education        string         `json:"education,omitempty"`
	ExperienceYears  int            `json:"experience_years,omitempty"`
}

// ProfileFromResult seeds a profile with a finalized assessment.
func ProfileFromResult(res *assessment.Result) Profile {
	return Profile{
		CategoryScores:   res.CategoryScores.Clone(),
		CategoryCode:     res.CategoryCode,
		TraitPercentiles: res.TraitPercentiles,
	}
}

func (p Profile) hasScores() bool {
	return len(p.CategoryScores) > 0 && p.CategoryScores.Total() > 0
}

// Code returns the category code, derived from scores when not set.
func (p Profile) Code(order riasec.Order) string {
	if code := riasec.NormalizeCode(p.CategoryCode); code != "" {
		return code
	}
	if p.hasScores() {
		return p.CategoryScores.Code(order, 3)
	}
	return ""
}

// Ranked returns the categories strongest first. The letters of the
// category code lead, so a drawn code and the ranking agree; with scores
// the remaining categories follow in score order.
func (p Profile) Ranked(order riasec.Order) []riasec.Category {
	seen := make(map[riasec.Category]bool)
	var out []riasec.Category
	add := func(c riasec.Category) {
		if c.Valid() && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	for _, r := range riasec.NormalizeCode(p.CategoryCode) {
		add(riasec.Category(string(r)))
	}
	if p.hasScores() {
		for _, c := range p.CategoryScores.Top(order, len(order)) {
			add(c)
		}
	}
	return out
}
