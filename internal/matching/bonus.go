package matching

import (
	"fmt"
	"strings"

	"github.com/spigell/riasec-matcher/internal/catalog"
)

const ruleKeywordLength = 4

var fillerWords = map[string]bool{
	"and": true, "or": true, "the": true, "a": true, "an": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "with": true, "by": true,
	"of": true, "field": true, "area": true, "domain": true, "sector": true,
}

var blankFields = map[string]bool{
	"": true, "not specified": true, "none": true, "undefined": true,
}

// BonusInput is what bonus rules look at.
type BonusInput struct {
	Keywords       []string
	Job            *catalog.Job
	MatchedCluster string
}

// BonusRule awards flat points when Match holds.
type BonusRule struct {
	Name   string
	Points int
	// Reason is a format string taking the field of study.
	Reason string
	Match  func(in BonusInput) bool
}

// BonusRules are evaluated in order; the first matching rule wins.
type BonusRules []BonusRule

// Bonus is the awarded field bonus.
type Bonus struct {
	Points int
	Rule   string
	Reason string
}

// DefaultBonusRules returns the title, family, cluster and skills tiers.
func DefaultBonusRules() BonusRules {
	return BonusRules{
		{
			Name:   "title-lead",
			Points: 15,
			Reason: "Perfect field-title match: %s (+15 bonus)",
			Match: func(in BonusInput) bool {
				lead := strings.Fields(strings.ToLower(in.Job.Title))
				if len(lead) > 2 {
					lead = lead[:2]
				}
				return anyKeyword(in.Keywords, func(kw string) bool {
					for _, w := range lead {
						if w == kw {
							return true
						}
					}
					return false
				})
			},
		},
		{
			Name:   "family",
			Points: 10,
			Reason: "Field-category match: %s (+10 bonus)",
			Match: func(in BonusInput) bool {
				family := strings.ToLower(in.Job.Family)
				return anyKeyword(in.Keywords, func(kw string) bool {
					return strings.Contains(family, kw)
				})
			},
		},
		{
			Name:   "cluster",
			Points: 6,
			Reason: "Field-cluster alignment: %s (+6 bonus)",
			Match: func(in BonusInput) bool {
				cluster := strings.ToLower(in.MatchedCluster)
				return cluster != "" && anyKeyword(in.Keywords, func(kw string) bool {
					return strings.Contains(cluster, kw)
				})
			},
		},
		{
			Name:   "skills-description",
			Points: 4,
			Reason: "Skills/description match: %s (+4 bonus)",
			Match: func(in BonusInput) bool {
				text := strings.ToLower(strings.Join(in.Job.Skills, " ") + " " + in.Job.Description + " " + in.Job.LearningPathway)
				hits := 0
				for _, kw := range in.Keywords {
					if len(kw) >= ruleKeywordLength && strings.Contains(text, kw) {
						hits++
					}
				}
				return hits >= 2
			},
		},
	}
}

func anyKeyword(keywords []string, fn func(string) bool) bool {
	for _, kw := range keywords {
		if len(kw) >= ruleKeywordLength && fn(kw) {
			return true
		}
	}
	return false
}

// FieldKeywords extracts keywords from a field of study: filler words and
// words of two letters or fewer are dropped. When nothing is left the whole
// field is the keyword. Placeholders such as "none" yield nothing.
func FieldKeywords(field string) []string {
	field = strings.ToLower(strings.TrimSpace(field))
	if blankFields[field] {
		return nil
	}

	var keywords []string
	for _, w := range strings.Fields(field) {
		if !fillerWords[w] && len(w) > 2 {
			keywords = append(keywords, w)
		}
	}
	if len(keywords) == 0 {
		keywords = []string{field}
	}
	return keywords
}

// Evaluate returns the bonus of the first matching rule.
func (r BonusRules) Evaluate(field string, job *catalog.Job, matchedCluster string) Bonus {
	keywords := FieldKeywords(field)
	if len(keywords) == 0 {
		return Bonus{}
	}

	in := BonusInput{Keywords: keywords, Job: job, MatchedCluster: matchedCluster}
	for _, rule := range r {
		if rule.Match(in) {
			return Bonus{
				Points: rule.Points,
				Rule:   rule.Name,
				Reason: fmt.Sprintf(rule.Reason, strings.ToLower(strings.TrimSpace(field))),
			}
		}
	}
	return Bonus{}
}
