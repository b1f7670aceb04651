package scoring

import (
	"regexp"
	"strings"
)

// EnrichmentRule adds one point to each listed trait when the pattern
// matches a question's hint text.
type EnrichmentRule struct {
	Pattern *regexp.Regexp
	Traits  []string
}

// DefaultEnrichment is the keyword table applied when text enrichment is on.
var DefaultEnrichment = []EnrichmentRule{
	{regexp.MustCompile(`mechanic|machin|tool|repair|operate|equipment|assembly`), []string{TraitMechanical, TraitSpatial}},
	{regexp.MustCompile(`design|creative|art|visual|graphic|illustrat|style|compose`), []string{TraitCreative, TraitWriting, TraitSpatial}},
	{regexp.MustCompile(`analy|research|study|evaluate|experiment|data|statistic`), []string{TraitLogicalReasoning, TraitScientific, TraitNumerical}},
	{regexp.MustCompile(`teach|help|support|counsel|mentor|coach`), []string{TraitSocial, TraitVerbal}},
	{regexp.MustCompile(`lead|manage|supervis|coordinate|direct|influence|persuad`), []string{TraitLeadership, TraitOrganizing}},
	{regexp.MustCompile(`software|digital|computer|\bit\b|program|code|data entry|excel`), []string{TraitDigital, TraitOrganizing}},
	{regexp.MustCompile(`write|document|report|communicat|present`), []string{TraitWriting, TraitVerbal}},
	{regexp.MustCompile(`budget|finance|cost|account|number|math|calculate`), []string{TraitNumerical}},
}

func enrich(rules []EnrichmentRule, text string) map[string]int {
	boosts := make(map[string]int)
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return boosts
	}
	for _, rule := range rules {
		if rule.Pattern.MatchString(text) {
			for _, trait := range rule.Traits {
				boosts[trait]++
			}
		}
	}
	return boosts
}
