package matching

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spigell/riasec-matcher/internal/catalog"
)

const (
	contextSep     = " | "
	contextSkills  = 5
	contextTraits  = 3
	interestPrefix = "Interest: "
)

// UserContext composes the free-text description of the user. The field of
// study appears twice to weigh it up.
func UserContext(p Profile) string {
	var parts []string
	if p.Education != "" {
		parts = append(parts, "Education: "+p.Education)
	}
	if p.FieldOfStudy != "" {
		parts = append(parts, "Field: "+p.FieldOfStudy, "Specialization: "+p.FieldOfStudy)
	}
	if p.ExperienceYears > 0 {
		parts = append(parts, fmt.Sprintf("Experience: %d years", p.ExperienceYears))
	}
	if len(p.Interests) > 0 {
		parts = append(parts, "Interests: "+strings.Join(p.Interests, " "))
	}
	if len(p.TraitPercentiles) > 0 {
		var top []string
		for _, name := range topByValue(p.TraitPercentiles, contextTraits) {
			top = append(top, name+":"+strconv.Itoa(p.TraitPercentiles[name]))
		}
		parts = append(parts, "Top Aptitudes: "+strings.Join(top, " "))
	}
	return strings.Join(parts, contextSep)
}

// JobContext composes the free-text description of a job. The family
// appears twice to weigh it up.
func JobContext(job *catalog.Job) string {
	var parts []string
	if job.Family != "" {
		parts = append(parts, "Field: "+job.Family, "Category: "+job.Family)
	}
	if job.Title != "" {
		parts = append(parts, "Role: "+job.Title)
	}
	if job.Description != "" {
		parts = append(parts, "Description: "+job.Description)
	}
	if len(job.Skills) > 0 {
		skills := job.Skills
		if len(skills) > contextSkills {
			skills = skills[:contextSkills]
		}
		parts = append(parts, "Skills: "+strings.Join(skills, " "))
	}
	if job.GrowthProjection != "" {
		parts = append(parts, "Growth: "+job.GrowthProjection)
	}
	if job.MarketDemand != "" {
		parts = append(parts, "Demand: "+job.MarketDemand)
	}
	if job.LearningPathway != "" {
		parts = append(parts, "Pathway: "+job.LearningPathway)
	}
	return strings.Join(parts, contextSep)
}

// InterestText is the embedded form of a user interest.
func InterestText(interest string) string {
	return interestPrefix + interest
}

type clusterText struct {
	name string
	text string
}

// clusterTexts lists the job clusters compared against interests: primary,
// then subcategories, then secondary, annotated with the category
// alignment when the job has one.
func clusterTexts(job *catalog.Job) []clusterText {
	seen := make(map[string]bool)
	var out []clusterText
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		text := name
		if job.ClusterAlignment != "" {
			text += " | RIASEC: " + job.ClusterAlignment
		}
		out = append(out, clusterText{name: name, text: text})
	}

	add(job.PrimaryCluster)
	for _, c := range job.Subclusters {
		add(c)
	}
	for _, c := range job.SecondaryClusters {
		add(c)
	}
	return out
}

// TraitText serializes a trait map as name:value pairs sorted by name.
func TraitText[V int | float64](traits map[string]V) string {
	names := make([]string, 0, len(traits))
	for name := range traits {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s:%v", name, traits[name]))
	}
	return strings.Join(parts, " ")
}

func topByValue(m map[string]int, n int) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if m[names[i]] != m[names[j]] {
			return m[names[i]] > m[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}
