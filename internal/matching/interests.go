package matching

import "strings"

type standardCluster struct {
	key  string
	name string
}

// Checked in order; the first key contained in, or containing, the
// interest wins.
var standardClusters = []standardCluster{
	{key: "social and community service", name: "Social and Community Service"},
	{key: "healthcare and wellness", name: "Healthcare and Wellness"},
	{key: "finance and economics", name: "Finance and Economics"},
	{key: "technology", name: "Technology"},
	{key: "engineering", name: "Engineering"},
	{key: "business", name: "Business"},
	{key: "arts", name: "Arts"},
	{key: "education", name: "Education"},
}

// StandardClusters lists the interest cluster names users pick from.
func StandardClusters() []string {
	names := make([]string, 0, len(standardClusters))
	for _, c := range standardClusters {
		names = append(names, c.name)
	}
	return names
}

// NormalizeInterests maps common spellings to the standard cluster names.
// Unknown interests are kept trimmed; blanks are dropped.
func NormalizeInterests(interests []string) []string {
	out := make([]string, 0, len(interests))
	for _, interest := range interests {
		trimmed := strings.TrimSpace(interest)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)

		name := trimmed
		for _, c := range standardClusters {
			if strings.Contains(lower, c.key) || strings.Contains(c.key, lower) {
				name = c.name
				break
			}
		}
		out = append(out, name)
	}
	return out
}
