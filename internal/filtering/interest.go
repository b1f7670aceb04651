package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/catalog"
)

// InterestName is the name of the interest narrowing step.
const InterestName = "interest"

// significantWord is the length a word must exceed to count as a keyword.
const significantWord = 3

// MatchKind tells how a cluster matched an interest.
type MatchKind int

const (
	NoMatch MatchKind = iota
	ExactMatch
	PartialMatch
	KeywordMatch
)

func (k MatchKind) String() string {
	switch k {
	case ExactMatch:
		return "exact"
	case PartialMatch:
		return "partial"
	case KeywordMatch:
		return "keyword"
	default:
		return "none"
	}
}

// Keywords returns the lower-cased words of s longer than three letters.
func Keywords(s string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) > significantWord {
			out = append(out, w)
		}
	}
	return out
}

// Overlaps reports whether a and b are equal or one contains the other,
// ignoring case and surrounding space.
func Overlaps(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// MatchClusters checks job clusters against the interests. Exact matches win
// over containment, containment over a shared keyword.
func MatchClusters(clusters, interests []string) MatchKind {
	wanted := make(map[string]bool, len(interests))
	keywords := make(map[string]bool)
	for _, interest := range interests {
		interest = strings.ToLower(strings.TrimSpace(interest))
		if interest == "" {
			continue
		}
		wanted[interest] = true
		for _, w := range Keywords(interest) {
			keywords[w] = true
		}
	}

	best := NoMatch
	for _, cluster := range clusters {
		c := strings.ToLower(strings.TrimSpace(cluster))
		if c == "" {
			continue
		}
		if wanted[c] {
			return ExactMatch
		}
		for interest := range wanted {
			if Overlaps(c, interest) {
				best = PartialMatch
			}
		}
	}
	if best != NoMatch {
		return best
	}

	for _, cluster := range clusters {
		for _, w := range strings.Fields(strings.ToLower(cluster)) {
			if keywords[w] {
				return KeywordMatch
			}
		}
	}
	return NoMatch
}

// InterestFilter keeps jobs tagged with one of the user's interest
// clusters. Without interests it passes everything through.
type InterestFilter struct {
	interests []string
	disabled  bool
	reason    string
}

func NewInterest() *InterestFilter {
	return &InterestFilter{}
}

func (f *InterestFilter) Name() string { return InterestName }

func (f *InterestFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *InterestFilter) IsEnabled() bool { return !f.disabled }

func (f *InterestFilter) Validate(cfg *Config) error {
	f.interests = nil
	if cfg != nil {
		for _, interest := range cfg.Interests {
			if strings.TrimSpace(interest) != "" {
				f.interests = append(f.interests, interest)
			}
		}
	}
	return nil
}

func (f *InterestFilter) Apply(_ context.Context, deps Deps, jobs *catalog.Jobs) (*catalog.Jobs, Step, error) {
	initial := jobs.Len()
	if len(f.interests) == 0 {
		return jobs, Step{Initial: initial, Left: initial}, nil
	}

	kept := jobs.Clone()
	kept.Retain(func(j *catalog.Job) bool {
		kind := MatchClusters(j.Clusters(), f.interests)
		if kind != NoMatch {
			deps.Logger.Debug("cluster matched interest",
				zap.String("job_id", j.ID),
				zap.String("match", kind.String()),
			)
		}
		return kind != NoMatch
	})

	return kept, Step{Initial: initial, Dropped: initial - kept.Len(), Left: kept.Len()}, nil
}

func (f *InterestFilter) Status() Status {
	details := map[string]string{}
	if len(f.interests) > 0 {
		details["interests"] = strings.Join(f.interests, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
