package matching

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/riasec-matcher/internal/catalog"
	"github.com/spigell/riasec-matcher/internal/filtering"
	"github.com/spigell/riasec-matcher/internal/metrics"
	"github.com/spigell/riasec-matcher/internal/riasec"
)

const (
	DefaultMinScore = 80

	secondChanceScore = 60
	secondChanceJobs  = 5
	fallbackJobs      = 10
	jobsPerCluster    = 5
	otherCluster      = "Other"

	strategyTop3 = "top-3"
	strategyTop4 = "top-4"
)

// ClusterRecommendation is one interest cluster of the output.
type ClusterRecommendation struct {
	Name          string        `json:"name"`
	TotalJobs     int           `json:"total_jobs"`
	AverageMatch  int           `json:"average_match"`
	TopMatch      int           `json:"top_match"`
	UserRequested bool          `json:"user_requested"`
	Jobs          []MatchResult `json:"jobs"`
}

// FilterStats describes how the catalog was narrowed.
type FilterStats struct {
	TotalJobs              int      `json:"total_jobs"`
	CategoryFiltered       int      `json:"category_filtered"`
	InterestFiltered       int      `json:"interest_filtered"`
	QualityMatches         int      `json:"quality_matches"`
	ClusterCount           int      `json:"cluster_count"`
	RequestedClustersShown int      `json:"requested_clusters_shown"`
	TotalInterests         int      `json:"total_interests"`
	ReadErrors             int      `json:"read_errors,omitempty"`
	Strategy               string   `json:"strategy"`
	TopLetters             string   `json:"top_letters"`
	Interests              []string `json:"interests,omitempty"`
	Threshold              int      `json:"threshold"`
	Fallback               bool     `json:"fallback,omitempty"`
	EmptyReason            string   `json:"empty_reason,omitempty"`
}

// Recommendations is the grouped output of one matching pass.
type Recommendations struct {
	Clusters []ClusterRecommendation `json:"clusters"`
	Stats    FilterStats             `json:"filter_stats"`
	Profile  Profile                 `json:"profile"`
}

// Jobs returns the number of jobs shown across all clusters.
func (r *Recommendations) Jobs() int {
	n := 0
	for _, c := range r.Clusters {
		n += len(c.Jobs)
	}
	return n
}

// Assembler turns a catalog into ranked cluster recommendations.
type Assembler struct {
	scorer        *Scorer
	logger        *zap.Logger
	metrics       *metrics.Metrics
	workers       int
	order         riasec.Order
	maxCodeLength int
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithWorkers bounds concurrent scoring. One or less scores serially.
func WithWorkers(n int) AssemblerOption {
	return func(a *Assembler) { a.workers = n }
}

func WithMaxCodeLength(n int) AssemblerOption {
	return func(a *Assembler) { a.maxCodeLength = n }
}

func WithAssemblerOrder(o riasec.Order) AssemblerOption {
	return func(a *Assembler) { a.order = o }
}

func WithAssemblerMetrics(m *metrics.Metrics) AssemblerOption {
	return func(a *Assembler) { a.metrics = m }
}

func NewAssembler(scorer *Scorer, logger *zap.Logger, opts ...AssemblerOption) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Assembler{
		scorer:        scorer,
		logger:        logger,
		workers:       1,
		order:         riasec.DefaultOrder,
		maxCodeLength: riasec.DefaultMaxCodeLength,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble filters, scores and groups the catalog for the profile.
func (a *Assembler) Assemble(ctx context.Context, p Profile, jobs catalog.Reader, minScore int) (*Recommendations, error) {
	ranked := p.Ranked(a.order)
	if len(ranked) < 3 {
		return nil, ErrMissingCategoryCode
	}

	interests := NormalizeInterests(p.Interests)
	stats := FilterStats{
		TotalInterests: len(interests),
		Interests:      interests,
		Threshold:      minScore,
		Strategy:       strategyTop3,
	}
	out := &Recommendations{Clusters: []ClusterRecommendation{}, Profile: p}

	// Only jobs the category step could keep are held in memory.
	widest := filtering.WidestCodes(ranked, a.maxCodeLength)
	all, read, err := catalog.Stream(ctx, jobs, func(j *catalog.Job) bool {
		return riasec.Compatible(j.CategoryCode, widest)
	}, func(err error) {
		stats.ReadErrors++
		a.metrics.CatalogReadError()
		a.logger.Warn("skipping unreadable catalog record", zap.Error(err))
	})
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	stats.TotalJobs = read
	if read == 0 {
		stats.EmptyReason = "job catalog is empty"
		out.Stats = stats
		return out, nil
	}

	category := filtering.NewCategory()
	steps := []filtering.Filter{category, filtering.NewInterest()}
	if len(interests) == 0 {
		filtering.DisableByName(steps, filtering.InterestName, "no interests selected")
	}

	cfg := &filtering.Config{Ranked: ranked, MaxCodeLength: a.maxCodeLength, Interests: interests}
	candidates, reports, err := filtering.Run(ctx, cfg, filtering.Deps{Logger: a.logger}, steps, all)
	if err != nil {
		return nil, fmt.Errorf("filtering catalog: %w", err)
	}
	for _, r := range reports {
		if r.Name == filtering.CategoryName {
			stats.CategoryFiltered = r.Step.Left
		}
	}
	stats.InterestFiltered = candidates.Len()
	a.logger.Debug("filters applied", zap.Any("filters", filtering.Describe(steps)))
	if category.Widened() {
		stats.Strategy = strategyTop4
	}
	stats.TopLetters = riasec.Join(category.Letters())

	if candidates.Len() == 0 {
		stats.EmptyReason = fmt.Sprintf("no jobs compatible with %s for the selected interests", stats.TopLetters)
		out.Stats = stats
		a.logger.Info("no candidate jobs", zap.String("letters", stats.TopLetters))
		return out, nil
	}

	scored, err := a.scoreAll(ctx, p, candidates.Items)
	if err != nil {
		return nil, err
	}
	sortByMatch(scored)

	quality := make([]MatchResult, 0, len(scored))
	for _, r := range scored {
		if r.MatchPercentage >= minScore {
			quality = append(quality, r)
		}
	}
	stats.QualityMatches = len(quality)
	if len(quality) == 0 {
		quality = scored[:min(fallbackJobs, len(scored))]
		stats.Fallback = true
		a.logger.Info("no job reached the threshold, showing best matches",
			zap.Int("threshold", minScore),
			zap.Int("shown", len(quality)),
		)
	}

	groups := groupByCluster(quality)
	for _, interest := range interests {
		if represented(interest, groups) {
			continue
		}
		if extra := secondChance(interest, scored); len(extra) > 0 {
			a.logger.Debug("second chance matches for interest",
				zap.String("interest", interest),
				zap.Int("jobs", len(extra)),
			)
			groups = append(groups, clusterGroup{name: interest, jobs: extra})
		}
	}

	out.Clusters = buildClusters(groups, interests)
	stats.ClusterCount = len(out.Clusters)
	for _, c := range out.Clusters {
		if c.UserRequested {
			stats.RequestedClustersShown++
		}
	}
	out.Stats = stats

	a.metrics.Recommended(out.Jobs())
	a.logger.Info("assembled recommendations",
		zap.Int("candidates", candidates.Len()),
		zap.Int("quality", stats.QualityMatches),
		zap.Int("clusters", stats.ClusterCount),
		zap.String("strategy", stats.Strategy),
	)
	return out, nil
}

func (a *Assembler) scoreAll(ctx context.Context, p Profile, jobs []*catalog.Job) ([]MatchResult, error) {
	results := make([]MatchResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.workers, 1))
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.scorer.Score(gctx, p, job)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring jobs: %w", err)
	}
	return results, nil
}

type clusterGroup struct {
	name string
	jobs []MatchResult
}

func sortByMatch(results []MatchResult) {
	slices.SortStableFunc(results, func(a, b MatchResult) int {
		return cmp.Compare(b.MatchPercentage, a.MatchPercentage)
	})
}

func groupKey(r MatchResult) string {
	switch {
	case r.PrimaryCluster != "":
		return r.PrimaryCluster
	case r.MatchedCluster != "":
		return r.MatchedCluster
	default:
		return otherCluster
	}
}

// groupByCluster keeps first-seen order, then orders groups by size.
func groupByCluster(results []MatchResult) []clusterGroup {
	index := make(map[string]int)
	var groups []clusterGroup
	for _, r := range results {
		key := groupKey(r)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, clusterGroup{name: key})
		}
		groups[i].jobs = append(groups[i].jobs, r)
	}

	slices.SortStableFunc(groups, func(a, b clusterGroup) int {
		return cmp.Compare(len(b.jobs), len(a.jobs))
	})
	return groups
}

func represented(interest string, groups []clusterGroup) bool {
	keywords := filtering.Keywords(interest)
	for _, g := range groups {
		if filtering.Overlaps(interest, g.name) {
			return true
		}
		name := strings.ToLower(g.name)
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				return true
			}
		}
	}
	return false
}

func secondChance(interest string, scored []MatchResult) []MatchResult {
	var out []MatchResult
	for _, r := range scored {
		if r.MatchPercentage < secondChanceScore {
			continue
		}
		tagged := filtering.Overlaps(interest, r.PrimaryCluster)
		for _, c := range r.Clusters {
			if tagged {
				break
			}
			tagged = filtering.Overlaps(interest, c)
		}
		if tagged {
			out = append(out, r)
		}
		if len(out) == secondChanceJobs {
			break
		}
	}
	return out
}

func buildClusters(groups []clusterGroup, interests []string) []ClusterRecommendation {
	clusters := make([]ClusterRecommendation, 0, len(groups))
	for _, g := range groups {
		jobs := slices.Clone(g.jobs)
		sortByMatch(jobs)

		total := 0
		for _, j := range jobs {
			total += j.MatchPercentage
		}

		requested := false
		for _, interest := range interests {
			if filtering.Overlaps(interest, g.name) {
				requested = true
				break
			}
		}

		clusters = append(clusters, ClusterRecommendation{
			Name:          g.name,
			TotalJobs:     len(jobs),
			AverageMatch:  int(math.Round(float64(total) / float64(len(jobs)))),
			TopMatch:      jobs[0].MatchPercentage,
			UserRequested: requested,
			Jobs:          jobs[:min(jobsPerCluster, len(jobs))],
		})
	}

	slices.SortStableFunc(clusters, func(a, b ClusterRecommendation) int {
		if a.UserRequested != b.UserRequested {
			if a.UserRequested {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.AverageMatch, a.AverageMatch)
	})
	return clusters
}
