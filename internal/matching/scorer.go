package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/catalog"
	"github.com/spigell/riasec-matcher/internal/embedding"
	"github.com/spigell/riasec-matcher/internal/metrics"
	"github.com/spigell/riasec-matcher/internal/riasec"
)

const (
	// perfectSimilarity ends the interest search early.
	perfectSimilarity = 0.95
	neutralTraitScore = 0.5
	defaultReason     = "Good career match based on your profile"
)

// Weights blend the four factors. They must sum to one.
type Weights struct {
	Category float64 `mapstructure:"category" json:"category"`
	Interest float64 `mapstructure:"interest" json:"interest"`
	Trait    float64 `mapstructure:"trait" json:"trait"`
	Text     float64 `mapstructure:"text" json:"text"`
}

func DefaultWeights() Weights {
	return Weights{Category: 0.40, Interest: 0.35, Trait: 0.15, Text: 0.10}
}

func (w Weights) Validate() error {
	var errs []error
	for name, v := range map[string]float64{"category": w.Category, "interest": w.Interest, "trait": w.Trait, "text": w.Text} {
		if v < 0 || math.IsNaN(v) {
			errs = append(errs, fmt.Errorf("weight %s must be non-negative, got %v", name, v))
		}
	}
	if sum := w.Category + w.Interest + w.Trait + w.Text; math.Abs(sum-1) > 1e-6 {
		errs = append(errs, fmt.Errorf("weights must sum to 1, got %v", sum))
	}
	return errors.Join(errs...)
}

// Breakdown holds the per-factor similarities in [0,1] and the flat bonus.
type Breakdown struct {
	Category   float64 `json:"category"`
	Interest   float64 `json:"interest"`
	Trait      float64 `json:"trait"`
	Text       float64 `json:"text"`
	FieldBonus int     `json:"field_bonus"`
}

// MatchResult is the score of one job for one profile.
type MatchResult struct {
	JobID           string       `json:"job_id"`
	Title           string       `json:"job_title"`
	Family          string       `json:"family_title,omitempty"`
	CategoryCode    string       `json:"riasec_code,omitempty"`
	MatchPercentage int          `json:"match_percentage"`
	Breakdown       Breakdown    `json:"similarity_breakdown"`
	WeightedScore   float64      `json:"weighted_score"`
	PrimaryCluster  string       `json:"primary_cluster,omitempty"`
	MatchedCluster  string       `json:"matched_cluster,omitempty"`
	Clusters        []string     `json:"all_clusters,omitempty"`
	Reasoning       []string     `json:"reasoning"`
	Err             string       `json:"error,omitempty"`
	Job             *catalog.Job `json:"job,omitempty"`
}

// CategoryScore compares category codes. Identical letter sets score 1; a
// job whose letters are a subset of the user's scores 0.8 plus 0.05 per
// letter, capped at 1; anything else scores 0.
func CategoryScore(userCode, jobCode string) float64 {
	user := riasec.Letters(userCode)
	job := riasec.Letters(jobCode)
	if len(user) == 0 || len(job) == 0 {
		return 0
	}

	for r := range job {
		if !user[r] {
			return 0
		}
	}
	if len(job) == len(user) {
		return 1
	}
	return math.Min(1, 0.8+0.05*float64(len(riasec.NormalizeCode(jobCode))))
}

// Scorer computes match results. It is safe for concurrent use when the
// provider is.
type Scorer struct {
	provider embedding.Provider
	weights  Weights
	rules    BonusRules
	order    riasec.Order
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

func WithWeights(w Weights) ScorerOption {
	return func(s *Scorer) { s.weights = w }
}

func WithBonusRules(r BonusRules) ScorerOption {
	return func(s *Scorer) { s.rules = r }
}

func WithOrder(o riasec.Order) ScorerOption {
	return func(s *Scorer) { s.order = o }
}

func WithMetrics(m *metrics.Metrics) ScorerOption {
	return func(s *Scorer) { s.metrics = m }
}

func NewScorer(provider embedding.Provider, logger *zap.Logger, opts ...ScorerOption) (*Scorer, error) {
	if provider == nil {
		return nil, errors.New("scorer requires an embedding provider")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scorer{
		provider: provider,
		weights:  DefaultWeights(),
		rules:    DefaultBonusRules(),
		order:    riasec.DefaultOrder,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.weights.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Score rates the job for the profile. Embedding failures never escape: the
// result is zero and carries the error.
func (s *Scorer) Score(ctx context.Context, p Profile, job *catalog.Job) MatchResult {
	start := time.Now()

	res, err := s.score(ctx, p, job)
	s.metrics.JobScored(err != nil, time.Since(start))
	if err != nil {
		s.logger.Warn("scoring job failed", zap.String("job_id", job.ID), zap.Error(err))
		return MatchResult{
			JobID:          job.ID,
			Title:          job.Title,
			PrimaryCluster: job.PrimaryCluster,
			Reasoning:      []string{"Error in calculation: " + err.Error()},
			Err:            err.Error(),
			Job:            job,
		}
	}
	return res
}

func (s *Scorer) score(ctx context.Context, p Profile, job *catalog.Job) (MatchResult, error) {
	category := CategoryScore(p.Code(s.order), job.CategoryCode)

	interest, matched, err := s.interestSimilarity(ctx, p.Interests, job)
	if err != nil {
		return MatchResult{}, fmt.Errorf("interest similarity: %w", err)
	}

	trait := neutralTraitScore
	if len(p.TraitPercentiles) > 0 && len(job.TraitScores) > 0 {
		if trait, err = s.similarity(ctx, TraitText(p.TraitPercentiles), TraitText(job.TraitScores)); err != nil {
			return MatchResult{}, fmt.Errorf("trait similarity: %w", err)
		}
	}

	text, err := s.similarity(ctx, UserContext(p), JobContext(job))
	if err != nil {
		return MatchResult{}, fmt.Errorf("text similarity: %w", err)
	}

	bonus := s.rules.Evaluate(p.FieldOfStudy, job, matched)
	if bonus.Points > 0 {
		s.logger.Debug("field bonus",
			zap.String("job_id", job.ID),
			zap.String("rule", bonus.Rule),
			zap.Int("points", bonus.Points),
		)
	}

	weighted := category*s.weights.Category +
		interest*s.weights.Interest +
		trait*s.weights.Trait +
		text*s.weights.Text
	base := weighted * 100

	primary := job.PrimaryCluster
	if primary == "" {
		primary = matched
	}

	return MatchResult{
		JobID:           job.ID,
		Title:           job.Title,
		Family:          job.Family,
		CategoryCode:    job.CategoryCode,
		MatchPercentage: clampPercent(base + float64(bonus.Points)),
		Breakdown: Breakdown{
			Category:   category,
			Interest:   interest,
			Trait:      trait,
			Text:       text,
			FieldBonus: bonus.Points,
		},
		WeightedScore:  math.Round(base*10) / 10,
		PrimaryCluster: primary,
		MatchedCluster: matched,
		Clusters:       job.Clusters(),
		Reasoning:      reasoning(job, category, interest, trait, matched, bonus),
		Job:            job,
	}, nil
}

func (s *Scorer) interestSimilarity(ctx context.Context, interests []string, job *catalog.Job) (float64, string, error) {
	clusters := clusterTexts(job)
	if len(interests) == 0 || len(clusters) == 0 {
		return 0, "", nil
	}

	best, bestCluster := 0.0, ""
	for _, interest := range interests {
		if interest == "" {
			continue
		}
		iv, err := s.provider.Embed(ctx, InterestText(interest))
		if err != nil {
			return 0, "", err
		}

		for _, c := range clusters {
			cv, err := s.provider.Embed(ctx, c.text)
			if err != nil {
				return 0, "", err
			}

			sim := embedding.Cosine(iv, cv)
			if sim > best {
				best, bestCluster = sim, c.name
			}
			if sim > perfectSimilarity {
				return sim, c.name, nil
			}
		}
	}
	return best, bestCluster, nil
}

func (s *Scorer) similarity(ctx context.Context, a, b string) (float64, error) {
	av, err := s.provider.Embed(ctx, a)
	if err != nil {
		return 0, err
	}
	bv, err := s.provider.Embed(ctx, b)
	if err != nil {
		return 0, err
	}
	return embedding.Cosine(av, bv), nil
}

func reasoning(job *catalog.Job, category, interest, trait float64, matched string, bonus Bonus) []string {
	var lines []string

	switch {
	case category >= 0.9:
		lines = append(lines, "Perfect RIASEC match: "+job.CategoryCode)
	case category >= 0.7:
		lines = append(lines, "Strong RIASEC alignment: "+job.CategoryCode)
	}

	switch {
	case interest >= 0.8:
		lines = append(lines, fmt.Sprintf("Excellent match with %s cluster", matched))
	case interest >= 0.6:
		lines = append(lines, fmt.Sprintf("Good match with %s cluster", matched))
	}

	if trait >= 0.7 {
		lines = append(lines, "Strong aptitude fit")
	}

	if bonus.Reason != "" {
		lines = append(lines, bonus.Reason)
	}

	if len(lines) == 0 {
		lines = append(lines, defaultReason)
	}
	return lines
}

func clampPercent(v float64) int {
	r := math.Round(v)
	switch {
	case math.IsNaN(r) || r < 0:
		return 0
	case r > 100:
		return 100
	default:
		return int(r)
	}
}
