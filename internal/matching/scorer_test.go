package matching

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/riasec-matcher/internal/catalog"
)

func techProfile() Profile {
	return Profile{
		CategoryCode:     "RIA",
		Interests:        []string{"Technology"},
		TraitPercentiles: map[string]int{"analytical": 90},
	}
}

func techJob(id, code string) *catalog.Job {
	return &catalog.Job{
		ID:             id,
		Title:          "Developer",
		Family:         "Software",
		CategoryCode:   code,
		PrimaryCluster: "Technology",
		TraitScores:    map[string]float64{"analytical": 0.9},
	}
}

func TestCategoryScore(t *testing.T) {
	tests := []struct {
		user, job string
		want      float64
	}{
		{"RIA", "RIA", 1},
		{"RIA", "air", 1},
		{"RIA", "RI", 0.9},
		{"RIA", "R", 0.85},
		{"RIA", "RIC", 0},
		{"SAI", "SAIX", 0},
		{"", "R", 0},
		{"RIA", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.user+"/"+tt.job, func(t *testing.T) {
			assert.InDelta(t, tt.want, CategoryScore(tt.user, tt.job), 1e-9)
		})
	}
}

func TestWeightsValidate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())

	err := Weights{Category: 0.5, Interest: 0.5, Trait: 0.5}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1")

	err = Weights{Category: 1.2, Interest: -0.2}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")

	_, err = NewScorer(topicProvider{}, nil, WithWeights(Weights{}))
	require.Error(t, err)
}

func TestScoreBlendsFactors(t *testing.T) {
	s, err := NewScorer(topicProvider{}, zap.NewNop())
	require.NoError(t, err)

	res := s.Score(context.Background(), techProfile(), techJob("1", "RIA"))

	require.Empty(t, res.Err)
	assert.Equal(t, 90, res.MatchPercentage)
	assert.InDelta(t, 90.0, res.WeightedScore, 1e-9)
	assert.InDelta(t, 1.0, res.Breakdown.Category, 1e-9)
	assert.InDelta(t, 1.0, res.Breakdown.Interest, 1e-9)
	assert.InDelta(t, 1.0, res.Breakdown.Trait, 1e-9)
	assert.InDelta(t, 0.0, res.Breakdown.Text, 1e-9)
	assert.Equal(t, "Technology", res.MatchedCluster)
	assert.Equal(t, "Technology", res.PrimaryCluster)
	assert.Equal(t, []string{
		"Perfect RIASEC match: RIA",
		"Excellent match with Technology cluster",
		"Strong aptitude fit",
	}, res.Reasoning)
}

func TestScoreFieldBonusIsClamped(t *testing.T) {
	s, err := NewScorer(topicProvider{}, nil)
	require.NoError(t, err)

	p := techProfile()
	p.FieldOfStudy = "Software Engineering"
	job := techJob("1", "RIA")
	job.Title = "Software Developer"

	res := s.Score(context.Background(), p, job)

	assert.Equal(t, 100, res.MatchPercentage)
	assert.Equal(t, 15, res.Breakdown.FieldBonus)
	assert.Contains(t, res.Reasoning, "Perfect field-title match: software engineering (+15 bonus)")
}

func TestScoreStrictCategoryMismatch(t *testing.T) {
	s, err := NewScorer(topicProvider{}, nil)
	require.NoError(t, err)

	p := techProfile()
	p.CategoryCode = "SAI"
	res := s.Score(context.Background(), p, techJob("1", "SAIX"))

	assert.Zero(t, res.Breakdown.Category)
	assert.NotContains(t, strings.Join(res.Reasoning, "\n"), "RIASEC")
}

func TestScoreBoundedOnEmptyInputs(t *testing.T) {
	s, err := NewScorer(topicProvider{}, nil)
	require.NoError(t, err)

	res := s.Score(context.Background(), Profile{CategoryCode: "RIA"}, &catalog.Job{ID: "x"})

	assert.Empty(t, res.Err)
	assert.GreaterOrEqual(t, res.MatchPercentage, 0)
	assert.LessOrEqual(t, res.MatchPercentage, 100)
	assert.InDelta(t, neutralTraitScore, res.Breakdown.Trait, 1e-9)
	assert.Equal(t, []string{defaultReason}, res.Reasoning)
}

func TestScoreEmbeddingFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s, err := NewScorer(topicProvider{failOn: "Developer"}, zap.New(core))
	require.NoError(t, err)

	res := s.Score(context.Background(), techProfile(), techJob("7", "RIA"))

	assert.Equal(t, "7", res.JobID)
	assert.Zero(t, res.MatchPercentage)
	assert.Zero(t, res.Breakdown)
	assert.Contains(t, res.Err, errEmbed.Error())
	require.Len(t, res.Reasoning, 1)
	assert.True(t, strings.HasPrefix(res.Reasoning[0], "Error in calculation: "))

	entries := logs.FilterMessage("scoring job failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "7", entries[0].ContextMap()["job_id"])
}

func TestScoreFallsBackToMatchedCluster(t *testing.T) {
	s, err := NewScorer(topicProvider{}, nil)
	require.NoError(t, err)

	job := techJob("1", "RIA")
	job.PrimaryCluster = ""
	job.SecondaryClusters = []string{"Business", "Technology"}

	res := s.Score(context.Background(), techProfile(), job)

	assert.Equal(t, "Technology", res.MatchedCluster)
	assert.Equal(t, "Technology", res.PrimaryCluster)
}
