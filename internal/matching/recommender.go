package matching

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/catalog"
)

// Recommender binds an assembler to a catalog source.
type Recommender struct {
	assembler *Assembler
	catalog   catalog.Reader
	logger    *zap.Logger
}

func NewRecommender(assembler *Assembler, jobs catalog.Reader, logger *zap.Logger) (*Recommender, error) {
	if assembler == nil || jobs == nil {
		return nil, errors.New("recommender requires an assembler and a catalog reader")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recommender{assembler: assembler, catalog: jobs, logger: logger}, nil
}

// GenerateRecommendations runs a full matching pass. A minScore below zero
// selects DefaultMinScore.
func (r *Recommender) GenerateRecommendations(ctx context.Context, p Profile, minScore int) (*Recommendations, error) {
	if minScore < 0 {
		minScore = DefaultMinScore
	}

	r.logger.Debug("generating recommendations",
		zap.String("code", p.Code(r.assembler.order)),
		zap.Strings("interests", p.Interests),
		zap.Int("min_score", minScore),
	)
	return r.assembler.Assemble(ctx, p, r.catalog, minScore)
}
