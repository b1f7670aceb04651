package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/ai/gemini"
	"github.com/spigell/riasec-matcher/internal/assessment"
	"github.com/spigell/riasec-matcher/internal/catalog"
	"github.com/spigell/riasec-matcher/internal/embedding"
	"github.com/spigell/riasec-matcher/internal/logger"
	"github.com/spigell/riasec-matcher/internal/matching"
	"github.com/spigell/riasec-matcher/internal/metrics"
	"github.com/spigell/riasec-matcher/internal/questions"
	"github.com/spigell/riasec-matcher/internal/riasec"
	"github.com/spigell/riasec-matcher/internal/scoring"
	"github.com/spigell/riasec-matcher/internal/secrets"
	"github.com/spigell/riasec-matcher/internal/session"
	"github.com/spigell/riasec-matcher/internal/storage"
)

const sessionKeyPrefix = "riasec:session:"

// setup builds the logger and loads the config. Failures are fatal.
func setup() (*Config, *zap.Logger) {
	logger, err := logger.New(logger.Options{
		JSON:    viper.GetBool("json"),
		Debug:   viper.GetBool("debug"),
		Level:   viper.GetString("log.level"),
		App:     app,
		Version: version,
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("starting")
	return config, logger
}

// userMessage turns core errors into what a person can act on.
func userMessage(err error) string {
	switch {
	case errors.Is(err, matching.ErrMissingCategoryCode),
		errors.Is(err, storage.ErrResultNotFound),
		errors.Is(err, assessment.ErrNotFinished):
		return "please complete the assessment first"
	case assessment.IsRetryable(err), errors.Is(err, session.ErrLockTimeout):
		return "please try again"
	case errors.Is(err, assessment.ErrSessionNotFound):
		return "assessment session not found, start a new one"
	default:
		return err.Error()
	}
}

func newRedis(cfg *Config) (*redis.Client, error) {
	if cfg.Redis == nil {
		return nil, errors.New("redis is not configured")
	}
	password, err := secrets.Optional(secrets.Source{
		Name:  "redis password",
		File:  cfg.Redis.PasswordFile,
		Env:   "REDIS_PASSWORD",
		Value: cfg.Redis.Password,
	})
	if err != nil {
		return nil, err
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: password,
		DB:       cfg.Redis.DB,
	}), nil
}

func openDB(cfg *Config, log *zap.Logger) (*storage.DB, error) {
	db, err := storage.Open(cfg.Database.Path, log.With(zap.String("component", "storage")))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func newEmbedder(ctx context.Context, cfg *EmbeddingConfig, log *zap.Logger) (embedding.Provider, error) {
	var provider embedding.Provider

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "hash":
		provider = embedding.NewHash(cfg.Dimension)
	case "gemini":
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			File:  cfg.Gemini.APIKeyFile,
			Env:   "GEMINI_API_KEY",
			Value: cfg.Gemini.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.gemini.api-key-file or GEMINI_API_KEY)", err)
		}

		embedder, err := gemini.NewEmbedder(ctx, gemini.Config{
			APIKey:     apiKey,
			Model:      cfg.Gemini.Model,
			Dimension:  cfg.Dimension,
			MaxRetries: cfg.Gemini.MaxRetries,
		}, log)
		if err != nil {
			return nil, err
		}
		provider = embedder
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		provider = embedding.NewCached(provider, cfg.CacheSize)
	}
	return provider, nil
}

func newAssessmentService(cfg *Config, db *storage.DB, m *metrics.Metrics, log *zap.Logger) (*assessment.Service, error) {
	order, err := riasec.ParseOrder(cfg.Assessment.CategoryOrder)
	if err != nil {
		return nil, err
	}

	var bank *questions.Bank
	if cfg.Assessment.QuestionsFile != "" {
		bank, err = questions.LoadFile(cfg.Assessment.QuestionsFile, order)
	} else {
		bank, err = questions.Default(order)
	}
	if err != nil {
		return nil, fmt.Errorf("loading question bank: %w", err)
	}

	var scoringOpts []scoring.Option
	if cfg.Assessment.TextEnrichment {
		scoringOpts = append(scoringOpts, scoring.WithTextEnrichment(scoring.DefaultEnrichment))
	}
	scorer, err := scoring.New(bank, log.With(zap.String("component", "scoring")), scoringOpts...)
	if err != nil {
		return nil, err
	}

	engine, err := assessment.NewEngine(bank, scorer, assessment.Config{
		Order:               order,
		Threshold:           cfg.Assessment.TieThreshold,
		MaxQuestionsPerPair: cfg.Assessment.MaxQuestionsPerPair,
		ShuffleMainOrder:    cfg.Assessment.ShuffleMainOrder,
		RandomLeaderDraw:    cfg.Assessment.RandomLeaderDraw,
	}, log.With(zap.String("component", "assessment")), m)
	if err != nil {
		return nil, err
	}

	var (
		store  session.Store[assessment.State]
		locker session.Locker
	)
	switch cfg.Session.Backend {
	case "redis":
		client, err := newRedis(cfg)
		if err != nil {
			return nil, err
		}
		store = session.NewRedis[assessment.State](client, sessionKeyPrefix, cfg.Session.TTL, log)
		locker = session.NewRedisLocker(client, cfg.Session.LockTTL, 0, log)
	default:
		store = assessment.NewMemoryStore()
		locker = session.NewLocal()
	}

	var opts []assessment.ServiceOption
	if db != nil {
		opts = append(opts, assessment.WithRecorder(db))
	}
	return assessment.NewService(engine, store, locker, log, opts...), nil
}

func newCatalogReader(cfg *Config, db *storage.DB, log *zap.Logger) (catalog.Reader, error) {
	switch cfg.Catalog.Source {
	case "http":
		token, err := secrets.Optional(secrets.Source{
			Name:  "catalog token",
			File:  cfg.Catalog.TokenFile,
			Env:   "CATALOG_TOKEN",
			Value: cfg.Catalog.Token,
		})
		if err != nil {
			return nil, err
		}
		return catalog.NewHTTPReader(cfg.Catalog.URL, token, cfg.Catalog.PageSize, log.With(zap.String("component", "catalog"))), nil
	case "file":
		return catalog.NewFileReader(cfg.Catalog.File), nil
	default:
		if db == nil {
			return nil, errors.New("sqlite catalog requires a database")
		}
		return db.Jobs(cfg.Catalog.PageSize), nil
	}
}

func newRecommender(ctx context.Context, cfg *Config, jobs catalog.Reader, m *metrics.Metrics, log *zap.Logger) (*matching.Recommender, error) {
	order, err := riasec.ParseOrder(cfg.Assessment.CategoryOrder)
	if err != nil {
		return nil, err
	}

	provider, err := newEmbedder(ctx, cfg.Embedding, log)
	if err != nil {
		return nil, fmt.Errorf("building embedding provider: %w", err)
	}

	matchLog := log.With(zap.String("component", "matching"))
	scorer, err := matching.NewScorer(provider, matchLog,
		matching.WithWeights(cfg.Matching.Weights),
		matching.WithOrder(order),
		matching.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	assembler := matching.NewAssembler(scorer, matchLog,
		matching.WithWorkers(cfg.Matching.Workers),
		matching.WithMaxCodeLength(cfg.Matching.MaxCodeLength),
		matching.WithAssemblerOrder(order),
		matching.WithAssemblerMetrics(m),
	)
	return matching.NewRecommender(assembler, jobs, matchLog)
}

func writeMetrics(cfg *Config, m *metrics.Metrics, log *zap.Logger) {
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn("writing metrics textfile", zap.Error(err))
	}
}
