package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/riasec-matcher/internal/matching"
	"github.com/spigell/riasec-matcher/internal/riasec"
	"github.com/spigell/riasec-matcher/internal/tiebreak"
)

const (
	app       = "riasec-matcher"
	envPrefix = "RIASEC"
)

type Config struct {
	Assessment *AssessmentConfig `mapstructure:"assessment"`
	Session    *SessionConfig    `mapstructure:"session"`
	Redis      *RedisConfig      `mapstructure:"redis"`
	Database   *DatabaseConfig   `mapstructure:"database"`
	Catalog    *CatalogConfig    `mapstructure:"catalog"`
	Matching   *MatchingConfig   `mapstructure:"matching"`
	Embedding  *EmbeddingConfig  `mapstructure:"embedding"`
	Metrics    *MetricsConfig    `mapstructure:"metrics"`
}

type AssessmentConfig struct {
	TieThreshold        float64 `mapstructure:"tie-threshold"`
	MaxQuestionsPerPair int     `mapstructure:"max-questions-per-pair"`
	ShuffleMainOrder    bool    `mapstructure:"shuffle-main-order"`
	RandomLeaderDraw    bool    `mapstructure:"random-leader-draw"`
	CategoryOrder       string  `mapstructure:"category-order"`
	TextEnrichment      bool    `mapstructure:"text-enrichment"`
	QuestionsFile       string  `mapstructure:"questions-file"`
}

type SessionConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	LockTTL time.Duration `mapstructure:"lock-ttl"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password-file"`
	DB           int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type CatalogConfig struct {
	Source    string `mapstructure:"source"`
	URL       string `mapstructure:"url"`
	File      string `mapstructure:"file"`
	PageSize  int    `mapstructure:"page-size"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token-file"`
}

type MatchingConfig struct {
	MinScore      int              `mapstructure:"min-score"`
	Workers       int              `mapstructure:"workers"`
	MaxCodeLength int              `mapstructure:"max-code-length"`
	Weights       matching.Weights `mapstructure:"weights"`
}

type EmbeddingConfig struct {
	Provider  string        `mapstructure:"provider"`
	Dimension int           `mapstructure:"dimension"`
	CacheSize int           `mapstructure:"cache-size"`
	Gemini    *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "riasec-matcher runs an adaptive RIASEC assessment and matches the result against a job catalog",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is riasec-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults()
}

func setDefaults() {
	weights := matching.DefaultWeights()

	viper.SetDefault("log.level", "info")
	viper.SetDefault("assessment.tie-threshold", tiebreak.DefaultThreshold)
	viper.SetDefault("assessment.max-questions-per-pair", 3)
	viper.SetDefault("assessment.category-order", riasec.DefaultOrder.String())
	viper.SetDefault("session.backend", "memory")
	viper.SetDefault("session.ttl", 24*time.Hour)
	viper.SetDefault("session.lock-ttl", 30*time.Second)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("database.path", app+".db")
	viper.SetDefault("catalog.source", "sqlite")
	viper.SetDefault("catalog.page-size", 200)
	viper.SetDefault("matching.min-score", matching.DefaultMinScore)
	viper.SetDefault("matching.workers", 4)
	viper.SetDefault("matching.max-code-length", riasec.DefaultMaxCodeLength)
	viper.SetDefault("matching.weights.category", weights.Category)
	viper.SetDefault("matching.weights.interest", weights.Interest)
	viper.SetDefault("matching.weights.trait", weights.Trait)
	viper.SetDefault("matching.weights.text", weights.Text)
	viper.SetDefault("embedding.provider", "hash")
	viper.SetDefault("embedding.dimension", 384)
	viper.SetDefault("embedding.cache-size", 4096)
	viper.SetDefault("embedding.gemini.model", "text-embedding-004")
	viper.SetDefault("embedding.gemini.max-retries", 3)
}

func initConfig() {
	// A missing .env is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit config must exist; the default one is optional.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Assessment == nil {
		c.Assessment = &AssessmentConfig{}
	}
	if _, err := riasec.ParseOrder(c.Assessment.CategoryOrder); err != nil {
		errs = append(errs, fmt.Errorf("assessment.category-order: %w", err))
	}
	if err := tiebreak.ValidateThreshold(c.Assessment.TieThreshold); err != nil {
		errs = append(errs, fmt.Errorf("assessment.tie-threshold: %w", err))
	}
	if c.Assessment.MaxQuestionsPerPair < 1 {
		errs = append(errs, fmt.Errorf("assessment.max-questions-per-pair must be positive"))
	}

	if c.Session == nil {
		c.Session = &SessionConfig{Backend: "memory"}
	}
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Redis == nil || c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis session backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.backend must be memory or redis, got %q", c.Session.Backend))
	}

	if c.Catalog == nil {
		c.Catalog = &CatalogConfig{Source: "sqlite"}
	}
	switch c.Catalog.Source {
	case "sqlite":
	case "http":
		if c.Catalog.URL == "" {
			errs = append(errs, errors.New("catalog.url is required for the http catalog"))
		}
	case "file":
		if c.Catalog.File == "" {
			errs = append(errs, errors.New("catalog.file is required for the file catalog"))
		}
	default:
		errs = append(errs, fmt.Errorf("catalog.source must be sqlite, http or file, got %q", c.Catalog.Source))
	}

	if c.Database == nil || c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	if c.Matching == nil {
		c.Matching = &MatchingConfig{MinScore: matching.DefaultMinScore, Weights: matching.DefaultWeights()}
	}
	if c.Matching.MinScore < 0 || c.Matching.MinScore > 100 {
		errs = append(errs, fmt.Errorf("matching.min-score must be within 0..100, got %d", c.Matching.MinScore))
	}
	if err := c.Matching.Weights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("matching.weights: %w", err))
	}

	if c.Embedding == nil {
		c.Embedding = &EmbeddingConfig{Provider: "hash"}
	}
	switch c.Embedding.Provider {
	case "hash", "gemini":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider must be hash or gemini, got %q", c.Embedding.Provider))
	}
	if c.Embedding.Provider == "gemini" && c.Embedding.Gemini == nil {
		errs = append(errs, errors.New("embedding.gemini is required for the gemini provider"))
	}

	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{}
	}

	return errors.Join(errs...)
}
