package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cvmatch/internal/match"
	"github.com/spigell/cvmatch/internal/secrets"
	"github.com/spigell/cvmatch/internal/store"
)

const (
	app = "cvmatch"
)

type Config struct {
	Database *DatabaseConfig `mapstructure:"database"`
	AI       *AIConfig       `mapstructure:"ai"`
	Search   *SearchConfig   `mapstructure:"search"`
	Matching *MatchingConfig `mapstructure:"matching"`
}

type DatabaseConfig struct {
	DSN       string `mapstructure:"dsn"`
	DSNFile   string `mapstructure:"dsn-file"`
	VectorDim int    `mapstructure:"vector-dim"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	FallbackModel  string `mapstructure:"fallback-model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

type SearchConfig struct {
	WeightSimilarity float64       `mapstructure:"weight-similarity"`
	WeightMatchScore float64       `mapstructure:"weight-match-score"`
	WeightRecency    float64       `mapstructure:"weight-recency"`
	DecayDays        float64       `mapstructure:"decay-days"`
	RetryAttempts    int           `mapstructure:"retry-attempts"`
	RetryBaseDelay   time.Duration `mapstructure:"retry-base-delay"`
}

type MatchingConfig struct {
	ExtractionModel string  `mapstructure:"extraction-model"`
	EvaluatorModel  string  `mapstructure:"evaluator-model"`
	SearchLimit     int     `mapstructure:"search-limit"`
	MinScore        float64 `mapstructure:"min-score"`
	CandidateLimit  int     `mapstructure:"candidate-limit"`
	CitationTopK    int     `mapstructure:"citation-top-k"`
	MaxLogLength    int     `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cvmatch indexes candidate documents and evaluates how well they match job postings",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cvmatch.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// The version command works without any configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

func resolveDSN(config *Config) (string, error) {
	var dsn, dsnFile string
	if config != nil && config.Database != nil {
		dsn = config.Database.DSN
		dsnFile = config.Database.DSNFile
	}

	return secrets.Load(secrets.Source{
		Name:    "database dsn",
		Value:   dsn,
		File:    dsnFile,
		FileEnv: "DATABASE_DSN_FILE",
	})
}

func resolveAPIKey(config *Config) (string, error) {
	var key, keyFile string
	if config != nil && config.AI != nil && config.AI.Gemini != nil {
		key = config.AI.Gemini.APIKey
		keyFile = config.AI.Gemini.APIKeyFile
	}

	return secrets.Load(secrets.Source{
		Name:    "gemini api key",
		Value:   key,
		File:    keyFile,
		FileEnv: "GEMINI_API_KEY_FILE",
	})
}

func storeConfig(config *Config) store.Config {
	cfg := store.DefaultConfig()

	if config != nil && config.Database != nil && config.Database.VectorDim > 0 {
		cfg.VectorDim = config.Database.VectorDim
	}

	if config == nil || config.Search == nil {
		return cfg
	}

	search := config.Search
	if search.WeightSimilarity > 0 || search.WeightMatchScore > 0 || search.WeightRecency > 0 {
		cfg.Ranking.WeightSimilarity = search.WeightSimilarity
		cfg.Ranking.WeightMatchScore = search.WeightMatchScore
		cfg.Ranking.WeightRecency = search.WeightRecency
	}
	if search.DecayDays > 0 {
		cfg.Ranking.DecayDays = search.DecayDays
	}
	if search.RetryAttempts > 0 {
		cfg.Retry.Attempts = search.RetryAttempts
	}
	if search.RetryBaseDelay > 0 {
		cfg.Retry.BaseDelay = search.RetryBaseDelay
	}

	return cfg
}

func matchConfig(config *Config) match.Config {
	cfg := match.DefaultConfig()

	if config == nil || config.Matching == nil {
		return cfg
	}

	matching := config.Matching
	cfg.ExtractionModel = matching.ExtractionModel
	cfg.EvaluatorModel = matching.EvaluatorModel
	if matching.SearchLimit > 0 {
		cfg.SearchLimit = matching.SearchLimit
	}
	if matching.MinScore > 0 {
		cfg.MinScore = matching.MinScore
	}
	if matching.CandidateLimit > 0 {
		cfg.CandidateLimit = matching.CandidateLimit
	}
	if matching.CitationTopK > 0 {
		cfg.CitationTopK = matching.CitationTopK
	}
	if matching.MaxLogLength > 0 {
		cfg.MaxLogLength = matching.MaxLogLength
	}

	return cfg
}
