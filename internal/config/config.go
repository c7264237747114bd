package config

import (
	"errors"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	SerperAPIKey  string `mapstructure:"SERPER_API_KEY"`
	SerpAPIKey    string `mapstructure:"SERPAPI_API_KEY"`
	OpenAIAPIKey  string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel   string `mapstructure:"OPENAI_MODEL"`

	DateWindowDays     int      `mapstructure:"DATE_WINDOW_DAYS"`
	BatchSize          int      `mapstructure:"BATCH_SIZE"`
	LLMConcurrency     int      `mapstructure:"LLM_CONCURRENCY"`
	HTMLTruncationLen  int      `mapstructure:"HTML_TRUNCATION_LEN"`
	MaxRetries         int      `mapstructure:"MAX_RETRIES"`
	RetryBackoffSec    int      `mapstructure:"RETRY_BACKOFF_SEC"`
	FetchTimeoutSec    int      `mapstructure:"FETCH_TIMEOUT_SEC"`
	LLMTimeoutSec      int      `mapstructure:"LLM_TIMEOUT_SEC"`
	BlacklistPath      string   `mapstructure:"BLACKLIST_PATH"`
	BlacklistThreshold int      `mapstructure:"BLACKLIST_THRESHOLD"`
	RSSFeeds           []string `mapstructure:"RSS_FEEDS"`
	ExcludedDomains    []string `mapstructure:"EXCLUDED_DOMAINS"`

	PostgresURL       string `mapstructure:"POSTGRES_URL"`
	RedisAddr         string `mapstructure:"REDIS_ADDR"`
	DeduplicationDays int    `mapstructure:"DEDUPLICATION_DAYS"`
	MetricsAddr       string `mapstructure:"METRICS_ADDR"`
	RunIntervalHours  int    `mapstructure:"RUN_INTERVAL_HOURS"`
	TeamsWebhookURL   string `mapstructure:"TEAMS_WEBHOOK_URL"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	viper.SetDefault("OPENAI_MODEL", "gpt-4o")
	viper.SetDefault("DATE_WINDOW_DAYS", 7)
	viper.SetDefault("BATCH_SIZE", 4)
	viper.SetDefault("LLM_CONCURRENCY", 2)
	viper.SetDefault("HTML_TRUNCATION_LEN", 15000)
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("RETRY_BACKOFF_SEC", 2)
	viper.SetDefault("FETCH_TIMEOUT_SEC", 30) // per fetch attempt
	viper.SetDefault("LLM_TIMEOUT_SEC", 120)
	viper.SetDefault("BLACKLIST_PATH", "data/blacklist.json")
	viper.SetDefault("BLACKLIST_THRESHOLD", 3)
	viper.SetDefault("DEDUPLICATION_DAYS", 2)
	viper.SetDefault("RUN_INTERVAL_HOURS", 0) // 0 = single run

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations that would make the run fail after work
// has already started. Search keys are optional individually, but at least
// one candidate source must be configured.
func (c *Config) validate() error {
	if c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if c.SerperAPIKey == "" && c.SerpAPIKey == "" && len(c.RSSFeeds) == 0 {
		return errors.New("no search source configured: set SERPER_API_KEY, SERPAPI_API_KEY or RSS_FEEDS")
	}
	if c.BatchSize <= 0 || c.LLMConcurrency <= 0 {
		return errors.New("BATCH_SIZE and LLM_CONCURRENCY must be positive")
	}
	return nil
}
