package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the engine and its CLI.
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// LLM configuration for the generative phase
	LLM LLMConfig `mapstructure:"llm"`

	// Embedding configuration for the semantic phase
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Pipeline configuration
	Pipeline PipelineConfig `mapstructure:"pipeline"`

	// Cache configuration
	Cache CacheConfig `mapstructure:"cache"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// Server configuration for the HTTP API
	Server ServerConfig `mapstructure:"server"`

	// Alert configuration for budget notifications
	Alert AlertConfig `mapstructure:"alert"`

	// RubricPath optionally points at a YAML rubric overriding the
	// default point values.
	RubricPath string `mapstructure:"rubric_path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LLMConfig holds configuration for the chat model.
type LLMConfig struct {
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	MaxRetries  int     `mapstructure:"max_retries"`
}

// EmbeddingConfig holds configuration for the embedding model.
type EmbeddingConfig struct {
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size"`
}

// WeightsConfig holds the fusion coefficients.
type WeightsConfig struct {
	Semantic      float64 `mapstructure:"semantic"`
	Deterministic float64 `mapstructure:"deterministic"`
	Generative    float64 `mapstructure:"generative"`
}

// PipelineConfig holds the phase sizes and fusion tuning.
type PipelineConfig struct {
	K1                 int           `mapstructure:"k1"`
	K2                 int           `mapstructure:"k2"`
	K3                 int           `mapstructure:"k3"`
	MinSimilarity      float64       `mapstructure:"min_similarity"`
	FullPoolOnNoHits   bool          `mapstructure:"full_pool_on_no_hits"`
	Weights            WeightsConfig `mapstructure:"weights"`
	Parallelism        int           `mapstructure:"parallelism"`
	CallTimeoutSeconds int           `mapstructure:"call_timeout_seconds"`
}

// CacheConfig holds the embedding cache settings.
type CacheConfig struct {
	// Dir is the on-disk cache location. Empty combined with InMemory
	// false disables persistence.
	Dir        string `mapstructure:"dir"`
	InMemory   bool   `mapstructure:"in_memory"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

// TelemetryConfig holds telemetry configuration.
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
	LedgerPath  string `mapstructure:"ledger_path"`
}

// CircuitBreakerConfig holds configuration for circuit breaking around
// the chat model.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// AlertConfig holds configuration for spend alerting. BudgetUSD is the
// cumulative ledger cost beyond which an alert fires; zero disables the
// check.
type AlertConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	BudgetUSD float64  `mapstructure:"budget_usd"`
	SMTPHost  string   `mapstructure:"smtp_host"`
	SMTPPort  int      `mapstructure:"smtp_port"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	From      string   `mapstructure:"from"`
	To        []string `mapstructure:"to"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// LLM defaults
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.max_retries", 2)

	// Embedding defaults
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimensions", 1536)
	viper.SetDefault("embedding.batch_size", 100)

	// Pipeline defaults
	viper.SetDefault("pipeline.k1", 50)
	viper.SetDefault("pipeline.k2", 15)
	viper.SetDefault("pipeline.k3", 5)
	viper.SetDefault("pipeline.min_similarity", 0.2)
	viper.SetDefault("pipeline.full_pool_on_no_hits", false)
	viper.SetDefault("pipeline.weights.semantic", 0.3)
	viper.SetDefault("pipeline.weights.deterministic", 0.4)
	viper.SetDefault("pipeline.weights.generative", 0.3)
	viper.SetDefault("pipeline.parallelism", 4)
	viper.SetDefault("pipeline.call_timeout_seconds", 60)

	// Cache defaults
	viper.SetDefault("cache.in_memory", false)
	viper.SetDefault("cache.sync_writes", false)
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("cache.dir", fmt.Sprintf("%s/.matchengine/cache", home))
		viper.SetDefault("telemetry.parquet_path", fmt.Sprintf("%s/.matchengine/telemetry", home))
		viper.SetDefault("telemetry.ledger_path", fmt.Sprintf("%s/.matchengine/ledger", home))
	}

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	// Alert defaults
	viper.SetDefault("alert.enabled", false)
	viper.SetDefault("alert.smtp_port", 587)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)
}

// overrideWithEnv overrides config with environment variables.
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.LLM.APIKey == "" {
			config.LLM.APIKey = apiKey
		}
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		if config.LLM.BaseURL == "" {
			config.LLM.BaseURL = baseURL
		}
		if config.Embedding.BaseURL == "" {
			config.Embedding.BaseURL = baseURL
		}
	}
	if dir := os.Getenv("MATCHENGINE_CACHE_DIR"); dir != "" {
		config.Cache.Dir = dir
	}
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
	if path := os.Getenv("MATCHENGINE_RUBRIC"); path != "" {
		config.RubricPath = path
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
