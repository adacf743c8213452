// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. JSON files (with comments) are
// accepted too. It provides typed structs for every subsystem (Server,
// Corpus, Search, Feedback, Redis, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Search   SearchConfig   `yaml:"search"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	RateLimit       int           `yaml:"rateLimit"`
	RateWindow      time.Duration `yaml:"rateWindow"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// CorpusConfig points at the document folder indexed at startup.
type CorpusConfig struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
}

// SearchConfig controls ranking defaults and query bounds.
type SearchConfig struct {
	DefaultModel      string        `yaml:"defaultModel"`
	DefaultMatch      string        `yaml:"defaultMatch"`
	DefaultLimit      int           `yaml:"defaultLimit"`
	MaxResults        int           `yaml:"maxResults"`
	FuzzyThreshold    float64       `yaml:"fuzzyThreshold"`
	ApproximateCutoff float64       `yaml:"approximateCutoff"`
	ApproximateTopN   int           `yaml:"approximateTopN"`
	SuggestionMax     int           `yaml:"suggestionMax"`
	SnippetLength     int           `yaml:"snippetLength"`
	QueryTimeout      time.Duration `yaml:"queryTimeout"`
	MaxVocabularyScan int           `yaml:"maxVocabularyScan"`
}

// FeedbackConfig selects where relevance judgements are persisted. Driver
// is one of file, postgres, mysql or sqlite.
type FeedbackConfig struct {
	Driver          string        `yaml:"driver"`
	Path            string        `yaml:"path"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	Topic         string        `yaml:"topic"`
	BatchSize     int           `yaml:"batchSize"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles span logging around index builds and queries.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".jsonc":
			data = jsonc.ToJSON(data)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Search.FuzzyThreshold < 0 || c.Search.FuzzyThreshold > 1 {
		return fmt.Errorf("search.fuzzyThreshold must be in [0,1], got %v", c.Search.FuzzyThreshold)
	}
	if c.Search.ApproximateCutoff < 0 || c.Search.ApproximateCutoff > 1 {
		return fmt.Errorf("search.approximateCutoff must be in [0,1], got %v", c.Search.ApproximateCutoff)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search.defaultLimit must be positive and not exceed maxResults")
	}
	switch c.Feedback.Driver {
	case "file":
		if c.Feedback.Path == "" {
			return fmt.Errorf("feedback.path is required for the file driver")
		}
	case "postgres", "mysql", "sqlite":
		if c.Feedback.DSN == "" {
			return fmt.Errorf("feedback.dsn is required for the %s driver", c.Feedback.Driver)
		}
	default:
		return fmt.Errorf("unknown feedback driver %q", c.Feedback.Driver)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
			RateLimit:       600,
			RateWindow:      time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Corpus: CorpusConfig{
			Dir:        "data/corpus",
			Extensions: []string{".txt", ".md", ".html"},
		},
		Search: SearchConfig{
			DefaultModel:      "vector",
			DefaultMatch:      "prefix",
			DefaultLimit:      10,
			MaxResults:        100,
			FuzzyThreshold:    0.30,
			ApproximateCutoff: 0.6,
			ApproximateTopN:   5,
			SuggestionMax:     5,
			SnippetLength:     180,
			QueryTimeout:      2 * time.Second,
			MaxVocabularyScan: 50000,
		},
		Feedback: FeedbackConfig{
			Driver:          "file",
			Path:            "data/feedback.json",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			Topic:         "search-events",
			BatchSize:     100,
			FlushInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads RM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RM_CORPUS_DIR"); v != "" {
		cfg.Corpus.Dir = v
	}
	if v := os.Getenv("RM_SEARCH_DEFAULT_MODEL"); v != "" {
		cfg.Search.DefaultModel = v
	}
	if v := os.Getenv("RM_SEARCH_FUZZY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.FuzzyThreshold = f
		}
	}
	if v := os.Getenv("RM_SEARCH_QUERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.QueryTimeout = d
		}
	}
	if v := os.Getenv("RM_FEEDBACK_DRIVER"); v != "" {
		cfg.Feedback.Driver = v
	}
	if v := os.Getenv("RM_FEEDBACK_PATH"); v != "" {
		cfg.Feedback.Path = v
	}
	if v := os.Getenv("RM_FEEDBACK_DSN"); v != "" {
		cfg.Feedback.DSN = v
	}
	if v := os.Getenv("RM_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("RM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("RM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RM_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("RM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("RM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
