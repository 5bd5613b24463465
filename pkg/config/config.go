package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	LogLevel string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// ProbeCacheTTL is the dedup window for recently probed URLs.
	// Zero disables the cache entirely (Redis is then never dialed).
	ProbeCacheTTL time.Duration

	// SourceListDir is the directory holding per-country source lists.
	SourceListDir string

	// RateLimit is the maximum outbound probes per second per country.
	RateLimit float64
	// BatchSize is the number of country units claimed per invocation.
	BatchSize int
	// UnitConcurrency bounds how many claimed countries run at once.
	UnitConcurrency int

	ProbeTimeout time.Duration
	MaxRedirects int
	UserAgent    string

	// StaleClaimAfter is how long a unit may sit in processing before a
	// later invocation reclaims it back to pending.
	StaleClaimAfter time.Duration
	// MaxRuntime bounds one invocation; claimed units not started before
	// the budget runs out are released back to pending.
	MaxRuntime time.Duration

	// ProgressWebhookURL, when set, routes progress snapshots to a webhook
	// instead of the structured log.
	ProgressWebhookURL string
	// MetricsPort, when set, exposes /metrics on that port.
	MetricsPort string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:       getEnv("POSTGRES_USER", "user"),
		PostgresPassword:   getEnv("POSTGRES_PASSWORD", "password"),
		PostgresDB:         getEnv("POSTGRES_DB", "validator"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		ProbeCacheTTL:      getEnvAsDuration("PROBE_CACHE_TTL_SECONDS", 0) * time.Second,
		SourceListDir:      getEnv("SOURCE_LIST_DIR", "data/sources/countries"),
		RateLimit:          getEnvAsFloat("RATE_LIMIT_PER_SECOND", 2.0),
		BatchSize:          getEnvAsInt("BATCH_SIZE", 5),
		UnitConcurrency:    getEnvAsInt("UNIT_CONCURRENCY", 1),
		ProbeTimeout:       getEnvAsDuration("PROBE_TIMEOUT_SECONDS", 20) * time.Second,
		MaxRedirects:       getEnvAsInt("MAX_REDIRECTS", 10),
		UserAgent:          getEnv("USER_AGENT", "url-validator/1.0"),
		StaleClaimAfter:    getEnvAsDuration("STALE_CLAIM_AFTER_MINUTES", 130) * time.Minute,
		MaxRuntime:         getEnvAsDuration("MAX_RUNTIME_MINUTES", 100) * time.Minute,
		ProgressWebhookURL: getEnv("PROGRESS_WEBHOOK_URL", ""),
		MetricsPort:        getEnv("METRICS_PORT", ""),
	}
}

// Validate checks the numeric fields and fails fast on nonsense values.
func (c *Config) Validate() error {
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SECOND must be > 0, got %v", c.RateLimit)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be > 0, got %d", c.BatchSize)
	}
	if c.UnitConcurrency <= 0 {
		return fmt.Errorf("UNIT_CONCURRENCY must be > 0, got %d", c.UnitConcurrency)
	}
	if c.MaxRedirects <= 0 {
		return fmt.Errorf("MAX_REDIRECTS must be > 0, got %d", c.MaxRedirects)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("PROBE_TIMEOUT_SECONDS must be > 0, got %v", c.ProbeTimeout)
	}
	if c.SourceListDir == "" {
		return fmt.Errorf("SOURCE_LIST_DIR is required")
	}
	return nil
}

// PostgresURL builds the pgx connection string.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback))
}
