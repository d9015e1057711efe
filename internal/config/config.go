package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string `env:"PORT" env-default:"8080" env-description:"HTTP listen port"`
	Environment    string `env:"ENVIRONMENT" env-default:"production" env-description:"production, staging or development"`
	LogLevel       string `env:"LOG_LEVEL" env-default:"info"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" env-default:"http://localhost:3000" env-description:"comma-separated CORS origins"`

	StoreBackend string `env:"STORE_BACKEND" env-default:"redis" env-description:"redis, postgres or memory"`
	RedisURL     string `env:"REDIS_URL"`
	DatabaseURL  string `env:"DATABASE_URL" env-description:"postgres store, or snapshot target when the backend is redis"`

	IPHashKey        string `env:"IP_HASH_KEY" env-description:"HMAC key for visitor fingerprints"`
	AtomicViews      bool   `env:"VIEWS_ATOMIC" env-default:"true" env-description:"count visitors with the store's conditional update"`
	SnapshotSchedule string `env:"SNAPSHOT_SCHEDULE" env-default:"@every 5m" env-description:"cron spec for Redis to Postgres snapshots"`

	AdminJWTSecret     string `env:"ADMIN_JWT_SECRET" env-description:"HS256 secret for /admin routes; routes disabled when empty"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" env-default:"60"`
	RateLimitBurst     int    `env:"RATE_LIMIT_BURST" env-default:"10"`
}

// Load loads configuration from a .env file, if any, then the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected backend has what it needs
func (c *Config) Validate() error {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))

	switch c.StoreBackend {
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND=%s", BackendRedis)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", BackendPostgres)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.RateLimitPerMinute < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}
	return nil
}

// Origins parses AllowedOrigins into a slice
func (c *Config) Origins() []string {
	return parseOrigins(c.AllowedOrigins)
}

// IsProduction reports whether this is a production deployment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SnapshotsEnabled reports whether Redis should be snapshotted into Postgres
func (c *Config) SnapshotsEnabled() bool {
	return c.StoreBackend == BackendRedis && c.DatabaseURL != ""
}

// Usage returns the environment variable help text
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
