package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port               int    `env:"PORT" envDefault:"8080"`
	DatabaseURL        string `env:"DATABASE_URL"`
	LocalDBPath        string `env:"LOCAL_DB_PATH" envDefault:"mining.db"`
	RedisURL           string `env:"REDIS_URL"`
	AdminPasswordHash  string `env:"ADMIN_PASSWORD_HASH"`
	AdminSessionSecret string `env:"ADMIN_SESSION_SECRET"`
	SecondsPerPoint    int    `env:"SECONDS_PER_POINT" envDefault:"18000"`
	SaveDebounceMillis int    `env:"SAVE_DEBOUNCE_MILLIS" envDefault:"2000"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) SaveDebounce() time.Duration {
	return time.Duration(c.SaveDebounceMillis) * time.Millisecond
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Standalone reports whether the server runs without Postgres, persisting
// state to a local SQLite file instead.
func (c *Config) Standalone() bool {
	return c.DatabaseURL == ""
}

func (c *Config) Validate(isProduction bool) error {
	if c.SecondsPerPoint <= 0 {
		return fmt.Errorf("SECONDS_PER_POINT must be positive, got %d", c.SecondsPerPoint)
	}
	if c.SaveDebounceMillis < 0 {
		return fmt.Errorf("SAVE_DEBOUNCE_MILLIS must not be negative, got %d", c.SaveDebounceMillis)
	}

	if c.AdminPasswordHash != "" {
		if !strings.HasPrefix(c.AdminPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2y$") {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	if isProduction {
		if c.Standalone() {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
		if err := validateSecret("ADMIN_SESSION_SECRET", c.AdminSessionSecret); err != nil {
			return err
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
