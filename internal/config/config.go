// Package config reads runtime settings from the environment and optional
// dotenv files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendPostgREST = "postgrest"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
)

// DefaultEnvFiles are read in order; variables already set win.
var DefaultEnvFiles = []string{".env", ".env.local"}

type Config struct {
	Backend     string        `env:"PLANROLLUP_BACKEND" envDefault:"sqlite" validate:"oneof=postgrest postgres sqlite"`
	RestURL     string        `env:"PLANROLLUP_REST_URL" validate:"omitempty,url"`
	RestKey     string        `env:"PLANROLLUP_REST_KEY"`
	DatabaseURL string        `env:"PLANROLLUP_DATABASE_URL"`
	SQLitePath  string        `env:"PLANROLLUP_SQLITE_PATH" envDefault:"planrollup.db"`
	Timeout     time.Duration `env:"PLANROLLUP_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	Retries     uint64        `env:"PLANROLLUP_RETRIES" envDefault:"3" validate:"lte=10"`
	Backoff     time.Duration `env:"PLANROLLUP_BACKOFF" envDefault:"1s" validate:"gt=0"`
	BatchSize   int           `env:"PLANROLLUP_BATCH_SIZE" envDefault:"500" validate:"min=1,max=5000"`
	PageSize    int           `env:"PLANROLLUP_PAGE_SIZE" envDefault:"1000" validate:"min=1"`

	// ReferenceFile replaces the embedded reference tables when set.
	ReferenceFile string `env:"PLANROLLUP_REFERENCE_FILE"`
	// Year pins the planning year for every unit. Zero uses each unit's
	// own year.
	Year int `env:"PLANROLLUP_YEAR" validate:"omitempty,min=2000,max=2100"`

	LogLevel    string `env:"PLANROLLUP_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogDir      string `env:"PLANROLLUP_LOG_DIR"`
	MetricsFile string `env:"PLANROLLUP_METRICS_FILE"`
}

// LoadEnv loads the dotenv files that exist and returns how many were
// read. Missing files are skipped.
func LoadEnv(files []string) (int, error) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return 0, err
	}
	return len(existing), nil
}

// Load reads envFiles (DefaultEnvFiles when none are given), parses the
// environment and validates the result.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("loading env files: %w", err)
	}

	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field constraints and the settings each backend needs.
// The REST key is not required here; it may come from the keyring.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var errs []error
	switch c.Backend {
	case BackendPostgREST:
		if c.RestURL == "" {
			errs = append(errs, errors.New("PLANROLLUP_REST_URL is required for the postgrest backend"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("PLANROLLUP_DATABASE_URL is required for the postgres backend"))
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("PLANROLLUP_SQLITE_PATH is required for the sqlite backend"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
