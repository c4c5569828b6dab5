// Package config loads dreammover settings from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// S3 configures the s3 state driver.
type S3 struct {
	Bucket    string `env:"DREAMMOVER_S3_BUCKET"`
	Region    string `env:"DREAMMOVER_S3_REGION"     envDefault:"us-east-1"`
	Endpoint  string `env:"DREAMMOVER_S3_ENDPOINT"`
	Prefix    string `env:"DREAMMOVER_S3_PREFIX"     envDefault:"dreammover/"`
	PathStyle bool   `env:"DREAMMOVER_S3_PATH_STYLE"`
}

// Storage selects and configures the state backend.
//
//	DREAMMOVER_STORAGE_DRIVER: fs|memory|sqlite|postgres|redis|s3 (default fs)
type Storage struct {
	Driver      string `env:"DREAMMOVER_STORAGE_DRIVER" envDefault:"fs"`
	FSRoot      string `env:"DREAMMOVER_FS_ROOT"        envDefault:"vauntico-dream-mover/state"`
	SQLitePath  string `env:"DREAMMOVER_SQLITE_PATH"    envDefault:"vauntico-dream-mover/dreammover.db"`
	PostgresDSN string `env:"DREAMMOVER_POSTGRES_DSN"`
	RedisURL    string `env:"DREAMMOVER_REDIS_URL"`
	S3          S3
}

// Log configures the slog handler.
type Log struct {
	Level  string `env:"DREAMMOVER_LOG_LEVEL"  envDefault:"info"`
	Format string `env:"DREAMMOVER_LOG_FORMAT" envDefault:"text"`
}

// Config is the full process configuration.
type Config struct {
	Storage   Storage
	Log       Log
	RulesPath string `env:"DREAMMOVER_RULES_PATH" envDefault:"vauntico-dream-mover/marketplace/vet-rules.json"`
	// OTelEndpoint enables OTLP/HTTP trace export when set.
	OTelEndpoint string `env:"DREAMMOVER_OTEL_ENDPOINT"`
}

var knownDrivers = map[string]struct{}{
	"fs": {}, "memory": {}, "sqlite": {}, "postgres": {}, "redis": {}, "s3": {},
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the supplied environment map instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements of the selected driver.
func (c Config) Validate() error {
	if _, ok := knownDrivers[c.Storage.Driver]; !ok {
		return fmt.Errorf("unknown storage driver %s", c.Storage.Driver)
	}
	switch c.Storage.Driver {
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("DREAMMOVER_REDIS_URL required for redis driver")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("DREAMMOVER_S3_BUCKET required for s3 driver")
		}
	}
	return nil
}
