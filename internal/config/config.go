// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over those defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Supported store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// baselineLayout is the layout of CompetitionStart.
const baselineLayout = "2006-01-02"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches the log handler to JSON output.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CommandQueueSize bounds the mutation command queue in front of the writer.
	CommandQueueSize int `koanf:"queue_size"`

	// DedupeSize sets the size of the idempotency key cache.
	DedupeSize int `koanf:"dedupe_size"`

	// FacilitatorTeamID names the team that is tracked but never ranked.
	FacilitatorTeamID string `koanf:"facilitator_team_id"`

	// CompetitionStart is the history baseline date (YYYY-MM-DD).
	CompetitionStart string `koanf:"competition_start"`

	// StoreDriver selects the record store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`
	PostgresDSN string `koanf:"postgres_dsn"`

	// SeedFile optionally points at a YAML fixture loaded into an empty store.
	SeedFile string `koanf:"seed_file"`

	// NotificationLimit caps the persisted notification feed.
	NotificationLimit int `koanf:"notification_limit"`

	// KafkaBrokers is a comma separated broker list; empty disables Kafka fan-out.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`

	// RateLimitRPS and RateLimitBurst bound mutating requests per client IP.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// MaxUploadBytes caps scoresheet uploads.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		CommandQueueSize:  1024,
		DedupeSize:        10_000,
		FacilitatorTeamID: "facilitators",
		CompetitionStart:  "2025-04-28",
		StoreDriver:       StoreMemory,
		SQLitePath:        "intramurals.db",
		NotificationLimit: 50,
		KafkaTopic:        "intramurals.notifications",
		RateLimitRPS:      10,
		RateLimitBurst:    20,
		MaxUploadBytes:    5 << 20,
	}
}

// Baseline parses CompetitionStart as a UTC midnight.
func (c *Config) Baseline() (time.Time, error) {
	t, err := time.ParseInLocation(baselineLayout, strings.TrimSpace(c.CompetitionStart), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: competition_start %q: %v", ErrInvalidConfig, c.CompetitionStart, err)
	}
	return t, nil
}

// Brokers splits KafkaBrokers into a trimmed list.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.CommandQueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if _, err := c.Baseline(); err != nil {
		return err
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
