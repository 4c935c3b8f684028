// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New builds a Config populated with defaults.
//   - Load layers a YAML file and environment variables on top of New.
//   - Validate reports ErrInvalidConfig for unusable combinations.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SportConfig describes one entry of the sports registry.
type SportConfig struct {
	ID     string `koanf:"id"`
	Name   string `koanf:"name"`
	Active bool   `koanf:"active"`
	Route  string `koanf:"route"`
	// Kind is one of individual, team or motorsport.
	Kind string `koanf:"kind"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory contest queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of workers applying contests.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the set of remembered contest ids.
	DedupeSize int `koanf:"dedupe_size"`

	// InitialRating seeds competitors seen for the first time.
	InitialRating float64 `koanf:"initial_rating"`

	// StoreDriver selects memory, sqlite3 or postgres.
	StoreDriver string `koanf:"store_driver"`
	// StoreDSN is the database/sql data source for SQL drivers.
	StoreDSN string `koanf:"store_dsn"`

	// MaxPageSize caps the pageSize query parameter.
	MaxPageSize int `koanf:"max_page_size"`

	// NATSURL enables rating event publishing when set.
	NATSURL string `koanf:"nats_url"`
	// NATSEmbedded starts an in-process NATS server and publishes to it.
	NATSEmbedded bool `koanf:"nats_embedded"`

	// ClickHouse history archive; disabled when ClickHouseAddr is empty.
	ClickHouseAddr     string `koanf:"clickhouse_addr"`
	ClickHouseDatabase string `koanf:"clickhouse_database"`
	ClickHouseUsername string `koanf:"clickhouse_username"`
	ClickHousePassword string `koanf:"clickhouse_password"`

	// Sports is the static registry of supported sports.
	Sports []SportConfig `koanf:"sports"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		QueueSize:          10_000,
		WorkerCount:        runtime.NumCPU() * 2,
		DedupeSize:         100_000,
		InitialRating:      1500,
		StoreDriver:        DriverMemory,
		MaxPageSize:        100,
		ClickHouseDatabase: "default",
		Sports: []SportConfig{
			{ID: "formula-one", Name: "Formula One", Active: true, Route: "/leaderboards/formula-one", Kind: "motorsport"},
			{ID: "motogp", Name: "MotoGP", Active: false, Route: "/leaderboards/motogp", Kind: "motorsport"},
			{ID: "boxing", Name: "Boxing", Active: false, Route: "/leaderboards/boxing", Kind: "individual"},
		},
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.InitialRating <= 0:
		return fmt.Errorf("%w: initial_rating must be positive", ErrInvalidConfig)
	case c.MaxPageSize < 1:
		return fmt.Errorf("%w: max_page_size must be at least 1", ErrInvalidConfig)
	case len(c.Sports) == 0:
		return fmt.Errorf("%w: at least one sport must be configured", ErrInvalidConfig)
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.StoreDSN) == "" {
			return fmt.Errorf("%w: store_dsn is required for %s", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
