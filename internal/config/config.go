// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and TOUCHLINE_ env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"runtime"
	"time"
)

// Store drivers understood by the repository adapters.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"omitempty,oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the affiliation store backend.
	StoreDriver string `koanf:"store_driver" validate:"oneof=memory sqlite postgres"`

	// StoreDSN is the database source name for the sqlite and postgres drivers.
	StoreDSN string `koanf:"store_dsn" validate:"required_unless=StoreDriver memory"`

	// FixturePath is a YAML dataset loaded into the memory store at startup.
	FixturePath string `koanf:"fixture_path"`

	// WatchFixture reloads the memory store when FixturePath changes on disk.
	WatchFixture bool `koanf:"watch_fixture"`

	// MaxDepth is the search depth used when a request does not name one.
	MaxDepth int `koanf:"max_depth" validate:"min=1,ltefield=MaxDepthLimit"`

	// MaxDepthLimit caps per-request maxDepth overrides.
	MaxDepthLimit int `koanf:"max_depth_limit" validate:"min=1"`

	// SearchTimeoutMS bounds a single search; zero disables the deadline.
	SearchTimeoutMS int `koanf:"search_timeout_ms" validate:"min=0"`

	// CacheSize is the number of path results kept in the LRU; zero disables it.
	CacheSize int `koanf:"cache_size" validate:"min=0"`

	// BatchWorkers sets the number of workers serving POST /paths/batch.
	BatchWorkers int `koanf:"batch_workers" validate:"min=1"`

	// BatchQueueSize bounds the batch job queue.
	BatchQueueSize int `koanf:"batch_queue_size" validate:"min=1"`

	// BatchMaxPairs caps the number of pairs in one batch request.
	BatchMaxPairs int `koanf:"batch_max_pairs" validate:"min=1"`

	// RateLimitRPS and RateLimitBurst configure the HTTP token bucket; zero RPS disables it.
	RateLimitRPS   float64 `koanf:"rate_limit_rps" validate:"min=0"`
	RateLimitBurst int     `koanf:"rate_limit_burst" validate:"min=0"`

	// BreakerMaxFailures trips the store breaker after this many consecutive failures.
	BreakerMaxFailures int `koanf:"breaker_max_failures" validate:"min=1"`

	// BreakerTimeoutMS is how long the breaker stays open before probing again.
	BreakerTimeoutMS int `koanf:"breaker_timeout_ms" validate:"min=1"`

	// PeopleSearchLimit caps GET /people/search results.
	PeopleSearchLimit int `koanf:"people_search_limit" validate:"min=1,max=100"`
}

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		StoreDriver:        DriverMemory,
		MaxDepth:           12,
		MaxDepthLimit:      12,
		SearchTimeoutMS:    10_000,
		CacheSize:          10_000,
		BatchWorkers:       runtime.NumCPU(),
		BatchQueueSize:     1_000,
		BatchMaxPairs:      100,
		RateLimitRPS:       0,
		RateLimitBurst:     50,
		BreakerMaxFailures: 5,
		BreakerTimeoutMS:   30_000,
		PeopleSearchLimit:  10,
	}
}

// SearchTimeout returns the per-search deadline, zero meaning none.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutMS) * time.Millisecond
}

// BreakerTimeout returns the breaker open-state duration.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutMS) * time.Millisecond
}
