// Package probe drives a running touchline server with seeded path requests
// and checks that repeated, concurrent and batched answers agree.
package probe

import (
	"errors"
	"runtime"
	"time"
)

// Errors returned by Run.
var (
	ErrUnhealthy        = errors.New("probe: service unhealthy")
	ErrTooFewPeople     = errors.New("probe: need at least two people")
	ErrNondeterministic = errors.New("probe: answers disagree")
)

// Defaults for Config.
const (
	DefaultBaseURL   = "http://localhost:9080"
	DefaultPairs     = 200
	DefaultRepeats   = 3
	DefaultBatchSize = 20
	DefaultTimeout   = 30 * time.Second
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Pairs      int           // Number of distinct pairs to ask about
	People     int           // Person ids are drawn from 1..People; 0 reads the count from /stats
	Repeats    int           // How many times each pair is asked
	Workers    int           // Number of concurrent requests
	BatchSize  int           // Pairs re-asked through /paths/batch; 0 skips the batch check
	MaxDepth   int           // Depth sent with every request; 0 uses the server default
	Seed       uint64        // Pair generator seed
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Optional JSON report destination
	Verbose    bool          // Log every mismatch
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Pairs:     DefaultPairs,
		Repeats:   DefaultRepeats,
		Workers:   runtime.NumCPU() * 2,
		BatchSize: DefaultBatchSize,
		Seed:      1,
		Timeout:   DefaultTimeout,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Pairs <= 0 {
		c.Pairs = d.Pairs
	}
	if c.Repeats <= 0 {
		c.Repeats = 1
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.BatchSize < 0 {
		c.BatchSize = 0
	}
	if c.BatchSize > c.Pairs {
		c.BatchSize = c.Pairs
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// Pair is one path request as sent on the wire.
type Pair struct {
	Source   int64 `json:"sourcePersonId"`
	Target   int64 `json:"targetPersonId"`
	MaxDepth int   `json:"maxDepth,omitempty"`
}

// Latency summarises request latencies in milliseconds.
type Latency struct {
	P50Ms float64 `json:"p50Ms"`
	P95Ms float64 `json:"p95Ms"`
	P99Ms float64 `json:"p99Ms"`
	MaxMs float64 `json:"maxMs"`
}

// Report holds the outcome of a probe run.
type Report struct {
	People          int       `json:"people"`
	Requests        int       `json:"requests"`
	Found           int       `json:"found"`
	NotFound        int       `json:"notFound"`
	Failed          int       `json:"failed"`
	Mismatches      int       `json:"mismatches"`
	BatchMismatches int       `json:"batchMismatches"`
	Latency         Latency   `json:"latency"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	Duration        string    `json:"duration"`
	Mismatched      []Pair    `json:"mismatched,omitempty"`
}
