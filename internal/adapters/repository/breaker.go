package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/touchline/internal/domain/model"
	"github.com/okian/touchline/pkg/logger"
	"github.com/okian/touchline/pkg/metrics"
)

// Breaker defaults.
const (
	DefaultBreakerMaxFailures = 5
	DefaultBreakerTimeout     = 30 * time.Second
	breakerHalfOpenRequests   = 1
)

// BreakerOption applies a configuration option to the BreakerStore.
type BreakerOption func(*breakerConfig)

type breakerConfig struct {
	maxFailures uint32
	timeout     time.Duration
	log         logger.Logger
}

// WithBreakerMaxFailures sets how many consecutive failures open the circuit.
func WithBreakerMaxFailures(n int) BreakerOption {
	return func(c *breakerConfig) {
		if n > 0 {
			c.maxFailures = uint32(n)
		}
	}
}

// WithBreakerTimeout sets how long the circuit stays open before probing.
func WithBreakerTimeout(d time.Duration) BreakerOption {
	return func(c *breakerConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreakerLogger sets the logger used for state transitions.
func WithBreakerLogger(l logger.Logger) BreakerOption {
	return func(c *breakerConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// BreakerStore guards a backing Store with a circuit breaker and records
// per-operation latency and error metrics. While the circuit is open every
// call fails fast with ErrUnavailable.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

var _ Store = (*BreakerStore)(nil)

// NewBreakerStore wraps next.
func NewBreakerStore(next Store, opts ...BreakerOption) *BreakerStore {
	cfg := breakerConfig{
		maxFailures: DefaultBreakerMaxFailures,
		timeout:     DefaultBreakerTimeout,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	settings := gobreaker.Settings{
		Name:        "store",
		MaxRequests: breakerHalfOpenRequests,
		Timeout:     cfg.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.maxFailures
		},
		// Missing records, bad input and caller cancellation are not outages.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrInvalidData) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(breakerGauge(to))
			cfg.log.Warn(context.Background(), "store circuit changed state",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	}
	metrics.UpdateBreakerState(metrics.BreakerClosed)
	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State returns the breaker state name: closed, half-open or open.
func (b *BreakerStore) State() string {
	return b.cb.State().String()
}

// Person implements Store.
func (b *BreakerStore) Person(ctx context.Context, id int64) (model.Person, error) {
	return guard(ctx, b, "person", func() (model.Person, error) {
		return b.next.Person(ctx, id)
	})
}

// Venue implements Store.
func (b *BreakerStore) Venue(ctx context.Context, id int64) (model.Venue, error) {
	return guard(ctx, b, "venue", func() (model.Venue, error) {
		return b.next.Venue(ctx, id)
	})
}

// StintsForPerson implements Store.
func (b *BreakerStore) StintsForPerson(ctx context.Context, personID int64) ([]model.Stint, error) {
	return guard(ctx, b, "stints_for_person", func() ([]model.Stint, error) {
		return b.next.StintsForPerson(ctx, personID)
	})
}

// StintsForVenue implements Store.
func (b *BreakerStore) StintsForVenue(ctx context.Context, venueID int64) ([]model.Stint, error) {
	return guard(ctx, b, "stints_for_venue", func() ([]model.Stint, error) {
		return b.next.StintsForVenue(ctx, venueID)
	})
}

// SearchPeople implements Store.
func (b *BreakerStore) SearchPeople(ctx context.Context, query string, limit int) ([]model.Person, error) {
	return guard(ctx, b, "search_people", func() ([]model.Person, error) {
		return b.next.SearchPeople(ctx, query, limit)
	})
}

// Stats implements Store.
func (b *BreakerStore) Stats(ctx context.Context) (Stats, error) {
	return guard(ctx, b, "stats", func() (Stats, error) {
		return b.next.Stats(ctx)
	})
}

func guard[T any](ctx context.Context, b *BreakerStore, op string, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	start := time.Now()
	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)

	switch {
	case err == nil:
		return res.(T), nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordStoreError(op)
		return zero, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	case errors.Is(err, ErrNotFound):
		return zero, err
	default:
		metrics.RecordStoreError(op)
		return zero, err
	}
}

func breakerGauge(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	default:
		return metrics.BreakerClosed
	}
}
