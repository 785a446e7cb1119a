package service

import (
	"time"

	"github.com/okian/touchline/internal/adapters/repository"
	"github.com/okian/touchline/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the affiliation store. The service does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of batch worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending batch jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCacheSize sets the number of path results kept; zero disables caching.
func WithCacheSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.cacheSize = size
		}
	}
}

// WithMaxDepth sets the depth used when a request does not name one.
func WithMaxDepth(depth int) Option {
	return func(s *Service) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// WithMaxDepthLimit caps per-request depth overrides.
func WithMaxDepthLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxDepthLimit = limit
		}
	}
}

// WithSearchTimeout bounds every search; zero disables the deadline.
func WithSearchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.searchTimeout = d
		}
	}
}

// WithMaxBatchPairs caps the number of requests in one batch.
func WithMaxBatchPairs(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchPairs = n
		}
	}
}

// WithPeopleSearchLimit caps people search results.
func WithPeopleSearchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.peopleSearchLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for elapsed times and narrated periods.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
