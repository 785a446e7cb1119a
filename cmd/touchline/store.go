package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/touchline/internal/adapters/repository"
	service "github.com/okian/touchline/internal/app"
	"github.com/okian/touchline/internal/config"
	"github.com/okian/touchline/internal/synth"
	"github.com/okian/touchline/pkg/logger"
)

var errMemoryDriver = errors.New("store_driver memory has nothing to seed; use sqlite or postgres")

// openStore builds the store named by cfg.StoreDriver. The returned close
// function releases database handles and is never nil.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, func() error, error) {
	noop := func() error { return nil }

	if cfg.StoreDriver == config.DriverMemory {
		ds := synth.League()
		if cfg.FixturePath != "" {
			var err error
			if ds, err = repository.LoadDataset(cfg.FixturePath); err != nil {
				return nil, noop, err
			}
		}
		mem, err := repository.NewMemoryStoreFrom(ds, repository.WithMemoryLogger(log.Named("store")))
		if err != nil {
			return nil, noop, err
		}
		if cfg.WatchFixture && cfg.FixturePath != "" {
			if err := repository.Watch(ctx, cfg.FixturePath, mem, log.Named("watch")); err != nil {
				return nil, noop, err
			}
		}
		return mem, noop, nil
	}

	db, err := openSQL(ctx, cfg)
	if err != nil {
		return nil, noop, err
	}
	store := repository.NewBreakerStore(db,
		repository.WithBreakerMaxFailures(cfg.BreakerMaxFailures),
		repository.WithBreakerTimeout(cfg.BreakerTimeout()),
		repository.WithBreakerLogger(log.Named("breaker")),
	)
	return store, db.Close, nil
}

// openSQL opens and migrates the SQL store named by cfg.
func openSQL(ctx context.Context, cfg *config.Config) (*repository.SQLStore, error) {
	dialect, err := repository.DialectFor(cfg.StoreDriver)
	if err != nil {
		return nil, err
	}
	db, err := repository.OpenSQL(ctx, dialect, cfg.StoreDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// newService builds the path service from cfg over store.
func newService(cfg *config.Config, store repository.Store, log logger.Logger) *service.Service {
	return service.New(
		service.WithStore(store),
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.BatchWorkers),
		service.WithQueueSize(cfg.BatchQueueSize),
		service.WithCacheSize(cfg.CacheSize),
		service.WithMaxDepth(cfg.MaxDepth),
		service.WithMaxDepthLimit(cfg.MaxDepthLimit),
		service.WithSearchTimeout(cfg.SearchTimeout()),
		service.WithMaxBatchPairs(cfg.BatchMaxPairs),
		service.WithPeopleSearchLimit(cfg.PeopleSearchLimit),
	)
}
