// Package service wires the path search engine, narration, scoring, caching
// and the batch worker pool behind the operations the HTTP API and the CLI
// depend on.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/okian/touchline/internal/adapters/mq/queue"
	"github.com/okian/touchline/internal/adapters/mq/worker"
	"github.com/okian/touchline/internal/adapters/repository"
	"github.com/okian/touchline/internal/domain/model"
	"github.com/okian/touchline/internal/domain/narrate"
	"github.com/okian/touchline/internal/domain/scoring"
	"github.com/okian/touchline/internal/domain/search"
	"github.com/okian/touchline/internal/domain/types"
	"github.com/okian/touchline/pkg/logger"
	"github.com/okian/touchline/pkg/metrics"
)

// Service defaults.
const (
	DefaultQueueSize         = 1000
	DefaultCacheSize         = 10_000
	DefaultSearchTimeout     = 10 * time.Second
	DefaultMaxBatchPairs     = 100
	DefaultPeopleSearchLimit = repository.DefaultSearchLimit
)

// cacheKey identifies a path answer. Depth is the effective depth: an
// omitted maxDepth and the explicit default share an entry.
type cacheKey struct {
	source, target int64
	depth          int
}

func (k cacheKey) String() string {
	return strconv.FormatInt(k.source, 10) + ":" + strconv.FormatInt(k.target, 10) + ":" + strconv.Itoa(k.depth)
}

// Service implements the API dependencies for path search.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	engine   *search.Engine
	narrator *narrate.Narrator
	scorer   *scoring.Calculator
	cache    *lru.Cache[cacheKey, types.Result]
	flight   singleflight.Group
	jobs     *queue.InMemoryQueue
	pool     *worker.Pool

	// generation counts store reloads. Answers computed under an older
	// generation are never cached or shared with newer callers.
	generation atomic.Uint64
	cacheMu    sync.RWMutex
	// enqueueMu makes a batch's free-slot check and its enqueues atomic.
	enqueueMu sync.Mutex

	// Configuration
	workerCount       int
	queueSize         int
	cacheSize         int
	maxDepth          int
	maxDepthLimit     int
	searchTimeout     time.Duration
	maxBatchPairs     int
	peopleSearchLimit int

	// State
	started  bool
	searches atomic.Int64
	batches  atomic.Int64

	logger logger.Logger
	now    func() time.Time
}

var _ worker.Searcher = (*Service)(nil)

// New constructs a Service. Without WithStore it serves an empty memory store.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU(),
		queueSize:         DefaultQueueSize,
		cacheSize:         DefaultCacheSize,
		maxDepth:          search.DefaultMaxDepth,
		maxDepthLimit:     search.MaxDepthCeiling,
		searchTimeout:     DefaultSearchTimeout,
		maxBatchPairs:     DefaultMaxBatchPairs,
		peopleSearchLimit: DefaultPeopleSearchLimit,
		logger:            logger.Nop(),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	s.engine = search.NewEngine(s.store,
		search.WithLogger(s.logger.Named("search")),
		search.WithMaxDepth(s.maxDepth),
		search.WithMaxDepthLimit(s.maxDepthLimit),
	)
	s.narrator = narrate.New(narrate.WithClock(s.now))
	s.scorer = scoring.NewCalculator()

	if s.cacheSize > 0 {
		// lru.New only fails for a non-positive size.
		s.cache, _ = lru.New[cacheKey, types.Result](s.cacheSize)
		if n, ok := s.store.(interface{ OnReload(func()) }); ok {
			n.OnReload(s.purge)
		}
	}
	return s
}

// Start starts the batch queue and worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting path service...")

	s.jobs = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithBufferSize(s.queueSize),
	)
	s.pool = worker.NewPool(s.workerCount, s.jobs, s, s.logger)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "path service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("cacheSize", s.cacheSize),
		logger.Int("maxDepth", s.engine.MaxDepth()),
		logger.Duration("searchTimeout", s.searchTimeout),
	)
	return nil
}

// Stop drains the worker pool. The store is left open for its owner.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping path service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not stop cleanly", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "path service stopped")
}

// FindPath answers one path request. Failures are reported in the result's
// Error field; the returned Result is never a Go error.
func (s *Service) FindPath(ctx context.Context, req search.Request) types.Result {
	start := s.now()
	s.searches.Add(1)

	if err := ctx.Err(); err != nil {
		return s.finish(ctx, req, start, s.failure(fmt.Errorf("%w: %w", search.ErrTimeout, err), 0))
	}
	gen := s.generation.Load()

	key := cacheKey{source: req.SourceID, target: req.TargetID, depth: req.MaxDepth}
	if key.depth == 0 {
		key.depth = s.engine.MaxDepth()
	}
	if s.cache != nil {
		if res, ok := s.cache.Get(key); ok {
			metrics.RecordCacheHit()
			return s.finish(ctx, req, start, detach(res))
		}
		metrics.RecordCacheMiss()
	}

	ch := s.flight.DoChan(key.String()+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		// The shared search outlives any single caller; it is bounded by
		// the service timeout only.
		fctx := context.WithoutCancel(ctx)
		if s.searchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, s.searchTimeout)
			defer cancel()
		}
		res := s.run(fctx, req)
		if s.cache != nil && cacheable(res) {
			s.cacheMu.RLock()
			if s.generation.Load() == gen {
				s.cache.Add(key, res)
			}
			s.cacheMu.RUnlock()
		}
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			metrics.RecordCacheCoalesced()
		}
		res, _ := r.Val.(types.Result)
		return s.finish(ctx, req, start, detach(res))
	case <-ctx.Done():
		elapsed := s.now().Sub(start).Milliseconds()
		return s.finish(ctx, req, start, s.failure(fmt.Errorf("%w: %w", search.ErrTimeout, ctx.Err()), elapsed))
	}
}

// run performs one search and renders the answer.
func (s *Service) run(ctx context.Context, req search.Request) types.Result {
	start := s.now()
	out, err := s.engine.Search(ctx, req)
	elapsed := s.now().Sub(start).Milliseconds()
	if err != nil {
		return s.failure(err, elapsed)
	}

	source, target := personView(out.Source), personView(out.Target)
	res := types.Result{
		Found:        out.Found,
		Steps:        []types.Step{},
		SearchTimeMs: elapsed,
		StartPerson:  &source,
		EndPerson:    &target,
	}
	if out.Found {
		res.Steps = s.narrator.Steps(out.Hops)
		res.TotalSteps = len(res.Steps)
		res.Score = s.scorer.Score(res.TotalSteps, elapsed)
	}
	if d := out.Diagnostics; !d.Empty() {
		res.Diagnostics = &types.Diagnostics{
			SkippedEdges:  d.SkippedEdges,
			FailedLookups: d.FailedLookups,
			InvalidStints: d.InvalidStints,
		}
		metrics.RecordSearchDiagnostics(d.SkippedEdges, d.FailedLookups, d.InvalidStints)
	}
	return res
}

// failure maps a search error onto its result code.
func (s *Service) failure(err error, elapsed int64) types.Result {
	var code types.ErrorCode
	switch {
	case errors.Is(err, search.ErrSamePerson):
		code = types.ErrorSamePerson
	case errors.Is(err, search.ErrInvalidRequest):
		code = types.ErrorInvalidRequest
	case errors.Is(err, search.ErrPersonNotFound):
		code = types.ErrorPersonNotFound
	case errors.Is(err, search.ErrTimeout):
		code = types.ErrorTimeout
	default:
		code = types.ErrorUnavailable
	}
	return types.Failed(code, err.Error(), elapsed)
}

// finish records metrics and logs the outcome.
func (s *Service) finish(ctx context.Context, req search.Request, start time.Time, res types.Result) types.Result {
	outcome := outcomeOf(res)
	metrics.RecordSearch(outcome)
	metrics.RecordSearchLatency(float64(s.now().Sub(start).Microseconds()) / 1000)
	if res.Found {
		metrics.RecordPathLength(res.TotalSteps)
	}

	fields := []logger.Field{
		logger.Int64("source", req.SourceID),
		logger.Int64("target", req.TargetID),
		logger.String("outcome", outcome),
		logger.Int("steps", res.TotalSteps),
		logger.Int64("searchTimeMs", res.SearchTimeMs),
	}
	switch res.Error {
	case types.ErrorUnavailable:
		metrics.RecordErrorByComponent("search", string(res.Error))
		s.logger.Error(ctx, "path search failed", append(fields, logger.String("message", res.Message))...)
	case types.ErrorTimeout:
		s.logger.Warn(ctx, "path search timed out", fields...)
	default:
		s.logger.Debug(ctx, "path search finished", fields...)
	}
	return res
}

func outcomeOf(res types.Result) string {
	switch {
	case res.Error != "":
		return string(res.Error)
	case res.Found:
		return "found"
	default:
		return "not_found"
	}
}

// cacheable reports whether res is a stable answer. Failures and searches
// that lost lookups may differ on retry.
func cacheable(res types.Result) bool {
	if res.Error != "" {
		return false
	}
	return res.Diagnostics == nil || res.Diagnostics.FailedLookups == 0
}

// detach copies the parts of a shared or cached result a caller could mutate.
func detach(res types.Result) types.Result {
	res.Steps = slices.Clone(res.Steps)
	if res.StartPerson != nil {
		p := *res.StartPerson
		p.Roles = slices.Clone(p.Roles)
		res.StartPerson = &p
	}
	if res.EndPerson != nil {
		p := *res.EndPerson
		p.Roles = slices.Clone(p.Roles)
		res.EndPerson = &p
	}
	return res
}

// purge drops every cached answer and moves to a new generation, so
// searches still running against the previous data cannot repopulate it.
func (s *Service) purge() {
	s.cacheMu.Lock()
	s.generation.Add(1)
	s.cache.Purge()
	s.cacheMu.Unlock()
	s.logger.Info(context.Background(), "path cache purged after store reload")
}

// Batch answers reqs on the worker pool. Results are in request order;
// requests still pending when ctx is done report a timeout.
func (s *Service) Batch(ctx context.Context, reqs []search.Request) ([]types.Result, error) {
	if len(reqs) > s.maxBatchPairs {
		return nil, fmt.Errorf("%w: %d pairs, at most %d allowed", ErrTooManyPairs, len(reqs), s.maxBatchPairs)
	}

	s.mu.RLock()
	jobs, started := s.jobs, s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}
	if len(reqs) == 0 {
		return []types.Result{}, nil
	}

	start := s.now()
	batchID := uuid.NewString()
	replies := make(chan queue.Reply, len(reqs))
	if err := s.enqueue(ctx, jobs, batchID, reqs, replies); err != nil {
		return nil, err
	}
	s.batches.Add(1)

	results := make([]types.Result, len(reqs))
	done := make([]bool, len(reqs))
	for range reqs {
		select {
		case r := <-replies:
			results[r.Index] = r.Result
			done[r.Index] = true
		case <-ctx.Done():
			elapsed := s.now().Sub(start).Milliseconds()
			for i := range results {
				if !done[i] {
					results[i] = types.Failed(types.ErrorTimeout, "batch ended before the search finished", elapsed)
				}
			}
			s.logger.Warn(ctx, "batch cut short", logger.String("batch_id", batchID), logger.Error(ctx.Err()))
			return results, nil
		}
	}

	s.logger.Debug(ctx, "batch finished",
		logger.String("batch_id", batchID),
		logger.Int("pairs", len(reqs)),
		logger.Duration("took", s.now().Sub(start)),
	)
	return results, nil
}

// enqueue submits a whole batch or none of it. Workers only ever shrink the
// queue, so slots counted free under enqueueMu stay free until filled.
func (s *Service) enqueue(ctx context.Context, jobs *queue.InMemoryQueue, batchID string, reqs []search.Request, replies chan queue.Reply) error {
	s.enqueueMu.Lock()
	defer s.enqueueMu.Unlock()

	if free := jobs.Capacity() - jobs.Len(ctx); free < len(reqs) {
		return fmt.Errorf("%w: %d pairs, %d slots free", ErrQueueFull, len(reqs), free)
	}
	deadline, _ := ctx.Deadline()
	for i, req := range reqs {
		err := jobs.Enqueue(ctx, queue.Job{
			ID:       batchID + "-" + strconv.Itoa(i),
			BatchID:  batchID,
			Index:    i,
			Request:  req,
			Deadline: deadline,
			Reply:    replies,
		})
		switch {
		case err == nil:
		case errors.Is(err, queue.ErrFull):
			return fmt.Errorf("%w: %w", ErrQueueFull, err)
		case errors.Is(err, queue.ErrClosed):
			return fmt.Errorf("%w: %w", ErrNotStarted, err)
		default:
			return fmt.Errorf("enqueue batch %s: %w", batchID, err)
		}
	}
	return nil
}

// SearchPeople returns people whose name or full name contains query. A
// limit outside 1..people search limit uses the configured limit.
func (s *Service) SearchPeople(ctx context.Context, query string, limit int) ([]types.Person, error) {
	if limit <= 0 || limit > s.peopleSearchLimit {
		limit = s.peopleSearchLimit
	}
	people, err := s.store.SearchPeople(ctx, query, limit)
	if err != nil {
		return nil, storeError("search people", err)
	}
	out := make([]types.Person, len(people))
	for i, p := range people {
		out[i] = personView(p)
	}
	return out, nil
}

// Person returns a person with their stints and venue names, read from one
// store view.
func (s *Service) Person(ctx context.Context, id int64) (types.PersonDetail, error) {
	view := s.store
	if snap, ok := view.(repository.Snapshotter); ok {
		view = snap.Snapshot()
	}

	p, err := view.Person(ctx, id)
	if err != nil {
		return types.PersonDetail{}, storeError("person "+strconv.FormatInt(id, 10), err)
	}
	stints, err := view.StintsForPerson(ctx, id)
	if err != nil {
		return types.PersonDetail{}, storeError("stints", err)
	}

	detail := types.PersonDetail{Person: personView(p), Stints: make([]types.Stint, 0, len(stints))}
	venues := make(map[int64]model.Venue)
	for _, st := range stints {
		v, ok := venues[st.VenueID]
		if !ok {
			v, err = view.Venue(ctx, st.VenueID)
			switch {
			case err == nil:
			case errors.Is(err, repository.ErrNotFound):
				v = model.Venue{ID: st.VenueID, Kind: st.VenueKind, Name: "#" + strconv.FormatInt(st.VenueID, 10)}
			default:
				return types.PersonDetail{}, storeError("venue", err)
			}
			venues[st.VenueID] = v
		}
		detail.Stints = append(detail.Stints, stintView(st, v))
	}
	return detail, nil
}

// StoreStats returns store record counts.
func (s *Service) StoreStats(ctx context.Context) (repository.Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return repository.Stats{}, storeError("stats", err)
	}
	return st, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"cacheSize":     s.cacheSize,
		"maxDepth":      s.engine.MaxDepth(),
		"searchTimeout": s.searchTimeout.String(),
		"searches":      s.searches.Load(),
		"batches":       s.batches.Load(),
	}
	if s.cache != nil {
		stats["cacheEntries"] = s.cache.Len()
	}
	if b, ok := s.store.(interface{ State() string }); ok {
		stats["breaker"] = b.State()
	}
	if s.started {
		stats["queueLength"] = s.jobs.Len(context.Background())
		stats["activeWorkers"] = s.pool.Active()
	}
	return stats
}

// storeError maps repository errors onto the service sentinels.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case errors.Is(err, repository.ErrUnavailable):
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func personView(p model.Person) types.Person {
	roles := make([]string, len(p.Roles))
	for i, r := range p.Roles {
		roles[i] = string(r)
	}
	return types.Person{
		ID:          p.ID,
		Name:        p.Name,
		FullName:    p.FullName,
		Nationality: p.Nationality,
		Roles:       roles,
		Retired:     p.Retired,
	}
}

func stintView(st model.Stint, v model.Venue) types.Stint {
	out := types.Stint{
		VenueID:   st.VenueID,
		VenueName: v.Name,
		VenueKind: string(st.VenueKind),
		Role:      string(st.Role),
		Start:     st.Interval.Start.Format(model.DateLayout),
	}
	if end, ok := st.Interval.End.Date(); ok {
		out.End = end.Format(model.DateLayout)
	}
	return out
}
