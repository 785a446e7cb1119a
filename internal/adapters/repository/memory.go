package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/touchline/internal/domain/model"
	"github.com/okian/touchline/pkg/logger"
	"github.com/okian/touchline/pkg/metrics"
)

// People search bounds.
const (
	MinQueryLength     = 2
	DefaultSearchLimit = 10
)

// snapshot is an immutable, fully indexed dataset. Returned slices are shared
// and must not be modified by callers.
type snapshot struct {
	people   map[int64]model.Person
	venues   map[int64]model.Venue
	byPerson map[int64][]model.Stint
	byVenue  map[int64][]model.Stint
	byName   []model.Person
	stats    Stats
}

var _ Store = (*snapshot)(nil)

func (s *snapshot) Person(_ context.Context, id int64) (model.Person, error) {
	p, ok := s.people[id]
	if !ok {
		return model.Person{}, fmt.Errorf("person %d: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *snapshot) Venue(_ context.Context, id int64) (model.Venue, error) {
	v, ok := s.venues[id]
	if !ok {
		return model.Venue{}, fmt.Errorf("venue %d: %w", id, ErrNotFound)
	}
	return v, nil
}

func (s *snapshot) StintsForPerson(_ context.Context, personID int64) ([]model.Stint, error) {
	return s.byPerson[personID], nil
}

func (s *snapshot) StintsForVenue(_ context.Context, venueID int64) ([]model.Stint, error) {
	return s.byVenue[venueID], nil
}

func (s *snapshot) SearchPeople(_ context.Context, query string, limit int) ([]model.Person, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(q)) < MinQueryLength {
		return []model.Person{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	out := make([]model.Person, 0, limit)
	for _, p := range s.byName {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.FullName), q) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *snapshot) Stats(_ context.Context) (Stats, error) {
	return s.stats, nil
}

// buildSnapshot validates ds and indexes it.
func buildSnapshot(ds Dataset) (*snapshot, error) {
	s := &snapshot{
		people:   make(map[int64]model.Person, len(ds.People)),
		venues:   make(map[int64]model.Venue, len(ds.Venues)),
		byPerson: make(map[int64][]model.Stint),
		byVenue:  make(map[int64][]model.Stint),
	}
	for _, p := range ds.People {
		if p.ID < 1 {
			return nil, fmt.Errorf("%w: person id %d is not positive", ErrInvalidData, p.ID)
		}
		if _, dup := s.people[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate person id %d", ErrInvalidData, p.ID)
		}
		s.people[p.ID] = p
	}
	for _, v := range ds.Venues {
		if v.ID < 1 {
			return nil, fmt.Errorf("%w: venue id %d is not positive", ErrInvalidData, v.ID)
		}
		if _, dup := s.venues[v.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate venue id %d", ErrInvalidData, v.ID)
		}
		if !v.Kind.Valid() {
			return nil, fmt.Errorf("%w: venue %d has unknown kind %q", ErrInvalidData, v.ID, v.Kind)
		}
		s.venues[v.ID] = v
	}

	seen := make(map[model.StintKey]struct{}, len(ds.Stints))
	for _, st := range ds.Stints {
		if _, ok := s.people[st.PersonID]; !ok {
			return nil, fmt.Errorf("%w: stint references unknown person %d", ErrInvalidData, st.PersonID)
		}
		v, ok := s.venues[st.VenueID]
		if !ok {
			return nil, fmt.Errorf("%w: stint references unknown venue %d", ErrInvalidData, st.VenueID)
		}
		switch st.VenueKind {
		case "":
			st.VenueKind = v.Kind
		case v.Kind:
		default:
			return nil, fmt.Errorf("%w: stint at venue %d has kind %q, venue is %q", ErrInvalidData, st.VenueID, st.VenueKind, v.Kind)
		}
		if _, dup := seen[st.Key()]; dup {
			return nil, fmt.Errorf("%w: duplicate stint person %d venue %d start %s",
				ErrInvalidData, st.PersonID, st.VenueID, st.Interval.Start.Format(model.DateLayout))
		}
		seen[st.Key()] = struct{}{}
		s.byPerson[st.PersonID] = append(s.byPerson[st.PersonID], st)
		s.byVenue[st.VenueID] = append(s.byVenue[st.VenueID], st)
	}
	for _, stints := range s.byPerson {
		SortPersonStints(stints)
	}
	for _, stints := range s.byVenue {
		SortVenueStints(stints)
	}

	s.byName = make([]model.Person, 0, len(s.people))
	for _, p := range s.people {
		s.byName = append(s.byName, p)
	}
	slices.SortFunc(s.byName, func(a, b model.Person) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return compareInt64(a.ID, b.ID)
	})

	s.stats = Dataset{People: ds.People, Venues: ds.Venues, Stints: ds.Stints}.Stats()
	return s, nil
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryLogger sets the store logger.
func WithMemoryLogger(l logger.Logger) MemoryOption {
	return func(s *MemoryStore) {
		if l != nil {
			s.log = l
		}
	}
}

// MemoryStore serves a dataset held in memory. Load swaps in a new immutable
// snapshot atomically, so readers never see a half-applied dataset.
type MemoryStore struct {
	snap atomic.Pointer[snapshot]
	log  logger.Logger

	mu      sync.Mutex
	reloads []func()
}

var (
	_ Store       = (*MemoryStore)(nil)
	_ Snapshotter = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	empty, _ := buildSnapshot(Dataset{})
	s.snap.Store(empty)
	return s
}

// NewMemoryStoreFrom creates a store loaded with ds.
func NewMemoryStoreFrom(ds Dataset, opts ...MemoryOption) (*MemoryStore, error) {
	s := NewMemoryStore(opts...)
	if err := s.Load(ds); err != nil {
		return nil, err
	}
	return s, nil
}

// Load validates ds and replaces the store contents. On error the previous
// contents stay in place.
func (s *MemoryStore) Load(ds Dataset) error {
	start := time.Now()
	next, err := buildSnapshot(ds)
	if err != nil {
		return err
	}
	s.snap.Store(next)

	metrics.RecordStoreReload()
	metrics.UpdateStoreSize(next.stats.People, next.stats.Stints)
	s.log.Info(context.Background(), "dataset loaded",
		logger.Int("people", next.stats.People),
		logger.Int("managers", next.stats.Managers),
		logger.Int("clubs", next.stats.Clubs),
		logger.Int("national_teams", next.stats.NationalTeams),
		logger.Int("stints", next.stats.Stints),
		logger.Duration("took", time.Since(start)),
	)

	s.mu.Lock()
	hooks := slices.Clone(s.reloads)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// OnReload registers fn to run after every successful Load.
func (s *MemoryStore) OnReload(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloads = append(s.reloads, fn)
}

// Snapshot returns the current immutable view.
func (s *MemoryStore) Snapshot() Store {
	return s.snap.Load()
}

// Person implements Store.
func (s *MemoryStore) Person(ctx context.Context, id int64) (model.Person, error) {
	return s.snap.Load().Person(ctx, id)
}

// Venue implements Store.
func (s *MemoryStore) Venue(ctx context.Context, id int64) (model.Venue, error) {
	return s.snap.Load().Venue(ctx, id)
}

// StintsForPerson implements Store.
func (s *MemoryStore) StintsForPerson(ctx context.Context, personID int64) ([]model.Stint, error) {
	return s.snap.Load().StintsForPerson(ctx, personID)
}

// StintsForVenue implements Store.
func (s *MemoryStore) StintsForVenue(ctx context.Context, venueID int64) ([]model.Stint, error) {
	return s.snap.Load().StintsForVenue(ctx, venueID)
}

// SearchPeople implements Store.
func (s *MemoryStore) SearchPeople(ctx context.Context, query string, limit int) ([]model.Person, error) {
	return s.snap.Load().SearchPeople(ctx, query, limit)
}

// Stats implements Store.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	return s.snap.Load().Stats(ctx)
}
