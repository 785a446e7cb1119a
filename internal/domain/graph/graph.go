// Package graph derives one-hop adjacency between people from co-located,
// overlapping stints. Edges are never stored; a Graph lives for one search.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/touchline/internal/adapters/repository"
	"github.com/okian/touchline/internal/domain/model"
	"github.com/okian/touchline/pkg/logger"
)

// Source is the part of the store the graph reads.
type Source interface {
	StintsForPerson(ctx context.Context, personID int64) ([]model.Stint, error)
	StintsForVenue(ctx context.Context, venueID int64) ([]model.Stint, error)
}

// RawEdge is a pair of overlapping stints at one venue, seen from Self.
type RawEdge struct {
	OtherPersonID int64
	VenueID       int64
	VenueKind     model.VenueKind
	Self          model.Stint
	Other         model.Stint
	Overlap       model.Interval
}

// Diagnostics counts data problems met while expanding neighbours.
type Diagnostics struct {
	FailedLookups int
	InvalidStints int
}

// Graph computes neighbours against a Source, memoizing lookups for its own
// lifetime. A Graph is not safe for concurrent use; create one per search.
type Graph struct {
	src    Source
	log    logger.Logger
	venues map[int64][]model.Stint
	people map[int64][]RawEdge
	bad    map[model.StintKey]struct{}
	diag   Diagnostics
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for data-error diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.log = l
		}
	}
}

// New creates a Graph over src.
func New(src Source, opts ...Option) *Graph {
	g := &Graph{
		src:    src,
		log:    logger.Nop(),
		venues: make(map[int64][]model.Stint),
		people: make(map[int64][]RawEdge),
		bad:    make(map[model.StintKey]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Diagnostics returns the counts accumulated so far.
func (g *Graph) Diagnostics() Diagnostics { return g.diag }

// Neighbors returns every edge from personID, in the order of the person's
// stints and then of the venue's stints. Several edges to the same person
// are all returned. An unknown person has no neighbours.
//
// Failed lookups and invalid stints are skipped and counted. An error is
// returned only when the store reports repository.ErrUnavailable.
func (g *Graph) Neighbors(ctx context.Context, personID int64) ([]RawEdge, error) {
	if edges, ok := g.people[personID]; ok {
		return edges, nil
	}

	own, err := g.src.StintsForPerson(ctx, personID)
	if err != nil {
		if e := g.lookupFailed(ctx, "person", personID, err); e != nil {
			return nil, e
		}
		g.people[personID] = nil
		return nil, nil
	}

	var edges []RawEdge
	for _, self := range own {
		if !g.valid(ctx, self) {
			continue
		}
		others, err := g.venue(ctx, self.VenueID)
		if err != nil {
			return nil, err
		}
		for _, other := range others {
			if other.PersonID == personID || !g.valid(ctx, other) {
				continue
			}
			ov, ok := model.Overlap(self.Interval, other.Interval)
			if !ok {
				continue
			}
			edges = append(edges, RawEdge{
				OtherPersonID: other.PersonID,
				VenueID:       self.VenueID,
				VenueKind:     self.VenueKind,
				Self:          self,
				Other:         other,
				Overlap:       ov,
			})
		}
	}
	g.people[personID] = edges
	return edges, nil
}

func (g *Graph) venue(ctx context.Context, venueID int64) ([]model.Stint, error) {
	if stints, ok := g.venues[venueID]; ok {
		return stints, nil
	}
	stints, err := g.src.StintsForVenue(ctx, venueID)
	if err != nil {
		if e := g.lookupFailed(ctx, "venue", venueID, err); e != nil {
			return nil, e
		}
		g.venues[venueID] = nil
		return nil, nil
	}
	g.venues[venueID] = stints
	return stints, nil
}

// lookupFailed records a failed store lookup. It returns a non-nil error only
// when the store is unavailable as a whole.
func (g *Graph) lookupFailed(ctx context.Context, what string, id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if errors.Is(err, repository.ErrUnavailable) {
		return fmt.Errorf("%s %d stints: %w", what, id, err)
	}
	g.diag.FailedLookups++
	g.log.Warn(ctx, "stint lookup failed",
		logger.String("scope", what),
		logger.Int64("id", id),
		logger.Error(err),
	)
	return nil
}

func (g *Graph) valid(ctx context.Context, s model.Stint) bool {
	err := s.Validate()
	if err == nil {
		return true
	}
	if _, seen := g.bad[s.Key()]; !seen {
		g.bad[s.Key()] = struct{}{}
		g.diag.InvalidStints++
		g.log.Warn(ctx, "skipping invalid stint", logger.Error(err))
	}
	return false
}
