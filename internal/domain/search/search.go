// Package search finds the shortest affiliation path between two people with
// a bounded breadth-first search over the affiliation graph.
package search

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/touchline/internal/adapters/repository"
	"github.com/okian/touchline/internal/domain/classify"
	"github.com/okian/touchline/internal/domain/graph"
	"github.com/okian/touchline/internal/domain/model"
	"github.com/okian/touchline/pkg/logger"
)

// Depth defaults.
const (
	DefaultMaxDepth = 12
	MaxDepthCeiling = 12
)

var tracer = otel.Tracer("touchline.search") //nolint:gochecknoglobals // package tracer

// Request asks for a path from SourceID to TargetID. MaxDepth zero means the
// engine default.
type Request struct {
	SourceID int64
	TargetID int64
	MaxDepth int
}

// Hop is one classified edge of a found path, with the people and venue
// resolved from the same store view the search used.
type Hop struct {
	From  model.Person
	To    model.Person
	Venue model.Venue
	Edge  graph.RawEdge
	Class classify.Classification
}

// Diagnostics counts data problems recovered from during one search.
type Diagnostics struct {
	SkippedEdges  int
	FailedLookups int
	InvalidStints int
}

// Empty reports whether nothing went wrong.
func (d Diagnostics) Empty() bool {
	return d == Diagnostics{}
}

// Outcome is the result of a search that ran to completion. Found false
// means no path exists within MaxDepth hops.
type Outcome struct {
	Source      model.Person
	Target      model.Person
	Found       bool
	Hops        []Hop
	MaxDepth    int
	Diagnostics Diagnostics
}

// Engine runs searches against a store. It holds no per-search state and is
// safe for concurrent use.
type Engine struct {
	store      repository.Store
	log        logger.Logger
	maxDepth   int
	depthLimit int
}

// NewEngine creates an Engine reading from store.
func NewEngine(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		log:        logger.Nop(),
		maxDepth:   DefaultMaxDepth,
		depthLimit: MaxDepthCeiling,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxDepth > e.depthLimit {
		e.maxDepth = e.depthLimit
	}
	return e
}

// MaxDepth returns the default depth.
func (e *Engine) MaxDepth() int { return e.maxDepth }

// parent records how a person was first reached.
type parent struct {
	from  int64
	edge  graph.RawEdge
	class classify.Classification
}

// state is owned by a single search.
type state struct {
	target  int64
	visited map[int64]struct{}
	parents map[int64]parent
	skipped int
}

// Search finds the shortest path for req.
//
// Input errors (ErrSamePerson, ErrInvalidRequest, ErrPersonNotFound) are
// returned before any traversal. ErrTimeout is returned when ctx is done at a
// depth boundary and ErrUnavailable when the store fails as a whole.
func (e *Engine) Search(ctx context.Context, req Request) (out Outcome, err error) {
	ctx, span := tracer.Start(ctx, "Engine.Search",
		trace.WithAttributes(
			attribute.Int64("source_id", req.SourceID),
			attribute.Int64("target_id", req.TargetID),
			attribute.Int("max_depth", req.MaxDepth),
		),
	)
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetAttributes(
			attribute.Bool("found", out.Found),
			attribute.Int("steps", len(out.Hops)),
			attribute.Int("skipped_edges", out.Diagnostics.SkippedEdges),
		)
	}()

	if req.SourceID == req.TargetID {
		return Outcome{}, fmt.Errorf("%w: %d", ErrSamePerson, req.SourceID)
	}
	depth, err := e.depth(req.MaxDepth)
	if err != nil {
		return Outcome{}, err
	}

	view := e.store
	if s, ok := view.(repository.Snapshotter); ok {
		view = s.Snapshot()
	}

	out = Outcome{MaxDepth: depth}
	if out.Source, err = e.person(ctx, view, req.SourceID); err != nil {
		return Outcome{}, err
	}
	if out.Target, err = e.person(ctx, view, req.TargetID); err != nil {
		return Outcome{}, err
	}

	g := graph.New(view, graph.WithLogger(e.log))
	st := &state{
		target:  req.TargetID,
		visited: map[int64]struct{}{req.SourceID: {}},
		parents: make(map[int64]parent),
	}
	defer func() {
		d := g.Diagnostics()
		out.Diagnostics = Diagnostics{
			SkippedEdges:  st.skipped,
			FailedLookups: d.FailedLookups,
			InvalidStints: d.InvalidStints,
		}
	}()

	found, err := e.bfs(ctx, g, st, req.SourceID, depth)
	if err != nil {
		return Outcome{}, err
	}
	if !found {
		return out, nil
	}

	out.Found = true
	out.Hops, err = e.resolve(ctx, view, st.path(req.SourceID, req.TargetID))
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

func (e *Engine) depth(requested int) (int, error) {
	switch {
	case requested == 0:
		return e.maxDepth, nil
	case requested < 0 || requested > e.depthLimit:
		return 0, fmt.Errorf("%w: maxDepth must be between 1 and %d, got %d", ErrInvalidRequest, e.depthLimit, requested)
	default:
		return requested, nil
	}
}

func (e *Engine) person(ctx context.Context, view repository.Store, id int64) (model.Person, error) {
	p, err := view.Person(ctx, id)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, repository.ErrNotFound):
		return model.Person{}, fmt.Errorf("%w: %d", ErrPersonNotFound, id)
	default:
		return model.Person{}, fmt.Errorf("%w: person %d: %w", ErrUnavailable, id, err)
	}
}

// bfs runs the adjacency check and then expands layer by layer until the
// target is reached, the frontier empties or depth layers were expanded.
func (e *Engine) bfs(ctx context.Context, g *graph.Graph, st *state, source int64, depth int) (bool, error) {
	if err := boundary(ctx); err != nil {
		return false, err
	}

	// Adjacency check: the source's own edges are the most common answer
	// and need no frontier bookkeeping beyond the visited set.
	found, next, err := e.adjacent(ctx, g, st, source)
	if err != nil || found {
		return found, err
	}

	frontier := next
	for d := 1; d < depth && len(frontier) > 0; d++ {
		if err := boundary(ctx); err != nil {
			return false, err
		}
		found, frontier, err = e.layer(ctx, g, st, frontier, d)
		if err != nil || found {
			return found, err
		}
	}

	// Lookups cut short by an expired context look like missing data; do
	// not report those as a true negative.
	if err := boundary(ctx); err != nil {
		return false, err
	}
	return false, nil
}

// adjacent expands only the source. It is the first BFS layer, so a direct
// connection is reported exactly as a depth-1 search would report it.
func (e *Engine) adjacent(ctx context.Context, g *graph.Graph, st *state, source int64) (bool, []int64, error) {
	return e.layer(ctx, g, st, []int64{source}, 0)
}

// layer expands every person in frontier in order and returns the people
// discovered for the next layer.
func (e *Engine) layer(ctx context.Context, g *graph.Graph, st *state, frontier []int64, depth int) (bool, []int64, error) {
	ctx, span := tracer.Start(ctx, "Engine.layer",
		trace.WithAttributes(
			attribute.Int("depth", depth),
			attribute.Int("frontier", len(frontier)),
		),
	)
	defer span.End()

	var next []int64
	for _, id := range frontier {
		edges, err := g.Neighbors(ctx, id)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "store unavailable")
			return false, nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		for _, edge := range edges {
			other := edge.OtherPersonID
			if _, seen := st.visited[other]; seen {
				continue
			}
			class, err := classify.Stints(edge.Self, edge.Other)
			if err != nil {
				st.skipped++
				e.log.Warn(ctx, "skipping unclassifiable edge",
					logger.Int64("from", id),
					logger.Int64("to", other),
					logger.Int64("venue_id", edge.VenueID),
					logger.Error(err),
				)
				continue
			}
			st.visited[other] = struct{}{}
			st.parents[other] = parent{from: id, edge: edge, class: class}
			if other == st.target {
				span.SetAttributes(attribute.Bool("found", true))
				return true, nil, nil
			}
			next = append(next, other)
		}
	}
	span.SetAttributes(attribute.Int("discovered", len(next)))
	return false, next, nil
}

// path walks parent pointers back from target.
func (st *state) path(source, target int64) []parent {
	var rev []parent
	for id := target; id != source; {
		p := st.parents[id]
		rev = append(rev, p)
		id = p.from
	}
	slices.Reverse(rev)
	return rev
}

// resolve turns parent pointers into hops with names and venues.
func (e *Engine) resolve(ctx context.Context, view repository.Store, path []parent) ([]Hop, error) {
	people := make(map[int64]model.Person, len(path)+1)
	venues := make(map[int64]model.Venue, len(path))

	lookupPerson := func(id int64) (model.Person, error) {
		if p, ok := people[id]; ok {
			return p, nil
		}
		p, err := view.Person(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrUnavailable) {
				return model.Person{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
			}
			e.log.Warn(ctx, "person lookup failed on path", logger.Int64("person_id", id), logger.Error(err))
			p = model.Person{ID: id, Name: fmt.Sprintf("#%d", id)}
		}
		people[id] = p
		return p, nil
	}
	lookupVenue := func(edge graph.RawEdge) (model.Venue, error) {
		if v, ok := venues[edge.VenueID]; ok {
			return v, nil
		}
		v, err := view.Venue(ctx, edge.VenueID)
		if err != nil {
			if errors.Is(err, repository.ErrUnavailable) {
				return model.Venue{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
			}
			e.log.Warn(ctx, "venue lookup failed on path", logger.Int64("venue_id", edge.VenueID), logger.Error(err))
			v = model.Venue{ID: edge.VenueID, Kind: edge.VenueKind, Name: fmt.Sprintf("#%d", edge.VenueID)}
		}
		venues[edge.VenueID] = v
		return v, nil
	}

	hops := make([]Hop, 0, len(path))
	for _, p := range path {
		from, err := lookupPerson(p.from)
		if err != nil {
			return nil, err
		}
		to, err := lookupPerson(p.edge.OtherPersonID)
		if err != nil {
			return nil, err
		}
		venue, err := lookupVenue(p.edge)
		if err != nil {
			return nil, err
		}
		hops = append(hops, Hop{From: from, To: to, Venue: venue, Edge: p.edge, Class: p.class})
	}
	return hops, nil
}

// boundary reports a timeout when ctx is done. It is only consulted between
// BFS layers.
func boundary(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return nil
}
