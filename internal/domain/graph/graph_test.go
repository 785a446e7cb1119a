package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/touchline/internal/adapters/repository"
	"github.com/okian/touchline/internal/domain/model"
	"github.com/okian/touchline/internal/synth"
)

// countingSource records lookups and can fail them.
type countingSource struct {
	Source
	personCalls map[int64]int
	venueCalls  map[int64]int
	personErr   error
	venueErr    error
}

func newCountingSource(src Source) *countingSource {
	return &countingSource{Source: src, personCalls: map[int64]int{}, venueCalls: map[int64]int{}}
}

func (c *countingSource) StintsForPerson(ctx context.Context, id int64) ([]model.Stint, error) {
	c.personCalls[id]++
	if c.personErr != nil {
		return nil, c.personErr
	}
	return c.Source.StintsForPerson(ctx, id)
}

func (c *countingSource) StintsForVenue(ctx context.Context, id int64) ([]model.Stint, error) {
	c.venueCalls[id]++
	if c.venueErr != nil {
		return nil, c.venueErr
	}
	return c.Source.StintsForVenue(ctx, id)
}

func others(edges []RawEdge) []int64 {
	out := make([]int64, len(edges))
	for i, e := range edges {
		out[i] = e.OtherPersonID
	}
	return out
}

func stint(person, venue int64, kind model.VenueKind, role model.Role, start, end time.Time, open bool) model.Stint {
	b := model.Bounded(end)
	if open {
		b = model.Open()
	}
	return model.Stint{PersonID: person, VenueID: venue, VenueKind: kind, Role: role, Interval: model.Interval{Start: start, End: b}}
}

func TestNeighbors(t *testing.T) {
	Convey("Given a graph over the sample league", t, func() {
		ctx := context.Background()
		store, err := repository.NewMemoryStoreFrom(synth.League())
		So(err, ShouldBeNil)
		g := New(store)

		Convey("When expanding a club player", func() {
			edges, err := g.Neighbors(ctx, 1)

			Convey("Then venue stints are visited in person order", func() {
				So(err, ShouldBeNil)
				So(others(edges), ShouldResemble, []int64{2, 8})
			})

			Convey("Then an end date equal to a start date overlaps on that day", func() {
				ov := edges[1].Overlap
				So(ov.Start.Equal(model.Day(2010, 7, 1)), ShouldBeTrue)
				So(ov.End.Equal(model.Bounded(model.Day(2010, 7, 1))), ShouldBeTrue)
			})
		})

		Convey("When expanding a person with stints at two venues", func() {
			edges, err := g.Neighbors(ctx, 2)

			Convey("Then the person's stints are visited by start date", func() {
				So(err, ShouldBeNil)
				So(others(edges), ShouldResemble, []int64{3, 1, 4})
				So(edges[0].VenueKind, ShouldEqual, model.VenueNational)
				So(edges[2].Other.Role, ShouldEqual, model.RoleManager)
			})
		})

		Convey("When expanding a person with no overlaps", func() {
			edges, err := g.Neighbors(ctx, 6)

			Convey("Then there are no edges", func() {
				So(err, ShouldBeNil)
				So(edges, ShouldBeEmpty)
			})
		})

		Convey("When expanding an unknown person", func() {
			edges, err := g.Neighbors(ctx, 999)

			Convey("Then there are no edges and no error", func() {
				So(err, ShouldBeNil)
				So(edges, ShouldBeEmpty)
				So(g.Diagnostics(), ShouldResemble, Diagnostics{})
			})
		})
	})
}

func TestNeighborsMemoization(t *testing.T) {
	Convey("Given a graph over a counting source", t, func() {
		ctx := context.Background()
		store, err := repository.NewMemoryStoreFrom(synth.League())
		So(err, ShouldBeNil)
		src := newCountingSource(store)
		g := New(src)

		Convey("When people sharing a venue are expanded repeatedly", func() {
			_, _ = g.Neighbors(ctx, 1)
			_, _ = g.Neighbors(ctx, 2)
			_, _ = g.Neighbors(ctx, 1)

			Convey("Then each venue and person is fetched once", func() {
				So(src.venueCalls[100], ShouldEqual, 1)
				So(src.personCalls[1], ShouldEqual, 1)
			})
		})

		Convey("When a new graph is created", func() {
			_, _ = g.Neighbors(ctx, 1)
			_, _ = New(src).Neighbors(ctx, 1)

			Convey("Then nothing is shared between graphs", func() {
				So(src.venueCalls[100], ShouldEqual, 2)
			})
		})
	})
}

func TestNeighborsDataErrors(t *testing.T) {
	Convey("Given a venue with an inverted stint", t, func() {
		ctx := context.Background()
		club := model.Venue{ID: 9, Kind: model.VenueClub, Name: "V"}
		ds := repository.Dataset{
			People: []model.Person{{ID: 1}, {ID: 2}, {ID: 3}},
			Venues: []model.Venue{club},
			Stints: []model.Stint{
				stint(1, 9, model.VenueClub, model.RolePlayer, model.Day(2000, 1, 1), time.Time{}, true),
				stint(2, 9, model.VenueClub, model.RolePlayer, model.Day(2005, 1, 1), model.Day(2001, 1, 1), false),
				stint(3, 9, model.VenueClub, model.RolePlayer, model.Day(2002, 1, 1), model.Day(2003, 1, 1), false),
			},
		}
		store, err := repository.NewMemoryStoreFrom(ds)
		So(err, ShouldBeNil)
		g := New(store)

		Convey("When neighbours are expanded from several people", func() {
			e1, err1 := g.Neighbors(ctx, 1)
			e2, err2 := g.Neighbors(ctx, 2)
			_, _ = g.Neighbors(ctx, 3)

			Convey("Then the invalid stint is skipped and counted once", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(others(e1), ShouldResemble, []int64{3})
				So(e2, ShouldBeEmpty)
				So(g.Diagnostics().InvalidStints, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a source whose lookups fail", t, func() {
		ctx := context.Background()
		store, err := repository.NewMemoryStoreFrom(synth.League())
		So(err, ShouldBeNil)
		src := newCountingSource(store)
		g := New(src)

		Convey("When a venue lookup fails with an ordinary error", func() {
			src.venueErr = errors.New("row decode failed")
			edges, err := g.Neighbors(ctx, 1)

			Convey("Then the person has no neighbours and the failure is counted", func() {
				So(err, ShouldBeNil)
				So(edges, ShouldBeEmpty)
				So(g.Diagnostics().FailedLookups, ShouldEqual, 1)
			})
		})

		Convey("When a person lookup reports not found", func() {
			src.personErr = repository.ErrNotFound
			edges, err := g.Neighbors(ctx, 1)

			Convey("Then the person simply has no neighbours", func() {
				So(err, ShouldBeNil)
				So(edges, ShouldBeEmpty)
				So(g.Diagnostics().FailedLookups, ShouldEqual, 0)
			})
		})

		Convey("When the store is unavailable", func() {
			src.venueErr = repository.ErrUnavailable
			_, err := g.Neighbors(ctx, 1)

			Convey("Then the error is returned", func() {
				So(errors.Is(err, repository.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestNeighborsKeepsParallelEdges(t *testing.T) {
	Convey("Given two people who shared a club and a national team", t, func() {
		ctx := context.Background()
		ds := repository.Dataset{
			People: []model.Person{{ID: 1}, {ID: 2}},
			Venues: []model.Venue{
				{ID: 10, Kind: model.VenueClub},
				{ID: 20, Kind: model.VenueNational},
			},
			Stints: []model.Stint{
				stint(1, 10, model.VenueClub, model.RolePlayer, model.Day(2000, 1, 1), model.Day(2004, 1, 1), false),
				stint(1, 20, model.VenueNational, model.RolePlayer, model.Day(2001, 1, 1), model.Day(2006, 1, 1), false),
				stint(2, 10, model.VenueClub, model.RolePlayer, model.Day(2002, 1, 1), model.Day(2003, 1, 1), false),
				stint(2, 20, model.VenueNational, model.RoleManager, model.Day(2005, 1, 1), time.Time{}, true),
			},
		}
		store, err := repository.NewMemoryStoreFrom(ds)
		So(err, ShouldBeNil)

		Convey("When expanding one of them", func() {
			edges, err := New(store).Neighbors(ctx, 1)

			Convey("Then both edges are returned unmerged", func() {
				So(err, ShouldBeNil)
				So(others(edges), ShouldResemble, []int64{2, 2})
				So(edges[0].VenueID, ShouldEqual, int64(10))
				So(edges[1].VenueID, ShouldEqual, int64(20))
				So(edges[1].Overlap.String(), ShouldEqual, "[2005-01-01, 2006-01-01]")
			})
		})
	})
}
