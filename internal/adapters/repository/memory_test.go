package repository

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/touchline/internal/domain/model"
)

func TestMemoryStoreQueries(t *testing.T) {
	Convey("Given a memory store loaded with the league", t, func() {
		ctx := context.Background()
		store, err := NewMemoryStoreFrom(league(t))
		So(err, ShouldBeNil)

		Convey("When looking up a person", func() {
			p, err := store.Person(ctx, 3)

			Convey("Then the record is returned", func() {
				So(err, ShouldBeNil)
				So(p.Name, ShouldEqual, "Carla Winger")
			})
		})

		Convey("When looking up unknown ids", func() {
			_, perr := store.Person(ctx, 999)
			_, verr := store.Venue(ctx, 999)
			stints, serr := store.StintsForPerson(ctx, 999)

			Convey("Then lookups report not found and stints are empty", func() {
				So(errors.Is(perr, ErrNotFound), ShouldBeTrue)
				So(errors.Is(verr, ErrNotFound), ShouldBeTrue)
				So(serr, ShouldBeNil)
				So(stints, ShouldBeEmpty)
			})
		})

		Convey("When listing a venue's stints", func() {
			stints, err := store.StintsForVenue(ctx, 100)

			Convey("Then they are ordered by person id", func() {
				So(err, ShouldBeNil)
				So(personIDs(stints), ShouldResemble, []int64{1, 2, 4, 6, 8})
			})
		})

		Convey("When listing a person's stints", func() {
			stints, err := store.StintsForPerson(ctx, 8)

			Convey("Then they are ordered by start and carry the venue kind", func() {
				So(err, ShouldBeNil)
				So(stints, ShouldHaveLength, 2)
				So(stints[0].VenueID, ShouldEqual, int64(100))
				So(stints[0].VenueKind, ShouldEqual, model.VenueClub)
				So(stints[1].VenueID, ShouldEqual, int64(103))
				So(stints[1].VenueKind, ShouldEqual, model.VenueNational)
			})
		})

		Convey("When reading stats", func() {
			st, err := store.Stats(ctx)

			Convey("Then counts match the dataset", func() {
				So(err, ShouldBeNil)
				So(st, ShouldResemble, Stats{People: 8, Managers: 3, Clubs: 2, NationalTeams: 2, Stints: 13})
			})
		})
	})
}

func TestMemoryStoreSearchPeople(t *testing.T) {
	Convey("Given a memory store loaded with the league", t, func() {
		ctx := context.Background()
		store, err := NewMemoryStoreFrom(league(t))
		So(err, ShouldBeNil)

		Convey("When the query is shorter than two characters", func() {
			people, err := store.SearchPeople(ctx, " a ", 10)

			Convey("Then nothing is returned", func() {
				So(err, ShouldBeNil)
				So(people, ShouldBeEmpty)
			})
		})

		Convey("When the query matches names case-insensitively", func() {
			people, err := store.SearchPeople(ctx, "ER", 0)

			Convey("Then matches are ordered by name", func() {
				So(err, ShouldBeNil)
				names := make([]string, len(people))
				for i, p := range people {
					names[i] = p.Name
				}
				So(names, ShouldResemble, []string{"Alice Striker", "Bruno Keeper", "Carla Winger", "Fabio Loner", "Hugo Veteran"})
			})
		})

		Convey("When the query only matches a full name", func() {
			people, err := store.SearchPeople(ctx, "maria", 10)

			Convey("Then the person is found", func() {
				So(err, ShouldBeNil)
				So(people, ShouldHaveLength, 1)
				So(people[0].ID, ShouldEqual, int64(1))
			})
		})

		Convey("When a limit is given", func() {
			people, err := store.SearchPeople(ctx, "ER", 2)

			Convey("Then results are truncated", func() {
				So(err, ShouldBeNil)
				So(people, ShouldHaveLength, 2)
			})
		})
	})
}

func TestMemoryStoreLoad(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		reloads := 0
		store.OnReload(func() { reloads++ })

		Convey("When it is empty", func() {
			st, err := store.Stats(ctx)

			Convey("Then it reports no records", func() {
				So(err, ShouldBeNil)
				So(st, ShouldResemble, Stats{})
			})
		})

		Convey("When a valid dataset is loaded", func() {
			So(store.Load(league(t)), ShouldBeNil)

			Convey("Then reload hooks run and data is visible", func() {
				So(reloads, ShouldEqual, 1)
				_, err := store.Person(ctx, 1)
				So(err, ShouldBeNil)
			})

			Convey("Then a previously taken snapshot is unaffected by later loads", func() {
				snap := store.Snapshot()
				So(store.Load(Dataset{}), ShouldBeNil)

				_, err := snap.Person(ctx, 1)
				So(err, ShouldBeNil)
				_, err = store.Person(ctx, 1)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When an invalid dataset is loaded", func() {
			So(store.Load(league(t)), ShouldBeNil)
			bad := Dataset{People: []model.Person{{ID: 1}, {ID: 1}}}
			err := store.Load(bad)

			Convey("Then the previous contents stay in place", func() {
				So(errors.Is(err, ErrInvalidData), ShouldBeTrue)
				So(reloads, ShouldEqual, 1)
				_, err := store.Person(ctx, 3)
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestBuildSnapshotValidation(t *testing.T) {
	venues := []model.Venue{{ID: 9, Kind: model.VenueClub, Name: "V"}}
	people := []model.Person{{ID: 1, Name: "A"}}

	Convey("Given datasets with referential problems", t, func() {
		cases := []struct {
			name string
			ds   Dataset
			want string
		}{
			{
				name: "non-positive person id",
				ds:   Dataset{People: []model.Person{{ID: 0, Name: "Zero"}}},
				want: "person id 0 is not positive",
			},
			{
				name: "non-positive venue id",
				ds:   Dataset{Venues: []model.Venue{{ID: -3, Kind: model.VenueClub, Name: "Minus"}}},
				want: "venue id -3 is not positive",
			},
			{
				name: "duplicate venue",
				ds:   Dataset{Venues: append(venues, venues[0])},
				want: "duplicate venue",
			},
			{
				name: "unknown venue kind",
				ds:   Dataset{Venues: []model.Venue{{ID: 2, Kind: "arena"}}},
				want: "unknown kind",
			},
			{
				name: "unknown person",
				ds: Dataset{Venues: venues, Stints: []model.Stint{
					stint(2, 9, "", model.RolePlayer, "2001-01-01", ""),
				}},
				want: "unknown person",
			},
			{
				name: "unknown venue",
				ds: Dataset{People: people, Stints: []model.Stint{
					stint(1, 8, "", model.RolePlayer, "2001-01-01", ""),
				}},
				want: "unknown venue",
			},
			{
				name: "kind mismatch",
				ds: Dataset{People: people, Venues: venues, Stints: []model.Stint{
					stint(1, 9, model.VenueNational, model.RolePlayer, "2001-01-01", ""),
				}},
				want: "has kind",
			},
			{
				name: "duplicate stint",
				ds: Dataset{People: people, Venues: venues, Stints: []model.Stint{
					stint(1, 9, "", model.RolePlayer, "2001-01-01", "2002-01-01"),
					stint(1, 9, "", model.RoleManager, "2001-01-01", ""),
				}},
				want: "duplicate stint",
			},
		}

		for _, tc := range cases {
			Convey("When the dataset has a "+tc.name, func() {
				_, err := buildSnapshot(tc.ds)

				Convey("Then it is rejected", func() {
					So(errors.Is(err, ErrInvalidData), ShouldBeTrue)
					So(err.Error(), ShouldContainSubstring, tc.want)
				})
			})
		}

		Convey("When a stint interval is inverted", func() {
			ds := Dataset{People: people, Venues: venues, Stints: []model.Stint{
				stint(1, 9, "", model.RolePlayer, "2005-01-01", "2001-01-01"),
			}}
			snap, err := buildSnapshot(ds)

			Convey("Then it is kept for search to skip", func() {
				So(err, ShouldBeNil)
				stints, _ := snap.StintsForPerson(context.Background(), 1)
				So(stints, ShouldHaveLength, 1)
			})
		})
	})
}

func TestStintOrdering(t *testing.T) {
	Convey("Given unordered stints", t, func() {
		a := stint(1, 20, model.VenueClub, model.RolePlayer, "2001-01-01", "2002-01-01")
		b := stint(1, 10, model.VenueClub, model.RolePlayer, "2001-01-01", "2003-01-01")
		c := stint(1, 10, model.VenueClub, model.RoleManager, "2001-01-01", "")
		d := stint(2, 10, model.VenueClub, model.RolePlayer, "2000-01-01", "")
		e := stint(1, 10, model.VenueClub, model.RolePlayer, "2001-01-01", "")

		Convey("When sorting a person's stints", func() {
			stints := []model.Stint{a, e, b, c}
			SortPersonStints(stints)

			Convey("Then start, venue, role and end decide, open end last", func() {
				So(stints, ShouldResemble, []model.Stint{c, b, e, a})
			})
		})

		Convey("When sorting a venue's stints", func() {
			stints := []model.Stint{d, e, c}
			SortVenueStints(stints)

			Convey("Then person id, start and role decide", func() {
				So(stints, ShouldResemble, []model.Stint{c, e, d})
			})
		})
	})
}
