// Package repository defines the affiliation store contract and its
// memory, SQL and circuit-breaker implementations.
package repository

import (
	"context"

	"github.com/okian/touchline/internal/domain/model"
)

// Store provides read access to people, venues and stints. Person and venue
// ids are positive.
//
// Implementations must return stints in a deterministic order so that path
// search tie-breaks are reproducible:
//   - StintsForPerson: by start, venue id, role, end (open last)
//   - StintsForVenue: by person id, start, role
type Store interface {
	// Person returns ErrNotFound if the id is unknown.
	Person(ctx context.Context, id int64) (model.Person, error)
	// Venue returns ErrNotFound if the id is unknown.
	Venue(ctx context.Context, id int64) (model.Venue, error)
	// StintsForPerson returns an empty slice for unknown people.
	StintsForPerson(ctx context.Context, personID int64) ([]model.Stint, error)
	StintsForVenue(ctx context.Context, venueID int64) ([]model.Stint, error)
	// SearchPeople matches name or full name case-insensitively, ordered by name then id.
	SearchPeople(ctx context.Context, query string, limit int) ([]model.Person, error)
	Stats(ctx context.Context) (Stats, error)
}

// Snapshotter is implemented by stores that can hand out an immutable view
// which stays consistent for the duration of one search.
type Snapshotter interface {
	Snapshot() Store
}

// Stats summarizes store contents.
type Stats struct {
	People        int `json:"people"`
	Managers      int `json:"managers"` // people holding the manager role
	Clubs         int `json:"clubs"`
	NationalTeams int `json:"nationalTeams"`
	Stints        int `json:"stints"`
}

// Dataset is a complete set of records used to load or seed a store.
type Dataset struct {
	People []model.Person
	Venues []model.Venue
	Stints []model.Stint
}

// Stats counts the dataset's records.
func (d Dataset) Stats() Stats {
	st := Stats{People: len(d.People), Stints: len(d.Stints)}
	for _, p := range d.People {
		if p.HasRole(model.RoleManager) {
			st.Managers++
		}
	}
	for _, v := range d.Venues {
		switch v.Kind {
		case model.VenueClub:
			st.Clubs++
		case model.VenueNational:
			st.NationalTeams++
		}
	}
	return st
}
