// Package model contains domain models passed between layers.
package model

import "fmt"

// Role is the capacity in which a person held a stint.
type Role string

// Roles.
const (
	RolePlayer  Role = "player"
	RoleManager Role = "manager"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePlayer || r == RoleManager
}

// VenueKind distinguishes clubs from national teams.
type VenueKind string

// Venue kinds.
const (
	VenueClub     VenueKind = "club"
	VenueNational VenueKind = "national_team"
)

// Valid reports whether k is a known venue kind.
func (k VenueKind) Valid() bool {
	return k == VenueClub || k == VenueNational
}

// Person is a footballer and/or manager. Attributes are owned by ingestion;
// the search engine only reads them.
type Person struct {
	ID          int64
	Name        string
	FullName    string
	Nationality string
	Roles       []Role
	Retired     bool
}

// HasRole reports whether the person's capability set contains r.
func (p Person) HasRole(r Role) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Venue is a club or a national team. Club and national team ids share one
// id space.
type Venue struct {
	ID   int64
	Kind VenueKind
	Name string
	// Country is set for clubs.
	Country string
	// FederationCode is set for national teams, e.g. "ENG".
	FederationCode string
}

func (v Venue) String() string {
	return fmt.Sprintf("%s(%d %s)", v.Kind, v.ID, v.Name)
}
