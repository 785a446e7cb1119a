package model

import "fmt"

// Shape is the (role x venue kind) form of a stint.
type Shape string

// Stint shapes. National-player stints span first to last cap.
const (
	ShapeClubPlayer      Shape = "club_player"
	ShapeClubManager     Shape = "club_manager"
	ShapeNationalPlayer  Shape = "national_player"
	ShapeNationalManager Shape = "national_manager"
	ShapeUnknown         Shape = "unknown"
)

// Stint is a time-bounded affiliation of a person to a venue in one role.
// (PersonID, VenueID, Interval.Start) is unique.
type Stint struct {
	PersonID  int64
	VenueID   int64
	VenueKind VenueKind
	Role      Role
	Interval  Interval
}

// StintKey identifies a stint.
type StintKey struct {
	PersonID int64
	VenueID  int64
	Start    int64 // unix seconds of Interval.Start
}

// Key returns the stint's identity.
func (s Stint) Key() StintKey {
	return StintKey{PersonID: s.PersonID, VenueID: s.VenueID, Start: s.Interval.Start.Unix()}
}

// Shape returns which of the four stint shapes s has.
func (s Stint) Shape() Shape {
	switch {
	case s.VenueKind == VenueClub && s.Role == RolePlayer:
		return ShapeClubPlayer
	case s.VenueKind == VenueClub && s.Role == RoleManager:
		return ShapeClubManager
	case s.VenueKind == VenueNational && s.Role == RolePlayer:
		return ShapeNationalPlayer
	case s.VenueKind == VenueNational && s.Role == RoleManager:
		return ShapeNationalManager
	default:
		return ShapeUnknown
	}
}

// Validate checks the interval invariant start <= end.
func (s Stint) Validate() error {
	if !s.Interval.Valid() {
		return fmt.Errorf("%w: person %d venue %d %s", ErrInvalidInterval, s.PersonID, s.VenueID, s.Interval)
	}
	return nil
}

func (s Stint) String() string {
	return fmt.Sprintf("%s person=%d venue=%d %s", s.Shape(), s.PersonID, s.VenueID, s.Interval)
}
