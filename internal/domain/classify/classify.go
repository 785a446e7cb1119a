// Package classify maps the roles on both ends of an edge and the venue kind
// to one of six connection kinds.
package classify

import (
	"fmt"

	"github.com/okian/touchline/internal/domain/model"
)

// Kind is a connection category.
type Kind string

// Connection kinds.
const (
	ClubTeammates         Kind = "club_teammates"
	NationalTeammates     Kind = "national_teammates"
	PlayerManagerClub     Kind = "player_manager_club"
	PlayerManagerNational Kind = "player_manager_national"
	CoManagersClub        Kind = "co_managers_club"
	CoManagersNational    Kind = "co_managers_national"
)

// Kinds lists every connection kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		ClubTeammates,
		NationalTeammates,
		PlayerManagerClub,
		PlayerManagerNational,
		CoManagersClub,
		CoManagersNational,
	}
}

// PlayerManager reports whether k pairs a player with a manager.
func (k Kind) PlayerManager() bool {
	return k == PlayerManagerClub || k == PlayerManagerNational
}

// Side names an end of an edge.
type Side int

// Edge ends. NoSide is used by symmetric kinds.
const (
	NoSide Side = iota
	SelfSide
	OtherSide
)

// Classification is the kind of an edge plus, for player/manager kinds,
// which end is the player.
type Classification struct {
	Kind   Kind
	Player Side
}

// Manager returns the end opposite the player, or NoSide for symmetric kinds.
func (c Classification) Manager() Side {
	switch c.Player {
	case SelfSide:
		return OtherSide
	case OtherSide:
		return SelfSide
	default:
		return NoSide
	}
}

type ruleKey struct {
	self, other model.Role
	venue       model.VenueKind
}

var rules = map[ruleKey]Classification{ //nolint:gochecknoglobals // static rule table
	{model.RolePlayer, model.RolePlayer, model.VenueClub}:       {Kind: ClubTeammates},
	{model.RolePlayer, model.RolePlayer, model.VenueNational}:   {Kind: NationalTeammates},
	{model.RoleManager, model.RoleManager, model.VenueClub}:     {Kind: CoManagersClub},
	{model.RoleManager, model.RoleManager, model.VenueNational}: {Kind: CoManagersNational},
	{model.RolePlayer, model.RoleManager, model.VenueClub}:      {Kind: PlayerManagerClub, Player: SelfSide},
	{model.RoleManager, model.RolePlayer, model.VenueClub}:      {Kind: PlayerManagerClub, Player: OtherSide},
	{model.RolePlayer, model.RoleManager, model.VenueNational}:  {Kind: PlayerManagerNational, Player: SelfSide},
	{model.RoleManager, model.RolePlayer, model.VenueNational}:  {Kind: PlayerManagerNational, Player: OtherSide},
}

// Classify returns the connection for an edge whose near end held role self,
// whose far end held role other, at a venue of the given kind. Any combination
// outside the rule table returns ErrUnclassifiable.
func Classify(self, other model.Role, venue model.VenueKind) (Classification, error) {
	c, ok := rules[ruleKey{self: self, other: other, venue: venue}]
	if !ok {
		return Classification{}, fmt.Errorf("%w: %q/%q at %q", ErrUnclassifiable, self, other, venue)
	}
	return c, nil
}

// Stints classifies an edge between two stints at the same venue.
func Stints(self, other model.Stint) (Classification, error) {
	if self.VenueID != other.VenueID || self.VenueKind != other.VenueKind {
		return Classification{}, fmt.Errorf("%w: stints at different venues %d/%d", ErrUnclassifiable, self.VenueID, other.VenueID)
	}
	return Classify(self.Role, other.Role, self.VenueKind)
}
