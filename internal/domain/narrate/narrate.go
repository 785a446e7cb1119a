// Package narrate renders search hops as human-readable steps.
package narrate

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/touchline/internal/domain/classify"
	"github.com/okian/touchline/internal/domain/model"
	"github.com/okian/touchline/internal/domain/search"
	"github.com/okian/touchline/internal/domain/types"
)

// template renders a description; a and b are in canonical order (the player
// first for player/manager kinds).
type template func(a, b, venue string) string

var templates = map[classify.Kind]template{ //nolint:gochecknoglobals // static lookup table
	classify.ClubTeammates: func(a, b, v string) string {
		return fmt.Sprintf("%s and %s were teammates at %s", a, b, v)
	},
	classify.NationalTeammates: func(a, b, v string) string {
		return fmt.Sprintf("%s and %s both represented %s", a, b, v)
	},
	classify.PlayerManagerClub: func(p, m, v string) string {
		return fmt.Sprintf("%s played under manager %s at %s", p, m, v)
	},
	classify.PlayerManagerNational: func(p, m, v string) string {
		return fmt.Sprintf("%s played for %s under manager %s", p, v, m)
	},
	classify.CoManagersClub: func(a, b, v string) string {
		return fmt.Sprintf("%s and %s both managed %s", a, b, v)
	},
	classify.CoManagersNational: func(a, b, v string) string {
		return fmt.Sprintf("%s and %s both managed the %s national team", a, b, v)
	},
}

// Option configures a Narrator.
type Option func(*Narrator)

// WithClock sets the clock used to decide whether an ongoing overlap started
// this year.
func WithClock(now func() time.Time) Option {
	return func(n *Narrator) {
		if now != nil {
			n.now = now
		}
	}
}

// Narrator turns hops into steps. It is safe for concurrent use.
type Narrator struct {
	now func() time.Time
}

// New creates a Narrator.
func New(opts ...Option) *Narrator {
	n := &Narrator{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Steps renders hops in path order. The result is never nil.
func (n *Narrator) Steps(hops []search.Hop) []types.Step {
	steps := make([]types.Step, 0, len(hops))
	for _, h := range hops {
		steps = append(steps, n.Step(h))
	}
	return steps
}

// Step renders one hop.
func (n *Narrator) Step(h search.Hop) types.Step {
	period := n.Period(h.Edge.Overlap)
	return types.Step{
		FromPersonID:   h.From.ID,
		FromPersonName: h.From.Name,
		ToPersonID:     h.To.ID,
		ToPersonName:   h.To.Name,
		Kind:           string(h.Class.Kind),
		VenueName:      h.Venue.Name,
		Period:         period,
		Description:    Describe(h.Class, h.From.Name, h.To.Name, h.Venue.Name, period),
	}
}

// Period describes an overlap window:
//   - open end: "since <startYear>", or "currently" when it started this year
//   - same year: "in <year>"
//   - otherwise: "from <startYear> to <endYear>"
func (n *Narrator) Period(iv model.Interval) string {
	startYear := iv.Start.Year()
	end, bounded := iv.End.Date()
	switch {
	case !bounded && startYear == n.now().UTC().Year():
		return "currently"
	case !bounded:
		return fmt.Sprintf("since %d", startYear)
	case startYear == end.Year():
		return fmt.Sprintf("in %d", startYear)
	default:
		return fmt.Sprintf("from %d to %d", startYear, end.Year())
	}
}

// Describe renders the sentence for a hop between from and to. Symmetric kinds
// keep traversal order; player/manager kinds put the player first.
func Describe(c classify.Classification, from, to, venue, period string) string {
	render, ok := templates[c.Kind]
	if !ok {
		return strings.TrimSpace(fmt.Sprintf("%s and %s are connected through %s %s", from, to, venue, period))
	}
	a, b := from, to
	if c.Player == classify.OtherSide {
		a, b = to, from
	}
	return strings.TrimSpace(render(a, b, venue) + " " + period)
}
