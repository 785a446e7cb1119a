package synth

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/touchline/internal/adapters/repository"
	"github.com/okian/touchline/internal/domain/model"
)

// Generator defaults.
const (
	defaultPeople          = 200
	defaultClubs           = 20
	defaultNations         = 5
	defaultStintsPerPerson = 3
	defaultFirstYear       = 1990
	defaultYears           = 30
	maxStintYears          = 6
	managerShare           = 5 // one manager in every managerShare people
	openShare              = 8 // one open stint in every openShare stints

	// Venue ids start above person ids so the two are easy to tell apart.
	venueIDBase = 10000
)

// Config sizes a generated dataset.
type Config struct {
	People          int
	Clubs           int
	Nations         int
	StintsPerPerson int
	FirstYear       int
	Years           int
}

func (c Config) withDefaults() Config {
	if c.People <= 0 {
		c.People = defaultPeople
	}
	if c.Clubs <= 0 {
		c.Clubs = defaultClubs
	}
	if c.Nations < 0 {
		c.Nations = 0
	} else if c.Nations == 0 {
		c.Nations = defaultNations
	}
	if c.StintsPerPerson <= 0 {
		c.StintsPerPerson = defaultStintsPerPerson
	}
	if c.FirstYear <= 0 {
		c.FirstYear = defaultFirstYear
	}
	if c.Years <= 0 {
		c.Years = defaultYears
	}
	return c
}

// Generate builds a valid random dataset. The same seed and config always
// produce the same dataset. Person ids run from 1 to People.
func Generate(seed uint64, cfg Config) repository.Dataset {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	ds := repository.Dataset{
		People: make([]model.Person, 0, cfg.People),
		Venues: make([]model.Venue, 0, cfg.Clubs+cfg.Nations),
	}
	for i := 0; i < cfg.Clubs; i++ {
		ds.Venues = append(ds.Venues, model.Venue{
			ID:   int64(venueIDBase + i),
			Kind: model.VenueClub,
			Name: fmt.Sprintf("Club %d", i+1),
		})
	}
	for i := 0; i < cfg.Nations; i++ {
		ds.Venues = append(ds.Venues, model.Venue{
			ID:             int64(venueIDBase + cfg.Clubs + i),
			Kind:           model.VenueNational,
			Name:           fmt.Sprintf("Nation %d", i+1),
			FederationCode: fmt.Sprintf("N%02d", i+1),
		})
	}

	seen := make(map[model.StintKey]struct{})
	for id := int64(1); id <= int64(cfg.People); id++ {
		role := model.RolePlayer
		if rng.IntN(managerShare) == 0 {
			role = model.RoleManager
		}
		ds.People = append(ds.People, model.Person{
			ID:    id,
			Name:  fmt.Sprintf("Person %d", id),
			Roles: []model.Role{role},
		})

		for n := 0; n < cfg.StintsPerPerson; n++ {
			venue := ds.Venues[rng.IntN(len(ds.Venues))]
			st := randomStint(rng, cfg, id, venue, role)
			if _, dup := seen[st.Key()]; dup {
				continue
			}
			seen[st.Key()] = struct{}{}
			ds.Stints = append(ds.Stints, st)
		}
	}
	return ds
}

func randomStint(rng *rand.Rand, cfg Config, person int64, venue model.Venue, role model.Role) model.Stint {
	start := model.Day(cfg.FirstYear+rng.IntN(cfg.Years), time.Month(1+rng.IntN(12)), 1+rng.IntN(28))
	end := model.Open()
	if rng.IntN(openShare) != 0 {
		end = model.Bounded(start.AddDate(rng.IntN(maxStintYears), rng.IntN(12), 0))
	}
	return model.Stint{
		PersonID:  person,
		VenueID:   venue.ID,
		VenueKind: venue.Kind,
		Role:      role,
		Interval:  model.Interval{Start: start, End: end},
	}
}
