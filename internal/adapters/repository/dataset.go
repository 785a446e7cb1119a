package repository

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/touchline/internal/domain/model"
)

// fixture is the YAML layout of a dataset file.
type fixture struct {
	People []fixturePerson `yaml:"people"`
	Venues []fixtureVenue  `yaml:"venues"`
	Stints []fixtureStint  `yaml:"stints"`
}

type fixturePerson struct {
	ID          int64    `yaml:"id"`
	Name        string   `yaml:"name"`
	FullName    string   `yaml:"full_name,omitempty"`
	Nationality string   `yaml:"nationality,omitempty"`
	Roles       []string `yaml:"roles,omitempty"`
	Retired     bool     `yaml:"retired,omitempty"`
}

type fixtureVenue struct {
	ID             int64  `yaml:"id"`
	Kind           string `yaml:"kind"`
	Name           string `yaml:"name"`
	Country        string `yaml:"country,omitempty"`
	FederationCode string `yaml:"federation_code,omitempty"`
}

// fixtureStint accepts start/end for every shape; national-team player
// stints may use first_cap/last_cap instead.
type fixtureStint struct {
	Person   int64  `yaml:"person"`
	Venue    int64  `yaml:"venue"`
	Role     string `yaml:"role"`
	Start    string `yaml:"start,omitempty"`
	End      string `yaml:"end,omitempty"`
	FirstCap string `yaml:"first_cap,omitempty"`
	LastCap  string `yaml:"last_cap,omitempty"`
}

// LoadDataset reads a YAML dataset file.
func LoadDataset(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return DecodeDataset(bytes.NewReader(raw))
}

// DecodeDataset parses a YAML dataset. Dates are YYYY-MM-DD; a missing end
// is open. Venue kinds of stints are taken from their venue.
func DecodeDataset(r io.Reader) (Dataset, error) {
	var fx fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return Dataset{}, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	ds := Dataset{
		People: make([]model.Person, 0, len(fx.People)),
		Venues: make([]model.Venue, 0, len(fx.Venues)),
		Stints: make([]model.Stint, 0, len(fx.Stints)),
	}
	kinds := make(map[int64]model.VenueKind, len(fx.Venues))

	for _, p := range fx.People {
		person := model.Person{
			ID:          p.ID,
			Name:        p.Name,
			FullName:    p.FullName,
			Nationality: p.Nationality,
			Retired:     p.Retired,
		}
		for _, name := range p.Roles {
			role := model.Role(name)
			if !role.Valid() {
				return Dataset{}, fmt.Errorf("%w: person %d has unknown role %q", ErrInvalidData, p.ID, name)
			}
			person.Roles = append(person.Roles, role)
		}
		ds.People = append(ds.People, person)
	}

	for _, v := range fx.Venues {
		kind := model.VenueKind(v.Kind)
		if !kind.Valid() {
			return Dataset{}, fmt.Errorf("%w: venue %d has unknown kind %q", ErrInvalidData, v.ID, v.Kind)
		}
		kinds[v.ID] = kind
		ds.Venues = append(ds.Venues, model.Venue{
			ID:             v.ID,
			Kind:           kind,
			Name:           v.Name,
			Country:        v.Country,
			FederationCode: v.FederationCode,
		})
	}

	for i, s := range fx.Stints {
		st, err := s.stint(kinds[s.Venue])
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: stint #%d: %w", ErrInvalidData, i, err)
		}
		ds.Stints = append(ds.Stints, st)
	}
	return ds, nil
}

func (s fixtureStint) stint(kind model.VenueKind) (model.Stint, error) {
	startRaw, endRaw := s.Start, s.End
	if startRaw == "" {
		startRaw = s.FirstCap
	}
	if endRaw == "" {
		endRaw = s.LastCap
	}
	if startRaw == "" {
		return model.Stint{}, fmt.Errorf("person %d venue %d: missing start", s.Person, s.Venue)
	}

	role := model.Role(s.Role)
	if s.Role == "" {
		role = model.RolePlayer
	}

	start, err := model.ParseDay(startRaw)
	if err != nil {
		return model.Stint{}, err
	}
	end := model.Open()
	if endRaw != "" {
		d, err := model.ParseDay(endRaw)
		if err != nil {
			return model.Stint{}, err
		}
		end = model.Bounded(d)
	}

	return model.Stint{
		PersonID:  s.Person,
		VenueID:   s.Venue,
		VenueKind: kind,
		Role:      role,
		Interval:  model.Interval{Start: start, End: end},
	}, nil
}
