package repository

import (
	"testing"

	"github.com/okian/touchline/internal/domain/model"
)

// stint builds a stint from YYYY-MM-DD strings; an empty end is open.
func stint(person, venue int64, kind model.VenueKind, role model.Role, start, end string) model.Stint {
	s, err := model.ParseDay(start)
	if err != nil {
		panic(err)
	}
	b := model.Open()
	if end != "" {
		e, err := model.ParseDay(end)
		if err != nil {
			panic(err)
		}
		b = model.Bounded(e)
	}
	return model.Stint{
		PersonID:  person,
		VenueID:   venue,
		VenueKind: kind,
		Role:      role,
		Interval:  model.Interval{Start: s, End: b},
	}
}

func league(t *testing.T) Dataset {
	t.Helper()
	ds, err := LoadDataset("testdata/league.yaml")
	if err != nil {
		t.Fatalf("load league: %v", err)
	}
	return ds
}

func personIDs(stints []model.Stint) []int64 {
	out := make([]int64, len(stints))
	for i, s := range stints {
		out[i] = s.PersonID
	}
	return out
}
