package repository

import (
	"slices"
	"strings"

	"github.com/okian/touchline/internal/domain/model"
)

// SortPersonStints orders a person's stints by start, venue id, role, end.
func SortPersonStints(stints []model.Stint) {
	slices.SortStableFunc(stints, comparePersonStints)
}

// SortVenueStints orders a venue's stints by person id, start, role.
func SortVenueStints(stints []model.Stint) {
	slices.SortStableFunc(stints, compareVenueStints)
}

func comparePersonStints(a, b model.Stint) int {
	if c := a.Interval.Start.Compare(b.Interval.Start); c != 0 {
		return c
	}
	if c := compareInt64(a.VenueID, b.VenueID); c != 0 {
		return c
	}
	if c := strings.Compare(string(a.Role), string(b.Role)); c != 0 {
		return c
	}
	return compareBound(a.Interval.End, b.Interval.End)
}

func compareVenueStints(a, b model.Stint) int {
	if c := compareInt64(a.PersonID, b.PersonID); c != 0 {
		return c
	}
	if c := a.Interval.Start.Compare(b.Interval.Start); c != 0 {
		return c
	}
	return strings.Compare(string(a.Role), string(b.Role))
}

func compareBound(a, b model.Bound) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
