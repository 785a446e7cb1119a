package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day layout used for stint dates.
const DateLayout = "2006-01-02"

// Day returns the UTC midnight of the given calendar day.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC calendar day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrInvalidDate, s, err)
	}
	return t, nil
}

// Bound is the end of an interval: either a calendar day or open
// (ongoing, treated as +infinity). The zero value is Open.
type Bound struct {
	date    time.Time
	bounded bool
}

// Bounded returns a closed end at d.
func Bounded(d time.Time) Bound {
	return Bound{date: d.UTC(), bounded: true}
}

// Open returns an open end.
func Open() Bound {
	return Bound{}
}

// IsOpen reports whether the bound is open.
func (b Bound) IsOpen() bool { return !b.bounded }

// Date returns the bound's day and true, or the zero time and false when open.
func (b Bound) Date() (time.Time, bool) {
	return b.date, b.bounded
}

// Before reports whether b ends strictly earlier than o. Open is later than
// every date and not before another open bound.
func (b Bound) Before(o Bound) bool {
	switch {
	case !b.bounded:
		return false
	case !o.bounded:
		return true
	default:
		return b.date.Before(o.date)
	}
}

// Equal reports whether both bounds denote the same end.
func (b Bound) Equal(o Bound) bool {
	if b.bounded != o.bounded {
		return false
	}
	return !b.bounded || b.date.Equal(o.date)
}

func (b Bound) String() string {
	if !b.bounded {
		return "open"
	}
	return b.date.Format(DateLayout)
}

// Interval is a closed span of calendar days [Start, End], End possibly open.
type Interval struct {
	Start time.Time
	End   Bound
}

// NewInterval builds an interval from a start and an optional end; a nil end
// is open.
func NewInterval(start time.Time, end *time.Time) Interval {
	if end == nil {
		return Interval{Start: start.UTC(), End: Open()}
	}
	return Interval{Start: start.UTC(), End: Bounded(*end)}
}

// Valid reports whether Start is not after End.
func (i Interval) Valid() bool {
	end, ok := i.End.Date()
	return !ok || !i.Start.After(end)
}

// Contains reports whether day t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	if t.Before(i.Start) {
		return false
	}
	end, ok := i.End.Date()
	return !ok || !t.After(end)
}

// Equal reports whether both intervals cover the same days.
func (i Interval) Equal(o Interval) bool {
	return i.Start.Equal(o.Start) && i.End.Equal(o.End)
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s]", i.Start.Format(DateLayout), i.End)
}

// Overlap returns the intersection of a and b and whether one exists.
//
// Intervals are closed: when one interval starts on the day the other ends
// they overlap on that single day. The result starts at the later start and
// ends at the earlier defined end; it is open only when both ends are open.
// Overlap is symmetric.
func Overlap(a, b Interval) (Interval, bool) {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}

	end := a.End
	if b.End.Before(end) {
		end = b.End
	}

	out := Interval{Start: start, End: end}
	if !out.Valid() {
		return Interval{}, false
	}
	return out, true
}
