// Package schedule holds the pure time arithmetic used by the booking
// engine: half-open interval overlap, table and room windows, capacity
// checks and occupied-day counting. Nothing here touches storage.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTableDuration is used when neither the caller nor the
// configuration supplies a table reservation length.
const DefaultTableDuration = 120 * time.Minute

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
	day         = 24 * time.Hour
)

// ErrInvalidInterval is returned for windows whose end is not after their
// start, and for unparsable dates or clock times.
var ErrInvalidInterval = errors.New("invalid interval")

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share at least
// one instant. Intervals that only touch (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Overlaps reports whether i and o conflict under the half-open rule.
func (i Interval) Overlaps(o Interval) bool {
	return Overlaps(i.Start, i.End, o.Start, o.End)
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return !i.Start.IsZero() && i.End.After(i.Start)
}

// Duration is End - Start.
func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

// Clamp returns the part of i inside bounds and false when nothing is left.
func (i Interval) Clamp(bounds Interval) (Interval, bool) {
	out := i
	if out.Start.Before(bounds.Start) {
		out.Start = bounds.Start
	}
	if out.End.After(bounds.End) {
		out.End = bounds.End
	}
	if !out.End.After(out.Start) {
		return Interval{}, false
	}
	return out, true
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.UTC().Format(time.RFC3339), i.End.UTC().Format(time.RFC3339))
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInterval, s)
	}
	return t, nil
}

// ParseClock parses HH:MM or HH:MM:SS and returns the offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	layout := clockLayout
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidInterval, s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
}

// TableWindow builds the window of a table reservation starting at
// date+clock. A non-positive duration falls back to def, and a
// non-positive def to DefaultTableDuration. The same fallback has to be
// used for every reservation compared against each other, which is why the
// resulting end is persisted with the booking.
func TableWindow(date time.Time, clock, duration, def time.Duration) (Interval, error) {
	if duration <= 0 {
		duration = def
	}
	if duration <= 0 {
		duration = DefaultTableDuration
	}
	if date.IsZero() {
		return Interval{}, fmt.Errorf("%w: reservation date is required", ErrInvalidInterval)
	}
	if clock < 0 || clock >= day {
		return Interval{}, fmt.Errorf("%w: reservation time out of range", ErrInvalidInterval)
	}
	start := Midnight(date).Add(clock)
	return Interval{Start: start, End: start.Add(duration)}, nil
}

// StayWindow builds the whole-day window of a room stay. The check-out day
// is exclusive: a stay ending on day D and one starting on D share only
// the boundary.
func StayWindow(checkIn, checkOut time.Time) (Interval, error) {
	in, out := Midnight(checkIn), Midnight(checkOut)
	if checkIn.IsZero() || checkOut.IsZero() {
		return Interval{}, fmt.Errorf("%w: check-in and check-out dates are required", ErrInvalidInterval)
	}
	if !out.After(in) {
		return Interval{}, fmt.Errorf("%w: check-out must be after check-in", ErrInvalidInterval)
	}
	return Interval{Start: in, End: out}, nil
}

// Nights is the number of whole days covered by a stay window.
func Nights(stay Interval) int {
	return int(Midnight(stay.End).Sub(Midnight(stay.Start)) / day)
}

// Midnight truncates t to the start of its UTC day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
