// Package booking holds the pure interval arithmetic behind room reservations:
// naive timestamps, discretization into sample instants, and the capacity and
// overlap predicates evaluated against existing reservations.
package booking

import (
	"fmt"
	"time"
)

// Layout is the textual form of every timestamp crossing a service boundary.
// Timestamps carry no offset and are interpreted as local wall-clock time.
const Layout = "2006-01-02T15:04"

// Naive strips the location from t, keeping its wall clock. All stored and
// compared timestamps are naive so that values read back from a
// "timestamp without time zone" column compare equal to parsed input.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Parse reads a Layout-formatted timestamp.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q must look like %s", s, Layout)
	}
	return t, nil
}

// Format renders t using Layout.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Clock supplies the current naive wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the process clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return Naive(time.Now()) }

// Interval is a half-open span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval is non-empty.
func (iv Interval) Valid() bool {
	return iv.Start.Before(iv.End)
}

// Expand widens the interval by d on both sides.
func (iv Interval) Expand(d time.Duration) Interval {
	return Interval{Start: iv.Start.Add(-d), End: iv.End.Add(d)}
}

// Overlaps reports whether the two half-open intervals share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether t lies in [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

func (iv Interval) String() string {
	return Format(iv.Start) + "/" + Format(iv.End)
}
