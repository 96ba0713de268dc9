package booking

import (
	"iter"
	"time"
)

// DefaultSlotWidth is the sampling width used when none is configured.
const DefaultSlotWidth = 15 * time.Minute

// Discretize yields start, start+width, ... while the instant is strictly
// before end. The sequence is lazy and can be ranged over any number of times.
// A non-positive width yields nothing.
func Discretize(start, end time.Time, width time.Duration) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if width <= 0 {
			return
		}
		for t := start; t.Before(end); t = t.Add(width) {
			if !yield(t) {
				return
			}
		}
	}
}

// SampleCount returns how many instants Discretize yields for the same inputs.
func SampleCount(start, end time.Time, width time.Duration) int {
	if width <= 0 || !start.Before(end) {
		return 0
	}
	span := end.Sub(start)
	n := span / width
	if span%width != 0 {
		n++
	}
	return int(n)
}

// Occupancy counts how many of the given intervals contain t.
func Occupancy(t time.Time, existing []Interval) int {
	n := 0
	for _, iv := range existing {
		if iv.Contains(t) {
			n++
		}
	}
	return n
}

// FirstSaturated walks the sample instants in order and returns the first one
// whose occupancy reaches slots. ok is false when every instant has room left.
func FirstSaturated(samples iter.Seq[time.Time], existing []Interval, slots int) (at time.Time, ok bool) {
	for t := range samples {
		if Occupancy(t, existing) >= slots {
			return t, true
		}
	}
	return time.Time{}, false
}

// AnyOverlap reports whether candidate overlaps at least one existing interval.
func AnyOverlap(candidate Interval, existing []Interval) bool {
	for _, iv := range existing {
		if candidate.Overlaps(iv) {
			return true
		}
	}
	return false
}
