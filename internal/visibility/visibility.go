// Package visibility extracts per-object observability windows from the
// twilight-bounded night.
package visibility

import (
	"time"

	"github.com/sky/skyplan/internal/catalog"
)

// Interval is one contiguous time range. Invariant: Start < End.
type Interval struct {
	Start, End time.Time
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Contains reports whether t falls within the interval (inclusive bounds).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

// Overlaps reports whether two intervals share any time. Touching
// endpoints do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Intersect returns the pairwise intersection of two ordered, disjoint
// interval lists, itself ordered and disjoint. Used for shared mosaic
// visibility.
func Intersect(a, b []Interval) []Interval {
	var out []Interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := a[i].Start
		if b[j].Start.After(start) {
			start = b[j].Start
		}
		end := a[i].End
		if b[j].End.Before(end) {
			end = b[j].End
		}
		if start.Before(end) {
			out = append(out, Interval{Start: start, End: end})
		}
		if a[i].End.Before(b[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}

// Night is the astronomical night: the span during which the Sun stays
// below −18° geometric altitude. A zero Night means the Sun never got
// there (bright summer nights at high latitude).
type Night struct {
	Dusk, Dawn time.Time
}

// IsZero reports whether no astronomical night exists.
func (n Night) IsZero() bool {
	return n.Dusk.IsZero() && n.Dawn.IsZero()
}

// Duration returns the length of the night.
func (n Night) Duration() time.Duration {
	if n.IsZero() {
		return 0
	}
	return n.Dawn.Sub(n.Dusk)
}

// Interval returns the night as an Interval.
func (n Night) Interval() Interval {
	return Interval{Start: n.Dusk, End: n.Dawn}
}

// ObjectVisibility pairs an object with its visibility windows for one
// night. An empty interval list is a valid outcome, not an error.
type ObjectVisibility struct {
	Object    catalog.Object
	Intervals []Interval
}

// Visible reports whether the object has any window at all.
func (ov ObjectVisibility) Visible() bool {
	return len(ov.Intervals) > 0
}

// Total returns the summed duration of all windows.
func (ov ObjectVisibility) Total() time.Duration {
	var d time.Duration
	for _, iv := range ov.Intervals {
		d += iv.Duration()
	}
	return d
}
