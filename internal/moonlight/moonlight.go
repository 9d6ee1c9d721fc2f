// Package moonlight annotates visibility windows with lunar interference.
// A window slice is "affected" while the object sits inside the Moon's
// phase-scaled interference radius. Whether the Moon is above the horizon
// does not enter the model: scattered moonlight degrades the sky near
// moonrise and moonset too, so the radius alone decides.
package moonlight

import (
	"log/slog"
	"math"
	"time"

	"github.com/soniakeys/unit"

	"github.com/sky/skyplan/internal/ephemeris"
	"github.com/sky/skyplan/internal/visibility"
)

// defaultStep is the annotation sampling step. The Moon moves about half a
// degree per hour, so five minutes resolves the affected boundary to a few
// hundredths of a degree.
const defaultStep = 5 * time.Minute

// StateFunc supplies the Moon's state at an instant. ephemeris.Engine.Moon
// satisfies it; tests inject synthetic phases.
type StateFunc func(time.Time) ephemeris.MoonState

// PositionFunc supplies an object's apparent position at an instant.
type PositionFunc func(time.Time) (ephemeris.Sample, error)

// Span is one maximal run of a visibility window with a constant
// interference verdict. MinSeparation is the smallest object–Moon distance
// sampled within the span.
type Span struct {
	visibility.Interval
	Affected      bool
	MinSeparation unit.Angle
}

// Model evaluates interference for one night's Moon.
type Model struct {
	moon   StateFunc
	step   time.Duration
	logger *slog.Logger
}

// New builds a model. A non-positive step selects the default.
func New(moon StateFunc, step time.Duration, logger *slog.Logger) *Model {
	if step <= 0 {
		step = defaultStep
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{moon: moon, step: step, logger: logger}
}

// Annotate splits the window into spans of constant interference. The spans
// tile the window exactly: the first starts at iv.Start, the last ends at
// iv.End, and consecutive spans share a boundary. Boundaries are resolved
// at the sampling step.
func (m *Model) Annotate(pos PositionFunc, iv visibility.Interval) ([]Span, error) {
	sep := func(t time.Time) (unit.Angle, error) {
		p, err := pos(t)
		if err != nil {
			return 0, err
		}
		moon := m.moon(t)
		return ephemeris.Separation(p, ephemeris.Sample{RA: moon.RA, Dec: moon.Dec}), nil
	}

	first, err := sep(iv.Start)
	if err != nil {
		return nil, err
	}
	cur := Span{
		Interval:      visibility.Interval{Start: iv.Start, End: iv.End},
		Affected:      first < m.moon(iv.Start).Radius,
		MinSeparation: first,
	}

	var out []Span
	for t := iv.Start.Add(m.step); t.Before(iv.End); t = t.Add(m.step) {
		s, err := sep(t)
		if err != nil {
			return nil, err
		}
		affected := s < m.moon(t).Radius

		if affected != cur.Affected {
			cur.End = t
			out = append(out, cur)
			cur = Span{
				Interval: visibility.Interval{Start: t, End: iv.End},
				Affected: affected,
			}
		}
		if cur.MinSeparation == 0 || s < cur.MinSeparation {
			cur.MinSeparation = s
		}
	}

	// Fold the window's final instant into the closing span.
	if last, err := sep(iv.End); err == nil && (cur.MinSeparation == 0 || last < cur.MinSeparation) {
		cur.MinSeparation = last
	} else if err != nil {
		return nil, err
	}
	out = append(out, cur)
	return out, nil
}

// AffectedFraction returns the share of the spanned time that is
// moon-affected, in [0,1]. An empty slice counts as unaffected.
func AffectedFraction(spans []Span) float64 {
	var total, hit time.Duration
	for _, s := range spans {
		total += s.Duration()
		if s.Affected {
			hit += s.Duration()
		}
	}
	if total <= 0 {
		return 0
	}
	f := float64(hit) / float64(total)
	return math.Min(1, f)
}
