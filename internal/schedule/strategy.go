// Package schedule turns visibility windows into a conflict-free night
// plan: a scoring strategy ranks candidate slots, a greedy pass packs them
// without overlap, and a gap-minimization pass compacts the timeline.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/soniakeys/unit"

	"github.com/sky/skyplan/internal/catalog"
	"github.com/sky/skyplan/internal/visibility"
)

// Target is one schedulable unit: a single object or a mosaic group. The
// caller fills in the per-night quantities the strategies score on.
type Target struct {
	Object    catalog.Object
	Members   []string // mosaic group member ids; empty for single objects
	Intervals []visibility.Interval

	Peak         unit.Angle // highest altitude reached tonight
	PeakTime     time.Time
	MoonFraction float64 // moon-affected share of the visibility, 0..1
	Panels       int     // FOV panels needed to cover the object
}

// ID names the target in slots and logs.
func (t Target) ID() string {
	if len(t.Members) > 1 {
		return strings.Join(t.Members, "+")
	}
	return t.Object.ID
}

// InGroup reports whether the target is a mosaic group.
func (t Target) InGroup() bool {
	return len(t.Members) > 1
}

// Candidate is one proposed slot for one target.
type Candidate struct {
	Target Target
	Window visibility.Interval // the proposed slot range
	Home   visibility.Interval // the visibility interval it was cut from
}

// Strategy is the closed set of scheduling objectives. Each implementation
// proposes candidate windows within a visibility interval and scores them;
// the planner itself never branches on the strategy name.
type Strategy interface {
	Name() string

	// Windows cuts candidate slot ranges out of one visibility interval.
	// peak is the target's highest-altitude instant; min is the shortest
	// schedulable slot. An interval too short to hold min yields none.
	Windows(iv visibility.Interval, peak time.Time, min time.Duration) []visibility.Interval

	// Score ranks a candidate; higher is better.
	Score(c Candidate) float64
}

// Strategies returns one instance of every strategy, in a stable order.
func Strategies() []Strategy {
	return []Strategy{
		MaxDuration{}, MaxCount{}, MaxSNR{}, MinPanels{}, Balanced{}, MosaicFirst{},
	}
}

// ParseStrategy resolves a configured strategy name. Case and the
// dash/underscore distinction are ignored.
func ParseStrategy(name string) (Strategy, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-"))
	for _, s := range Strategies() {
		if s.Name() == key {
			return s, nil
		}
	}
	return nil, fmt.Errorf("schedule: unknown strategy %q", name)
}

// MaxDuration claims each target's whole visibility interval and prefers
// the targets that stay up longest.
type MaxDuration struct{}

func (MaxDuration) Name() string { return "max-duration" }

func (MaxDuration) Windows(iv visibility.Interval, _ time.Time, min time.Duration) []visibility.Interval {
	return fullWindow(iv, min)
}

func (MaxDuration) Score(c Candidate) float64 {
	return c.Window.Duration().Hours()
}

// MaxCount tiles every visibility interval into minimum-length slots so as
// many distinct targets as possible fit the night. Earlier tiles score
// higher, which packs the timeline from dusk forward.
type MaxCount struct{}

func (MaxCount) Name() string { return "max-count" }

func (MaxCount) Windows(iv visibility.Interval, _ time.Time, min time.Duration) []visibility.Interval {
	return tileWindows(iv, min)
}

func (MaxCount) Score(c Candidate) float64 {
	return 1 / (1 + c.Window.Start.Sub(c.Home.Start).Hours())
}

// MaxSNR centers a minimum-length slot on each target's culmination and
// ranks by an altitude-plus-brightness proxy: higher and brighter means
// more signal through less airmass.
type MaxSNR struct{}

func (MaxSNR) Name() string { return "max-snr" }

func (MaxSNR) Windows(iv visibility.Interval, peak time.Time, min time.Duration) []visibility.Interval {
	return peakWindow(iv, peak, min)
}

func (MaxSNR) Score(c Candidate) float64 {
	return c.Target.Peak.Deg() + (10-c.Target.Object.Mag)*5
}

// MinPanels prefers targets that need the fewest mosaic panels, peak-
// centered like MaxSNR. Altitude breaks ties between equal panel counts.
type MinPanels struct{}

func (MinPanels) Name() string { return "min-panels" }

func (MinPanels) Windows(iv visibility.Interval, peak time.Time, min time.Duration) []visibility.Interval {
	return peakWindow(iv, peak, min)
}

func (MinPanels) Score(c Candidate) float64 {
	panels := c.Target.Panels
	if panels < 1 {
		panels = 1
	}
	return 100/float64(panels) + c.Target.Peak.Deg()/100
}

// Balanced weighs time feasibility (window length, moon-free share,
// altitude) against difficulty (faint magnitude, panel count).
type Balanced struct{}

func (Balanced) Name() string { return "balanced" }

func (Balanced) Windows(iv visibility.Interval, _ time.Time, min time.Duration) []visibility.Interval {
	return fullWindow(iv, min)
}

func (Balanced) Score(c Candidate) float64 {
	feasibility := c.Window.Duration().Hours()*10 +
		(1-c.Target.MoonFraction)*15 +
		c.Target.Peak.Deg()/3
	difficulty := c.Target.Object.Mag + float64(c.Target.Panels)
	return feasibility - difficulty
}

// MosaicFirst schedules like MaxDuration but boosts mosaic groups above
// every single target, so composite fields claim their shared windows
// before individual objects fragment the night.
type MosaicFirst struct{}

func (MosaicFirst) Name() string { return "mosaic-first" }

func (MosaicFirst) Windows(iv visibility.Interval, _ time.Time, min time.Duration) []visibility.Interval {
	return fullWindow(iv, min)
}

func (MosaicFirst) Score(c Candidate) float64 {
	score := c.Window.Duration().Hours()
	if c.Target.InGroup() {
		score += 100
	}
	return score
}

// fullWindow proposes the whole interval as one slot.
func fullWindow(iv visibility.Interval, min time.Duration) []visibility.Interval {
	if iv.Duration() < min {
		return nil
	}
	return []visibility.Interval{iv}
}

// peakWindow proposes one minimum-length slot centered on the culmination,
// clamped into the interval.
func peakWindow(iv visibility.Interval, peak time.Time, min time.Duration) []visibility.Interval {
	if iv.Duration() < min {
		return nil
	}
	start := peak.Add(-min / 2)
	if start.Before(iv.Start) {
		start = iv.Start
	}
	if start.Add(min).After(iv.End) {
		start = iv.End.Add(-min)
	}
	return []visibility.Interval{{Start: start, End: start.Add(min)}}
}

// tileWindows cuts the interval into consecutive minimum-length slots,
// dropping any remainder shorter than min.
func tileWindows(iv visibility.Interval, min time.Duration) []visibility.Interval {
	if min <= 0 {
		return fullWindow(iv, min)
	}
	var out []visibility.Interval
	for start := iv.Start; !start.Add(min).After(iv.End); start = start.Add(min) {
		out = append(out, visibility.Interval{Start: start, End: start.Add(min)})
	}
	return out
}
