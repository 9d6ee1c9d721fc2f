package schedule

import (
	"log/slog"
	"sort"
	"time"

	"github.com/gonum/floats"

	"github.com/sky/skyplan/internal/catalog"
	"github.com/sky/skyplan/internal/metrics"
	"github.com/sky/skyplan/internal/visibility"
)

// scoreTol is the tolerance under which two candidate scores count as tied
// and the earlier start wins.
const scoreTol = 1e-9

// Slot is one scheduled observation. Fields are named, never positional:
// downstream consumers address them by name only.
type Slot struct {
	Start  time.Time
	End    time.Time
	Object catalog.Object
	Target string   // target id; equals Object.ID for single objects
	Member []string // mosaic group members, nil otherwise
	Score  float64

	// home is the visibility interval the slot was cut from; the
	// compaction pass may not shift the slot outside it.
	home visibility.Interval
}

// Duration returns the slot length.
func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Config tunes the planner. Zero values select the defaults.
type Config struct {
	// MinDuration is the shortest slot worth scheduling, and the tile or
	// peak-window length for the strategies that cut sub-windows.
	// Default 30 minutes.
	MinDuration time.Duration

	// ShiftPasses caps the gap-minimization sweeps. Default 8.
	ShiftPasses int
}

// Scheduler packs targets into a non-overlapping night plan under one
// strategy. Planning is a single-threaded global pass: every acceptance
// depends on all previously accepted slots.
type Scheduler struct {
	strat  Strategy
	cfg    Config
	logger *slog.Logger
}

// New builds a scheduler for one strategy.
func New(strat Strategy, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = 30 * time.Minute
	}
	if cfg.ShiftPasses <= 0 {
		cfg.ShiftPasses = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{strat: strat, cfg: cfg, logger: logger}
}

// Plan produces the chronologically ordered, pairwise non-overlapping slot
// sequence for the night. A target with no acceptable candidate is simply
// absent from the result; an empty plan is a valid outcome.
func (s *Scheduler) Plan(night visibility.Night, targets []Target) []Slot {
	if night.IsZero() {
		return nil
	}

	candidates := s.collect(targets)
	sort.SliceStable(candidates, func(i, j int) bool {
		si := s.strat.Score(candidates[i])
		sj := s.strat.Score(candidates[j])
		if !floats.EqualWithinAbs(si, sj, scoreTol) {
			return si > sj
		}
		if !candidates[i].Window.Start.Equal(candidates[j].Window.Start) {
			return candidates[i].Window.Start.Before(candidates[j].Window.Start)
		}
		return candidates[i].Target.ID() < candidates[j].Target.ID()
	})

	slots := s.pack(candidates)
	s.compact(slots, night)

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	metrics.AddScheduleSlots(len(slots))
	s.logger.Info("schedule planned",
		"strategy", s.strat.Name(), "targets", len(targets), "slots", len(slots))
	return slots
}

// collect expands every target's visibility into scored candidates.
func (s *Scheduler) collect(targets []Target) []Candidate {
	var out []Candidate
	for _, t := range targets {
		for _, iv := range t.Intervals {
			for _, w := range s.strat.Windows(iv, t.PeakTime, s.cfg.MinDuration) {
				out = append(out, Candidate{Target: t, Window: w, Home: iv})
			}
		}
	}
	return out
}

// pack is the greedy acceptance pass: candidates arrive best-first, a
// candidate is accepted only if its range intersects no accepted slot and
// its target is not already scheduled. Zero tolerance on overlap.
func (s *Scheduler) pack(candidates []Candidate) []Slot {
	var slots []Slot
	scheduled := make(map[string]bool)
	for _, c := range candidates {
		id := c.Target.ID()
		if scheduled[id] || s.overlapsAny(slots, c.Window) {
			continue
		}
		slots = append(slots, Slot{
			Start:  c.Window.Start,
			End:    c.Window.End,
			Object: c.Target.Object,
			Target: id,
			Member: c.Target.Members,
			Score:  s.strat.Score(c),
			home:   c.Home,
		})
		scheduled[id] = true
	}
	return slots
}

func (s *Scheduler) overlapsAny(slots []Slot, w visibility.Interval) bool {
	for _, sl := range slots {
		if w.Overlaps(visibility.Interval{Start: sl.Start, End: sl.End}) {
			return true
		}
	}
	return false
}

// compact is the gap-minimization pass: sweep the slots chronologically and
// shift each one as early as its own visibility interval and the preceding
// slot allow, repeating until a sweep moves nothing or the pass cap hits.
func (s *Scheduler) compact(slots []Slot, night visibility.Night) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	for pass := 0; pass < s.cfg.ShiftPasses; pass++ {
		moved := false
		for i := range slots {
			floor := night.Dusk
			if i > 0 {
				floor = slots[i-1].End
			}
			if home := slots[i].home; floor.Before(home.Start) {
				floor = home.Start
			}
			if floor.Before(slots[i].Start) {
				d := slots[i].Duration()
				slots[i].Start = floor
				slots[i].End = floor.Add(d)
				moved = true
			}
		}
		if !moved {
			break
		}
	}
}
