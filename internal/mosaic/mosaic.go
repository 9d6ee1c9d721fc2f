// Package mosaic groups nearby catalog objects into composite targets that
// share a single field of view, so the planner can schedule one slot for
// the whole group instead of several overlapping ones.
//
// Grouping is greedy and pair-first: candidate pairs are ranked by angular
// span, tightest first, so when an object could join more than one group it
// lands in the tighter of the two. Groups are never singletons.
package mosaic

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/soniakeys/meeus/v3/angle"
	"github.com/soniakeys/unit"

	"github.com/sky/skyplan/internal/catalog"
	"github.com/sky/skyplan/internal/visibility"
)

// FOV is the imaging field of view. Margin is the fractional slack the
// grouper keeps around a composite target, and doubles as the overlap
// fraction between adjacent panels when tiling a large object.
type FOV struct {
	Width  unit.Angle
	Height unit.Angle
	Margin float64 // 0..1
}

// Limiting returns the smaller FOV dimension: a group must fit within it in
// every orientation, since the rotator angle is not planned here.
func (f FOV) Limiting() unit.Angle {
	if f.Height < f.Width {
		return f.Height
	}
	return f.Width
}

// Group is a composite target: two or more objects inside one field, plus
// the windows during which every member is visible at once.
type Group struct {
	Objects []catalog.Object
	Extent  unit.Angle // widest pairwise span, edge to edge
	Windows []visibility.Interval
}

// IDs returns the member ids, for logging and slot labels.
func (g Group) IDs() []string {
	ids := make([]string, len(g.Objects))
	for i, o := range g.Objects {
		ids[i] = o.ID
	}
	return ids
}

// Grouper builds mosaic groups for one field of view.
type Grouper struct {
	fov       FOV
	minShared time.Duration
	logger    *slog.Logger
}

// NewGrouper builds a grouper. minShared is the shortest simultaneous
// visibility worth scheduling as a group; non-positive disables the check.
func NewGrouper(fov FOV, minShared time.Duration, logger *slog.Logger) *Grouper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Grouper{fov: fov, minShared: minShared, logger: logger}
}

// span is the edge-to-edge angular size of two objects taken together:
// center separation plus half of each major axis.
func span(a, b catalog.Object) unit.Angle {
	sep := angle.Sep(unit.Angle(a.RA), a.Dec, unit.Angle(b.RA), b.Dec)
	return sep + unit.Angle((a.MajorAxis.Rad()+b.MajorAxis.Rad())/2)
}

// fits reports whether an extent, padded by the margin, fits the limiting
// FOV dimension.
func (g *Grouper) fits(extent unit.Angle) bool {
	return extent.Rad()*(1+g.fov.Margin) <= g.fov.Limiting().Rad()
}

// Group partitions the visible objects into mosaic groups. Objects with no
// visibility, and objects that end up alone, are left out; they stay
// individual targets for the scheduler.
func (g *Grouper) Group(items []visibility.ObjectVisibility) []Group {
	// Only visible objects can share a window.
	var idx []int
	for i, it := range items {
		if it.Visible() {
			idx = append(idx, i)
		}
	}

	type pair struct {
		a, b int // indices into items
		span unit.Angle
	}
	var pairs []pair
	for x := 0; x < len(idx); x++ {
		for y := x + 1; y < len(idx); y++ {
			i, j := idx[x], idx[y]
			s := span(items[i].Object, items[j].Object)
			if g.fits(s) {
				pairs = append(pairs, pair{a: i, b: j, span: s})
			}
		}
	}
	sort.Slice(pairs, func(x, y int) bool { return pairs[x].span < pairs[y].span })

	assigned := make(map[int]bool)
	var out []Group
	for _, p := range pairs {
		if assigned[p.a] || assigned[p.b] {
			continue
		}
		shared := visibility.Intersect(items[p.a].Intervals, items[p.b].Intervals)
		if !g.longEnough(shared) {
			continue
		}

		members := []int{p.a, p.b}
		extent := p.span
		assigned[p.a], assigned[p.b] = true, true

		// Grow by whichever unassigned object keeps the group tightest.
		// An object whose shared window with this group is too brief is
		// only excluded here; it stays available to other groups.
		rejected := make(map[int]bool)
		for {
			best, bestExtent, ok := g.tightestAddition(items, idx, assigned, rejected, members, extent)
			if !ok {
				break
			}
			grown := visibility.Intersect(shared, items[best].Intervals)
			if !g.longEnough(grown) {
				rejected[best] = true
				continue
			}
			members = append(members, best)
			extent = bestExtent
			shared = grown
			assigned[best] = true
		}

		grp := Group{Extent: extent, Windows: shared}
		for _, m := range members {
			grp.Objects = append(grp.Objects, items[m].Object)
		}
		g.logger.Debug("mosaic group formed",
			"members", grp.IDs(), "extent_deg", extent.Deg())
		out = append(out, grp)
	}
	return out
}

// tightestAddition finds the unassigned object whose addition keeps the
// group extent smallest while still fitting the FOV.
func (g *Grouper) tightestAddition(items []visibility.ObjectVisibility, idx []int,
	assigned, rejected map[int]bool, members []int, extent unit.Angle) (int, unit.Angle, bool) {

	best := -1
	bestExtent := unit.Angle(math.Inf(1))
	for _, k := range idx {
		if assigned[k] || rejected[k] {
			continue
		}
		grown := extent
		for _, m := range members {
			if s := span(items[k].Object, items[m].Object); s > grown {
				grown = s
			}
		}
		if !g.fits(grown) {
			continue
		}
		if grown < bestExtent {
			best, bestExtent = k, grown
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, bestExtent, true
}

func (g *Grouper) longEnough(ivs []visibility.Interval) bool {
	if g.minShared <= 0 {
		return len(ivs) > 0
	}
	for _, iv := range ivs {
		if iv.Duration() >= g.minShared {
			return true
		}
	}
	return false
}

// PanelCount returns how many FOV panels a single object needs, tiling its
// major and minor axes against the larger and smaller FOV dimensions with
// the margin as inter-panel overlap. Point sources need one panel.
func PanelCount(o catalog.Object, f FOV) int {
	wide, narrow := f.Width, f.Height
	if narrow > wide {
		wide, narrow = narrow, wide
	}
	long, short := o.MajorAxis, o.MinorAxis
	if short > long {
		long, short = short, long
	}
	return tiles(long, wide, f.Margin) * tiles(short, narrow, f.Margin)
}

func tiles(size, panel unit.Angle, margin float64) int {
	if size <= 0 || panel <= 0 {
		return 1
	}
	stride := panel.Rad() * (1 - margin)
	if stride <= 0 {
		return 1
	}
	n := int(math.Ceil(size.Rad() / stride))
	if n < 1 {
		n = 1
	}
	return n
}
