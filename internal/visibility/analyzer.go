package visibility

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/soniakeys/unit"

	"github.com/sky/skyplan/internal/catalog"
	"github.com/sky/skyplan/internal/ephemeris"
	"github.com/sky/skyplan/internal/metrics"
	"github.com/sky/skyplan/internal/site"
	"github.com/sky/skyplan/internal/transform"
)

const (
	// twilightAlt is the astronomical-twilight threshold on the Sun's
	// geometric altitude.
	twilightAlt = -18 // degrees

	// coarseTwilightStep is the scan step used to bracket the −18°
	// crossings before bisection.
	coarseTwilightStep = 10 * time.Minute

	// refineTo is the bisection target for window boundaries.
	refineTo = time.Second
)

// Config tunes the analyzer. Zero values select the defaults.
type Config struct {
	Step    time.Duration // constraint sampling step, default 1 minute
	Workers int           // worker pool size, default NumCPU
}

// Analyzer finds the windows in which objects satisfy the observer's
// altitude and azimuth constraints during the astronomical night.
//
// The per-object computation is independent of every other object, so All
// fans the catalog out over a bounded worker pool against the shared
// read-only Observer.
type Analyzer struct {
	obs    site.Observer
	eng    *ephemeris.Engine
	atm    transform.Atmosphere
	logger *slog.Logger
	step   time.Duration
	pool   int
}

// NewAnalyzer builds an analyzer for one observer and one engine.
func NewAnalyzer(obs site.Observer, eng *ephemeris.Engine, cfg Config, logger *slog.Logger) *Analyzer {
	if cfg.Step <= 0 {
		cfg.Step = time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	metrics.SetVisibilityWorkers(cfg.Workers)
	return &Analyzer{
		obs:    obs,
		eng:    eng,
		atm:    transform.SiteAtmosphere(obs),
		logger: logger,
		step:   cfg.Step,
		pool:   cfg.Workers,
	}
}

// NightWindow locates the astronomical night that contains the local
// midnight following the given date: it scans from local noon to the next
// local noon for the Sun's −18° crossings and refines both by bisection.
// ok is false when the Sun never reaches −18° (no astronomical night).
// Darkness at a scan boundary is clipped there, never extrapolated.
func (a *Analyzer) NightWindow(date time.Time) (night Night, ok bool) {
	local := date.In(a.obs.Zone)
	noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, a.obs.Zone)
	scanEnd := noon.Add(24 * time.Hour)

	dark := func(t time.Time) bool {
		hz := transform.ObserveGeometric(a.eng.Sun(t), a.obs, t)
		return hz.Alt.Deg() < twilightAlt
	}

	var dusk, dawn time.Time
	wasDark := dark(noon)
	if wasDark {
		dusk = noon // polar winter: clip to the scan start
	}
	for t := noon.Add(coarseTwilightStep); !t.After(scanEnd); t = t.Add(coarseTwilightStep) {
		isDark := dark(t)
		switch {
		case isDark && !wasDark:
			dusk = a.refine(t.Add(-coarseTwilightStep), t, dark)
		case !isDark && wasDark && !dusk.IsZero():
			dawn = a.refine2(t.Add(-coarseTwilightStep), t, dark)
		}
		wasDark = isDark
		if !dawn.IsZero() {
			break
		}
	}

	if dusk.IsZero() {
		return Night{}, false
	}
	if dawn.IsZero() {
		dawn = scanEnd // still dark at scan end: clip
	}
	return Night{Dusk: dusk.UTC(), Dawn: dawn.UTC()}, true
}

// Intervals returns the object's ordered, disjoint visibility windows
// within the night, clipped to twilight. An object that never satisfies
// the constraints yields an empty list and no error; only malformed
// catalog coordinates are an error.
func (a *Analyzer) Intervals(obj catalog.Object, night Night) ([]Interval, error) {
	if night.IsZero() {
		return nil, nil
	}
	// Validate once up front so the sampling loop cannot fail.
	if _, err := a.eng.Apparent(obj, night.Dusk); err != nil {
		return nil, err
	}

	visible := func(t time.Time) bool {
		pos, err := a.eng.Apparent(obj, t)
		if err != nil {
			return false
		}
		hz := transform.Observe(pos, a.obs, t)
		return a.obs.InAltWindow(hz.Alt) && a.obs.InAzWindow(hz.Az)
	}

	var (
		out   []Interval
		start time.Time
		wasIn bool
		prev  = night.Dusk
	)
	for t := night.Dusk; !t.After(night.Dawn); t = t.Add(a.step) {
		in := visible(t)
		switch {
		case in && !wasIn:
			if t.Equal(night.Dusk) {
				start = night.Dusk // clipped to twilight
			} else {
				start = a.refine(prev, t, visible)
			}
		case !in && wasIn:
			if end := a.refine2(prev, t, visible); end.After(start) {
				out = append(out, Interval{Start: start, End: end})
			}
		}
		wasIn = in
		prev = t
	}
	if wasIn {
		// Still visible at the last sample: close at dawn, clipped.
		end := night.Dawn
		if !visible(end) {
			end = a.refine2(prev, end, visible)
		}
		if end.After(start) {
			out = append(out, Interval{Start: start, End: end})
		}
	}

	metrics.AddVisibilityWindows(len(out))
	return out, nil
}

// All computes visibility for every object over a bounded worker pool.
// Objects with malformed coordinates are logged and skipped; their entry
// carries an empty interval list.
func (a *Analyzer) All(ctx context.Context, objects []catalog.Object, night Night) []ObjectVisibility {
	out := make([]ObjectVisibility, len(objects))
	sem := make(chan struct{}, a.pool)
	var wg sync.WaitGroup

	for i, obj := range objects {
		wg.Add(1)
		go func(idx int, o catalog.Object) {
			defer wg.Done()
			out[idx] = ObjectVisibility{Object: o}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			ivs, err := a.Intervals(o, night)
			if err != nil {
				a.logger.Warn("object skipped", "id", o.ID, "error", err)
				return
			}
			out[idx].Intervals = ivs
		}(i, obj)
	}

	wg.Wait()
	return out
}

// Peak returns the highest refracted altitude the object reaches within
// the interval, and when. Sampled at the analyzer step; the curve is flat
// near culmination so the step resolution is plenty.
func (a *Analyzer) Peak(obj catalog.Object, iv Interval) (unit.Angle, time.Time, error) {
	best := unit.AngleFromDeg(-90)
	bestAt := iv.Start
	for t := iv.Start; !t.After(iv.End); t = t.Add(a.step) {
		pos, err := a.eng.Apparent(obj, t)
		if err != nil {
			return 0, time.Time{}, err
		}
		hz := transform.Observe(pos, a.obs, t)
		if hz.Alt > best {
			best = hz.Alt
			bestAt = t
		}
	}
	return best, bestAt, nil
}

// refine bisects a false→true transition of pred in (lo,hi] down to one
// second and returns the earliest true instant found.
func (a *Analyzer) refine(lo, hi time.Time, pred func(time.Time) bool) time.Time {
	for hi.Sub(lo) > refineTo {
		mid := lo.Add(hi.Sub(lo) / 2)
		if pred(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}

// refine2 bisects a true→false transition and returns the latest true
// instant found.
func (a *Analyzer) refine2(lo, hi time.Time, pred func(time.Time) bool) time.Time {
	for hi.Sub(lo) > refineTo {
		mid := lo.Add(hi.Sub(lo) / 2)
		if pred(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}
