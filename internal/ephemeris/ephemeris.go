// Package ephemeris computes apparent equatorial coordinates of the Sun,
// the Moon, and fixed catalog objects at a target instant.
//
// Solar and lunar positions come from periodic-term series that are already
// referenced to the date of observation. Fixed objects start from their
// J2000 catalog place: proper motion drifts the coordinates linearly, the
// precession rotation carries them to the observation epoch, and the
// short-period nutation terms are added last. All angles are radians
// internally (the unit types guarantee that) and every combination is
// normalized back into its valid domain.
package ephemeris

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/angle"
	"github.com/soniakeys/meeus/v3/apparent"
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/meeus/v3/solar"
	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/sky/skyplan/internal/astrotime"
	"github.com/sky/skyplan/internal/catalog"
	"github.com/sky/skyplan/internal/metrics"
)

// Sample is an apparent equatorial position at some instant.
type Sample struct {
	RA  unit.RA
	Dec unit.Angle
}

// String formats the sample in sexagesimal.
func (s Sample) String() string {
	return fmt.Sprintf("%v %v", sexa.FmtRA(s.RA), sexa.FmtAngle(s.Dec))
}

// MoonState is the Moon's apparent position plus the quantities the
// interference model needs.
type MoonState struct {
	RA          unit.RA
	Dec         unit.Angle
	Illuminated float64    // fraction of the disk lit, 0..1
	Radius      unit.Angle // interference radius, scaled by illumination
}

// Config tunes the engine. Zero values select the defaults.
type Config struct {
	// CacheQuantum is the instant-quantization step of the memo cache.
	// Default one minute; a coarser quantum trades accuracy for hits.
	CacheQuantum time.Duration

	// MoonMinRadius and MoonMaxRadius bound the interference radius at
	// new and full moon. Defaults 0° and 30°.
	MoonMinRadius unit.Angle
	MoonMaxRadius unit.Angle
}

const defaultMoonMaxRadius = 30 // degrees

// Engine computes apparent positions for one run. It is safe for
// concurrent use; the only mutable state is the read-through cache.
type Engine struct {
	cfg    Config
	cache  *Cache
	logger *slog.Logger
}

// New creates an Engine with a fresh per-run cache.
func New(cfg Config, logger *slog.Logger) *Engine {
	if cfg.CacheQuantum <= 0 {
		cfg.CacheQuantum = time.Minute
	}
	if cfg.MoonMaxRadius == 0 {
		cfg.MoonMaxRadius = unit.AngleFromDeg(defaultMoonMaxRadius)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		cache:  newCache(cfg.CacheQuantum),
		logger: logger,
	}
}

// CacheStats reports the memo cache counters for this run.
func (e *Engine) CacheStats() CacheStats {
	return e.cache.stats()
}

// Sun returns the apparent equatorial coordinates of the Sun at t. The
// solar series is evaluated in Julian centuries since J2000 and is already
// referenced to the observation date, so no precession step follows.
func (e *Engine) Sun(t time.Time) Sample {
	if s, ok := e.cache.get(sunID, t); ok {
		return s
	}
	α, δ := solar.ApparentEquatorial(astrotime.JulianDate(t))
	s := Sample{RA: α, Dec: δ}
	e.cache.put(sunID, t, s)
	metrics.IncEphemerisSample("sun")
	return s
}

// Moon returns the Moon's apparent position, illuminated fraction, and the
// phase-scaled interference radius at t.
func (e *Engine) Moon(t time.Time) MoonState {
	if m, ok := e.cache.getMoon(t); ok {
		return m
	}
	jd := astrotime.JulianDate(t)

	λ, β, _ := moonposition.Position(jd)
	ecl := &coord.Ecliptic{Lon: λ, Lat: β}
	ε := coord.NewObliquity(nutation.MeanObliquity(jd))
	var eq coord.Equatorial
	eq.EclToEq(ecl, ε)

	// The phase angle is the supplement of the Sun–Moon elongation to
	// well under a degree (the Moon is ~400× closer than the Sun), which
	// is ample for an interference radius.
	sun := e.Sun(t)
	ψ := angle.Sep(unit.Angle(eq.RA), eq.Dec, unit.Angle(sun.RA), sun.Dec)
	frac := base.Illuminated(unit.Angle(math.Pi) - ψ)

	m := MoonState{
		RA:          astrotime.NormRA(eq.RA),
		Dec:         clampDec(eq.Dec),
		Illuminated: frac,
		Radius:      e.interferenceRadius(frac),
	}
	e.cache.putMoon(t, m)
	metrics.IncEphemerisSample("moon")
	return m
}

// Apparent returns the apparent coordinates of a fixed catalog object at t.
// Malformed catalog coordinates are reported per object; the caller is
// expected to log and skip, not abort.
func (e *Engine) Apparent(o catalog.Object, t time.Time) (Sample, error) {
	if err := o.Validate(); err != nil {
		return Sample{}, err
	}
	if s, ok := e.cache.get(o.ID, t); ok {
		return s, nil
	}

	jd := astrotime.JulianDate(t)
	epochTo := base.JDEToJulianYear(jd)

	// Proper-motion drift and the secular precession rotation, J2000 to
	// the observation epoch.
	from := &coord.Equatorial{RA: o.RA, Dec: o.Dec}
	var to coord.Equatorial
	precess.Position(from, &to, 2000.0, epochTo, o.PMRA, o.PMDec)

	// Short-period nutation terms, driven by the lunar-node and solar
	// longitude arguments.
	Δα, Δδ := apparent.Nutation(to.RA, to.Dec, jd)

	s := Sample{
		RA:  astrotime.NormRA(to.RA + unit.RA(Δα.Rad())),
		Dec: clampDec(to.Dec + Δδ),
	}
	e.cache.put(o.ID, t, s)
	metrics.IncEphemerisSample("fixed")
	return s, nil
}

// interferenceRadius interpolates between the new-moon and full-moon radii.
func (e *Engine) interferenceRadius(illuminated float64) unit.Angle {
	if illuminated < 0 {
		illuminated = 0
	} else if illuminated > 1 {
		illuminated = 1
	}
	span := e.cfg.MoonMaxRadius - e.cfg.MoonMinRadius
	return e.cfg.MoonMinRadius + unit.Angle(span.Rad()*illuminated)
}

// clampDec pins a declination into [−π/2,π/2] after additive corrections.
// The nutation terms are arcseconds, so this only trips within an
// arcsecond of a celestial pole.
func clampDec(δ unit.Angle) unit.Angle {
	if δ.Rad() > math.Pi/2 {
		return unit.Angle(math.Pi / 2)
	}
	if δ.Rad() < -math.Pi/2 {
		return unit.Angle(-math.Pi / 2)
	}
	return δ
}

// Separation returns the angular separation of two apparent positions,
// by the spherical law of cosines on equatorial coordinates.
func Separation(a, b Sample) unit.Angle {
	return angle.Sep(unit.Angle(a.RA), a.Dec, unit.Angle(b.RA), b.Dec)
}
