// Package site describes the observing site: location, time zone, and the
// equipment-driven pointing constraints. An Observer is validated once,
// before any computation starts, and then injected read-only into every
// component — there is no process-wide current-site state.
package site

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/unit"
)

// Configuration errors are fatal: they are surfaced before any computation
// begins.
var (
	ErrNoZone       = errors.New("site: time zone is required")
	ErrBadLatitude  = errors.New("site: latitude out of [-90°,+90°]")
	ErrBadLongitude = errors.New("site: longitude out of [-180°,+180°]")
	ErrAltBounds    = errors.New("site: altitude bounds inverted or out of range")
	ErrAzBounds     = errors.New("site: azimuth bounds out of [0°,360°)")
	ErrMinDuration  = errors.New("site: negative minimum visibility duration")
)

// Observer is the immutable per-run observing configuration.
type Observer struct {
	Name      string
	Latitude  unit.Angle
	Longitude unit.Angle // east positive
	Elevation float64    // meters above sea level
	Zone      *time.Location

	// Atmosphere for refraction scaling. Zero values select the standard
	// atmosphere adjusted for Elevation.
	Pressure    float64 // millibars
	Temperature float64 // °C; only honored when Pressure is set

	// Pointing constraints. MinAz > MaxAz means the window wraps through
	// north (e.g. 300°..60°).
	MinAlt, MaxAlt unit.Angle
	MinAz, MaxAz   unit.Angle

	// MinDuration is the shortest visibility window worth scheduling.
	MinDuration time.Duration
}

// Validate checks the required fields. Any error here is fatal for the run.
func (o Observer) Validate() error {
	switch {
	case o.Zone == nil:
		return ErrNoZone
	case math.Abs(o.Latitude.Rad()) > math.Pi/2 || math.IsNaN(o.Latitude.Rad()):
		return fmt.Errorf("%w: %.4f°", ErrBadLatitude, o.Latitude.Deg())
	case math.Abs(o.Longitude.Rad()) > math.Pi || math.IsNaN(o.Longitude.Rad()):
		return fmt.Errorf("%w: %.4f°", ErrBadLongitude, o.Longitude.Deg())
	case o.MinAlt.Rad() < -math.Pi/2 || o.MaxAlt.Rad() > math.Pi/2 || o.MinAlt > o.MaxAlt:
		return fmt.Errorf("%w: [%.1f°,%.1f°]", ErrAltBounds, o.MinAlt.Deg(), o.MaxAlt.Deg())
	case o.MinAz.Rad() < 0 || o.MinAz.Rad() >= 2*math.Pi || o.MaxAz.Rad() < 0 || o.MaxAz.Rad() >= 2*math.Pi:
		return fmt.Errorf("%w: [%.1f°,%.1f°]", ErrAzBounds, o.MinAz.Deg(), o.MaxAz.Deg())
	case o.MinDuration < 0:
		return ErrMinDuration
	}
	return nil
}

// AzWraps reports whether the azimuth window crosses north.
func (o Observer) AzWraps() bool {
	return o.MinAz > o.MaxAz
}

// InAltWindow reports whether alt satisfies the altitude constraint.
func (o Observer) InAltWindow(alt unit.Angle) bool {
	return alt >= o.MinAlt && alt <= o.MaxAlt
}

// InAzWindow reports whether az (normalized [0,2π)) satisfies the azimuth
// constraint, honoring windows that wrap through 360°.
func (o Observer) InAzWindow(az unit.Angle) bool {
	if o.MinAz == 0 && o.MaxAz == 0 {
		return true // unconstrained
	}
	if o.AzWraps() {
		return az >= o.MinAz || az <= o.MaxAz
	}
	return az >= o.MinAz && az <= o.MaxAz
}

// Civil expresses an instant in the observer's zone.
func (o Observer) Civil(t time.Time) time.Time {
	return t.In(o.Zone)
}

// PressureMbar returns the pressure to use for refraction: the configured
// value, or the standard atmosphere scaled for site elevation.
func (o Observer) PressureMbar() float64 {
	if o.Pressure > 0 {
		return o.Pressure
	}
	// Barometric formula with an 8434 m scale height.
	return 1013.25 * math.Exp(-o.Elevation/8434)
}

// TemperatureC returns the air temperature to use for refraction.
func (o Observer) TemperatureC() float64 {
	if o.Pressure > 0 {
		return o.Temperature
	}
	return 10 // standard temperate-night default
}
