// Package transform converts apparent equatorial coordinates to the
// observer's horizontal frame (altitude/azimuth) with atmospheric
// refraction.
//
// Azimuth follows the navigation convention: 0° = North, increasing
// eastward, normalized to [0,360).
package transform

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/refraction"
	"github.com/soniakeys/unit"

	"github.com/sky/skyplan/internal/astrotime"
	"github.com/sky/skyplan/internal/ephemeris"
	"github.com/sky/skyplan/internal/site"
)

// Horizontal is a position in the observer's sky.
type Horizontal struct {
	Alt unit.Angle // altitude above the horizon
	Az  unit.Angle // 0 = North, eastward, [0,360)
}

const (
	// minCosAlt floors the altitude cosine wherever it divides, to keep
	// positions within an arcsecond of the zenith finite.
	minCosAlt = 1e-9

	standardPressure = 1013.25 // millibars
)

// refractionFloor: below −1° true altitude the empirical correction is
// extrapolating outside its fit range, so none is applied.
var refractionFloor = unit.AngleFromDeg(-1)

// Atmosphere carries the refraction scaling inputs.
type Atmosphere struct {
	Pressure    float64 // millibars
	Temperature float64 // °C
}

// StandardAtmosphere returns sea-level standard conditions.
func StandardAtmosphere() Atmosphere {
	return Atmosphere{Pressure: standardPressure, Temperature: 10}
}

// SiteAtmosphere derives the atmosphere from the observer configuration.
func SiteAtmosphere(o site.Observer) Atmosphere {
	return Atmosphere{Pressure: o.PressureMbar(), Temperature: o.TemperatureC()}
}

// EqToHz converts an apparent equatorial position to geometric (unrefracted)
// horizontal coordinates for an observer at latitude lat with local sidereal
// time lst.
//
// The azimuth is solved with the two-argument arctangent. The single-
// argument arccosine form discards the east/west sign of the hour angle and
// produces systematic errors of tens of degrees; the atan2 form is a hard
// correctness requirement here.
func EqToHz(pos ephemeris.Sample, lat, lst unit.Angle) Horizontal {
	H := HourAngle(lst, pos.RA)
	sH, cH := math.Sincos(H.Rad())
	sφ, cφ := math.Sincos(lat.Rad())
	sδ, cδ := math.Sincos(pos.Dec.Rad())

	sinAlt := sφ*sδ + cφ*cδ*cH
	// Clamp against rounding before Asin; keeps NaN out of everything
	// downstream.
	if sinAlt > 1 {
		sinAlt = 1
	} else if sinAlt < -1 {
		sinAlt = -1
	}
	alt := unit.Angle(math.Asin(sinAlt))

	y := -cδ * sH
	x := sδ*cφ - cδ*cH*sφ
	var az unit.Angle
	if math.Abs(y) < minCosAlt && math.Abs(x) < minCosAlt {
		// Within an arcsecond of the zenith or nadir the azimuth is
		// undefined; pick north so results stay deterministic.
		az = 0
	} else {
		az = astrotime.NormAngle(unit.Angle(math.Atan2(y, x)))
	}

	return Horizontal{Alt: alt, Az: az}
}

// HourAngle returns LST − RA normalized to (−π,π]. Negative values are east
// of the meridian.
func HourAngle(lst unit.Angle, ra unit.RA) unit.HourAngle {
	return astrotime.NormHour(unit.HourAngle(lst.Rad() - ra.Rad()))
}

// Refract returns the position with atmospheric refraction applied to the
// altitude. The azimuth is unaffected.
func (h Horizontal) Refract(atm Atmosphere) Horizontal {
	h.Alt += Refraction(h.Alt, atm)
	return h
}

// Refraction returns the correction to add to a true altitude. It uses
// Saemundsson's empirical formula, which grows sharply toward the horizon,
// scaled for deviation from standard pressure and temperature. Below the
// floor of −1° no correction is applied.
func Refraction(trueAlt unit.Angle, atm Atmosphere) unit.Angle {
	if trueAlt < refractionFloor {
		return 0
	}
	r := refraction.Saemundsson(trueAlt)

	p := atm.Pressure
	if p <= 0 {
		p = standardPressure
	}
	scale := (p / standardPressure) * (283 / (273 + atm.Temperature))
	return unit.Angle(r.Rad() * scale)
}

// Observe is the full pipeline step for one object at one instant:
// equatorial to horizontal in the observer's sky, refraction included.
func Observe(pos ephemeris.Sample, o site.Observer, t time.Time) Horizontal {
	lst := astrotime.LocalSidereal(t, o.Longitude)
	return EqToHz(pos, o.Latitude, lst).Refract(SiteAtmosphere(o))
}

// ObserveGeometric is Observe without refraction, used where the geometric
// altitude is the defined quantity (twilight is −18° geometric solar
// altitude).
func ObserveGeometric(pos ephemeris.Sample, o site.Observer, t time.Time) Horizontal {
	lst := astrotime.LocalSidereal(t, o.Longitude)
	return EqToHz(pos, o.Latitude, lst)
}
