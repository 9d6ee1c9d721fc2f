// Package astrotime converts between civil time, UTC, Julian Date, and
// local sidereal time.
//
// All conversions are pure functions of the input instant. Civil times are
// handled through the IANA zone attached to the time.Time value, so the UTC
// offset applied is always the one in force at that instant (correct across
// daylight-saving transitions).
package astrotime

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/unit"
)

// CivilLayout is the layout accepted by ParseCivil.
const CivilLayout = "2006-01-02 15:04"

// ErrNoZone is returned when a civil conversion is requested without a zone.
var ErrNoZone = errors.New("astrotime: nil time zone")

// JulianDate converts an instant to a Julian Date in fractional days.
// The instant is reduced to UTC first, regardless of its attached zone.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// FromJulianDate converts a Julian Date back to a UTC instant.
func FromJulianDate(jd float64) time.Time {
	return julian.JDToTime(jd).UTC()
}

// ToUTC expresses a civil instant in UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// ToCivil expresses an instant in the given civil zone.
func ToCivil(t time.Time, zone *time.Location) (time.Time, error) {
	if zone == nil {
		return time.Time{}, ErrNoZone
	}
	return t.In(zone), nil
}

// ParseCivil parses a wall-clock string ("2006-01-02 15:04") in the given
// zone. It is the only fallible entry point of the package.
func ParseCivil(value string, zone *time.Location) (time.Time, error) {
	if zone == nil {
		return time.Time{}, ErrNoZone
	}
	t, err := time.ParseInLocation(CivilLayout, value, zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("astrotime: parse %q: %w", value, err)
	}
	return t, nil
}

// GreenwichMean returns Greenwich mean sidereal time at t as an angle in
// [0,2π).
func GreenwichMean(t time.Time) unit.Angle {
	return NormAngle(unit.Angle(sidereal.Mean(JulianDate(t)).Rad()))
}

// LocalSidereal returns local mean sidereal time for an observer at east
// longitude eastLon, normalized to [0,2π).
func LocalSidereal(t time.Time, eastLon unit.Angle) unit.Angle {
	return NormAngle(GreenwichMean(t) + eastLon)
}

// LocalApparent returns local apparent sidereal time, which folds in the
// nutation correction. Used where arcminute-level right ascension matters.
func LocalApparent(t time.Time, eastLon unit.Angle) unit.Angle {
	lst := unit.Angle(sidereal.Apparent(JulianDate(t)).Rad()) + eastLon
	return NormAngle(lst)
}

// NormAngle normalizes an angle to [0,2π).
func NormAngle(a unit.Angle) unit.Angle {
	return unit.Angle(unit.PMod(a.Rad(), 2*math.Pi))
}

// NormRA normalizes a right ascension to [0,2π).
func NormRA(ra unit.RA) unit.RA {
	return unit.RA(unit.PMod(ra.Rad(), 2*math.Pi))
}

// NormHour normalizes an hour angle to (−π,π].
func NormHour(h unit.HourAngle) unit.HourAngle {
	r := unit.PMod(h.Rad(), 2*math.Pi)
	if r > math.Pi {
		r -= 2 * math.Pi
	}
	return unit.HourAngle(r)
}
