// Package catalog defines the immutable sky-object reference data the
// planner works on, plus a small built-in set of bright objects used for
// validation fixtures and demo runs. Parsing of external catalog files is
// the job of an outside collaborator; this package only receives values.
package catalog

import (
	"errors"
	"fmt"
	"math"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"
)

// Category classifies an object for scoring purposes.
type Category string

const (
	Star      Category = "star"
	Galaxy    Category = "galaxy"
	Nebula    Category = "nebula"
	Cluster   Category = "cluster"
	Planetary Category = "planetary"
)

// Validation errors, reported per object. A bad object is skipped with a
// warning; it never aborts the run.
var (
	ErrNoID     = errors.New("catalog: empty object id")
	ErrBadRA    = errors.New("catalog: right ascension out of [0,24h)")
	ErrBadDec   = errors.New("catalog: declination out of [-90°,+90°]")
	ErrBadMag   = errors.New("catalog: magnitude is not a number")
	ErrBadSize  = errors.New("catalog: negative angular size")
)

// Object is one catalog entry. Coordinates are J2000; proper motion is the
// annual drift applied before precessing to the observation date. Values
// are immutable reference data.
type Object struct {
	ID        string
	RA        unit.RA    // J2000
	Dec       unit.Angle // J2000
	MajorAxis unit.Angle // apparent size along the major axis
	MinorAxis unit.Angle
	Mag       float64
	Category  Category
	PMRA      unit.HourAngle // proper motion in RA per Julian year
	PMDec     unit.Angle     // proper motion in Dec per Julian year
}

// Validate rejects malformed coordinates and magnitudes.
func (o Object) Validate() error {
	switch {
	case o.ID == "":
		return ErrNoID
	case o.RA.Rad() < 0 || o.RA.Rad() >= 2*math.Pi || math.IsNaN(o.RA.Rad()):
		return fmt.Errorf("%w: %s", ErrBadRA, o.ID)
	case math.Abs(o.Dec.Rad()) > math.Pi/2 || math.IsNaN(o.Dec.Rad()):
		return fmt.Errorf("%w: %s", ErrBadDec, o.ID)
	case math.IsNaN(o.Mag):
		return fmt.Errorf("%w: %s", ErrBadMag, o.ID)
	case o.MajorAxis < 0 || o.MinorAxis < 0:
		return fmt.Errorf("%w: %s", ErrBadSize, o.ID)
	}
	return nil
}

// String formats the entry with sexagesimal coordinates.
func (o Object) String() string {
	return fmt.Sprintf("%s %v %v mag %.1f", o.ID, sexa.FmtRA(o.RA), sexa.FmtAngle(o.Dec), o.Mag)
}

// raRate converts a proper motion given in seconds of time per year.
func raRate(s float64) unit.HourAngle {
	return unit.HourAngle(s * math.Pi / 43200)
}

// BrightStars returns the curated set of bright stars whose proper motion
// is large enough to matter at arcminute accuracy over a few decades.
// Positions are J2000, proper motions from the Hipparcos main catalog.
func BrightStars() []Object {
	return []Object{
		{
			ID: "Sirius", Category: Star, Mag: -1.46,
			RA: unit.NewRA(6, 45, 8.9), Dec: unit.NewAngle('-', 16, 42, 58),
			PMRA: raRate(-0.0380), PMDec: unit.AngleFromSec(-1.223),
		},
		{
			ID: "Procyon", Category: Star, Mag: 0.37,
			RA: unit.NewRA(7, 39, 18.1), Dec: unit.NewAngle('+', 5, 13, 30),
			PMRA: raRate(-0.0479), PMDec: unit.AngleFromSec(-1.035),
		},
		{
			ID: "Arcturus", Category: Star, Mag: -0.05,
			RA: unit.NewRA(14, 15, 39.7), Dec: unit.NewAngle('+', 19, 10, 57),
			PMRA: raRate(-0.0771), PMDec: unit.AngleFromSec(-2.000),
		},
		{
			ID: "Rigil Kentaurus", Category: Star, Mag: -0.27,
			RA: unit.NewRA(14, 39, 36.5), Dec: unit.NewAngle('-', 60, 50, 2),
			PMRA: raRate(-0.5035), PMDec: unit.AngleFromSec(0.474),
		},
		{
			ID: "Barnard's Star", Category: Star, Mag: 9.54,
			RA: unit.NewRA(17, 57, 48.5), Dec: unit.NewAngle('+', 4, 41, 36),
			PMRA: raRate(-0.0534), PMDec: unit.AngleFromSec(10.337),
		},
		{
			ID: "61 Cygni A", Category: Star, Mag: 5.21,
			RA: unit.NewRA(21, 6, 53.9), Dec: unit.NewAngle('+', 38, 44, 58),
			PMRA: raRate(0.3552), PMDec: unit.AngleFromSec(3.259),
		},
	}
}

// DeepSky returns a handful of well-known deep-sky objects with their
// apparent sizes, enough to exercise scheduling and mosaic grouping
// without an external catalog.
func DeepSky() []Object {
	arcmin := func(m float64) unit.Angle { return unit.AngleFromMin(m) }
	return []Object{
		{
			ID: "M31", Category: Galaxy, Mag: 3.4,
			RA: unit.NewRA(0, 42, 44.3), Dec: unit.NewAngle('+', 41, 16, 9),
			MajorAxis: arcmin(178), MinorAxis: arcmin(70),
		},
		{
			ID: "M42", Category: Nebula, Mag: 4.0,
			RA: unit.NewRA(5, 35, 17.3), Dec: unit.NewAngle('-', 5, 23, 28),
			MajorAxis: arcmin(85), MinorAxis: arcmin(60),
		},
		{
			ID: "M45", Category: Cluster, Mag: 1.6,
			RA: unit.NewRA(3, 47, 24), Dec: unit.NewAngle('+', 24, 7, 0),
			MajorAxis: arcmin(110), MinorAxis: arcmin(110),
		},
		{
			ID: "M13", Category: Cluster, Mag: 5.8,
			RA: unit.NewRA(16, 41, 41.2), Dec: unit.NewAngle('+', 36, 27, 37),
			MajorAxis: arcmin(20), MinorAxis: arcmin(20),
		},
		{
			ID: "M51", Category: Galaxy, Mag: 8.4,
			RA: unit.NewRA(13, 29, 52.7), Dec: unit.NewAngle('+', 47, 11, 43),
			MajorAxis: arcmin(11.2), MinorAxis: arcmin(6.9),
		},
		{
			ID: "M81", Category: Galaxy, Mag: 6.9,
			RA: unit.NewRA(9, 55, 33.2), Dec: unit.NewAngle('+', 69, 3, 55),
			MajorAxis: arcmin(26.9), MinorAxis: arcmin(14.1),
		},
		{
			ID: "M82", Category: Galaxy, Mag: 8.4,
			RA: unit.NewRA(9, 55, 52.7), Dec: unit.NewAngle('+', 69, 40, 47),
			MajorAxis: arcmin(11.2), MinorAxis: arcmin(4.3),
		},
		{
			ID: "M57", Category: Planetary, Mag: 8.8,
			RA: unit.NewRA(18, 53, 35.1), Dec: unit.NewAngle('+', 33, 1, 45),
			MajorAxis: arcmin(1.4), MinorAxis: arcmin(1.0),
		},
	}
}
