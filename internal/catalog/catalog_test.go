package catalog

import (
	"errors"
	"math"
	"testing"

	"github.com/soniakeys/unit"
)

func TestValidate(t *testing.T) {
	good := Object{ID: "M13", RA: unit.NewRA(16, 41, 41.2), Dec: unit.NewAngle('+', 36, 27, 37), Mag: 5.8}

	tests := []struct {
		name    string
		mutate  func(Object) Object
		wantErr error
	}{
		{"valid", func(o Object) Object { return o }, nil},
		{"empty id", func(o Object) Object { o.ID = ""; return o }, ErrNoID},
		{"ra too large", func(o Object) Object { o.RA = unit.RA(2 * math.Pi); return o }, ErrBadRA},
		{"ra negative", func(o Object) Object { o.RA = unit.RA(-0.1); return o }, ErrBadRA},
		{"ra NaN", func(o Object) Object { o.RA = unit.RA(math.NaN()); return o }, ErrBadRA},
		{"dec beyond pole", func(o Object) Object { o.Dec = unit.AngleFromDeg(91); return o }, ErrBadDec},
		{"mag NaN", func(o Object) Object { o.Mag = math.NaN(); return o }, ErrBadMag},
		{"negative size", func(o Object) Object { o.MajorAxis = unit.AngleFromDeg(-1); return o }, ErrBadSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(good).Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestBuiltInSetsValid guards the curated tables against typos.
func TestBuiltInSetsValid(t *testing.T) {
	for _, o := range append(BrightStars(), DeepSky()...) {
		if err := o.Validate(); err != nil {
			t.Errorf("built-in object %s invalid: %v", o.ID, err)
		}
	}
}

// TestBarnardProperMotion pins the fastest star in the table: ~10.3″/yr in
// declination, or about one lunar diameter in two centuries.
func TestBarnardProperMotion(t *testing.T) {
	for _, o := range BrightStars() {
		if o.ID != "Barnard's Star" {
			continue
		}
		perCentury := o.PMDec.Deg() * 100
		if perCentury < 0.25 || perCentury > 0.32 {
			t.Errorf("Barnard's Star PMDec = %.4f°/century, want ≈0.287", perCentury)
		}
		return
	}
	t.Fatal("Barnard's Star missing from bright star table")
}
