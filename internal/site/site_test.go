package site

import (
	"errors"
	"testing"
	"time"

	"github.com/soniakeys/unit"
)

func validObserver() Observer {
	return Observer{
		Name:        "Milan",
		Latitude:    unit.AngleFromDeg(45.52),
		Longitude:   unit.AngleFromDeg(9.22),
		Elevation:   120,
		Zone:        time.UTC,
		MinAlt:      unit.AngleFromDeg(15),
		MaxAlt:      unit.AngleFromDeg(85),
		MinDuration: 30 * time.Minute,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(Observer) Observer
		wantErr error
	}{
		{"valid", func(o Observer) Observer { return o }, nil},
		{"nil zone", func(o Observer) Observer { o.Zone = nil; return o }, ErrNoZone},
		{"latitude beyond pole", func(o Observer) Observer { o.Latitude = unit.AngleFromDeg(95); return o }, ErrBadLatitude},
		{"longitude out of range", func(o Observer) Observer { o.Longitude = unit.AngleFromDeg(200); return o }, ErrBadLongitude},
		{"alt bounds inverted", func(o Observer) Observer { o.MinAlt, o.MaxAlt = o.MaxAlt, o.MinAlt; return o }, ErrAltBounds},
		{"az out of range", func(o Observer) Observer { o.MaxAz = unit.AngleFromDeg(400); return o }, ErrAzBounds},
		{"negative min duration", func(o Observer) Observer { o.MinDuration = -time.Minute; return o }, ErrMinDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(validObserver()).Validate()
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

func TestInAzWindow(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64 // degrees
		az       float64
		want     bool
	}{
		{"plain window inside", 90, 270, 180, true},
		{"plain window outside", 90, 270, 10, false},
		{"wrapping window north side", 300, 60, 10, true},
		{"wrapping window east edge", 300, 60, 60, true},
		{"wrapping window south", 300, 60, 180, false},
		{"unconstrained", 0, 0, 123, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validObserver()
			o.MinAz = unit.AngleFromDeg(tt.min)
			o.MaxAz = unit.AngleFromDeg(tt.max)
			if got := o.InAzWindow(unit.AngleFromDeg(tt.az)); got != tt.want {
				t.Errorf("InAzWindow(%v°) with [%v°,%v°] = %v, want %v", tt.az, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestPressureFallsWithElevation(t *testing.T) {
	low := validObserver()
	high := validObserver()
	high.Elevation = 3000
	if low.PressureMbar() <= high.PressureMbar() {
		t.Errorf("pressure at 120 m (%.1f) should exceed pressure at 3000 m (%.1f)",
			low.PressureMbar(), high.PressureMbar())
	}
}
