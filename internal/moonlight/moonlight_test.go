package moonlight

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/soniakeys/unit"

	"github.com/sky/skyplan/internal/ephemeris"
	"github.com/sky/skyplan/internal/visibility"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// moonAt pins the Moon to the origin with a fixed phase.
func moonAt(illuminated float64, radiusDeg float64) StateFunc {
	return func(time.Time) ephemeris.MoonState {
		return ephemeris.MoonState{
			RA:          0,
			Dec:         0,
			Illuminated: illuminated,
			Radius:      unit.AngleFromDeg(radiusDeg),
		}
	}
}

func fixedObject(raDeg float64) PositionFunc {
	return func(time.Time) (ephemeris.Sample, error) {
		return ephemeris.Sample{RA: unit.RA(unit.AngleFromDeg(raDeg).Rad()), Dec: 0}, nil
	}
}

func window(hours int) visibility.Interval {
	start := time.Date(2024, 8, 15, 21, 0, 0, 0, time.UTC)
	return visibility.Interval{Start: start, End: start.Add(time.Duration(hours) * time.Hour)}
}

// TestAnnotateFullMoonNearby: an object 10° from a full moon with a 30°
// radius is affected for the whole window.
func TestAnnotateFullMoonNearby(t *testing.T) {
	m := New(moonAt(1, 30), 0, discard())

	spans, err := m.Annotate(fixedObject(10), window(4))
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 1 || !spans[0].Affected {
		t.Fatalf("got %+v, want one affected span", spans)
	}
	if diff := math.Abs(spans[0].MinSeparation.Deg() - 10); diff > 1e-6 {
		t.Errorf("min separation = %.6f°, want 10°", spans[0].MinSeparation.Deg())
	}
	if f := AffectedFraction(spans); f != 1 {
		t.Errorf("affected fraction = %v, want 1", f)
	}
}

// TestAnnotateNewMoon: a zero interference radius marks nothing, however
// close the object sits.
func TestAnnotateNewMoon(t *testing.T) {
	m := New(moonAt(0, 0), 0, discard())

	spans, err := m.Annotate(fixedObject(2), window(4))
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 1 || spans[0].Affected {
		t.Fatalf("got %+v, want one unaffected span", spans)
	}
	if f := AffectedFraction(spans); f != 0 {
		t.Errorf("affected fraction = %v, want 0", f)
	}
}

// TestAnnotateTransition: an object that leaves the interference circle
// mid-window splits into an affected span followed by a clean one, and the
// spans tile the window without gaps.
func TestAnnotateTransition(t *testing.T) {
	iv := window(4)
	mid := iv.Start.Add(2 * time.Hour)
	moving := func(at time.Time) (ephemeris.Sample, error) {
		if at.Before(mid) {
			return ephemeris.Sample{RA: unit.RA(unit.AngleFromDeg(10).Rad()), Dec: 0}, nil
		}
		return ephemeris.Sample{RA: unit.RA(unit.AngleFromDeg(80).Rad()), Dec: 0}, nil
	}

	m := New(moonAt(1, 30), 5*time.Minute, discard())
	spans, err := m.Annotate(moving, iv)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %+v", len(spans), spans)
	}
	if !spans[0].Affected || spans[1].Affected {
		t.Errorf("want affected then clean, got %+v", spans)
	}
	if !spans[0].Start.Equal(iv.Start) || !spans[1].End.Equal(iv.End) {
		t.Errorf("spans do not cover the window: %+v", spans)
	}
	if !spans[0].End.Equal(spans[1].Start) {
		t.Errorf("gap between spans: %v / %v", spans[0].End, spans[1].Start)
	}
	if diff := math.Abs(spans[0].End.Sub(iv.Start).Hours() - 2); diff > 0.1 {
		t.Errorf("transition at %v, want near the 2h mark", spans[0].End)
	}

	if f := AffectedFraction(spans); math.Abs(f-0.5) > 0.05 {
		t.Errorf("affected fraction = %.3f, want ≈0.5", f)
	}
}

// TestAnnotateFullBrighterThanNew: the same geometry must be worse under a
// full moon than under a new one. This is the core property the scheduler
// relies on.
func TestAnnotateFullBrighterThanNew(t *testing.T) {
	obj := fixedObject(25)
	iv := window(6)

	full, err := New(moonAt(1, 30), 0, discard()).Annotate(obj, iv)
	if err != nil {
		t.Fatal(err)
	}
	dark, err := New(moonAt(0, 0), 0, discard()).Annotate(obj, iv)
	if err != nil {
		t.Fatal(err)
	}
	if AffectedFraction(full) <= AffectedFraction(dark) {
		t.Errorf("full moon fraction %.3f should exceed new moon %.3f",
			AffectedFraction(full), AffectedFraction(dark))
	}
}

// TestAnnotateEngineMoon: the model wired to the real ephemeris must run
// end to end with a catalog-style position source.
func TestAnnotateEngineMoon(t *testing.T) {
	eng := ephemeris.New(ephemeris.Config{}, discard())
	m := New(eng.Moon, 0, discard())

	// 1992-04-12: a waxing gibbous moon (k≈0.68) near α=134.7°, δ=13.8°.
	start := time.Date(1992, 4, 12, 0, 0, 0, 0, time.UTC)
	iv := visibility.Interval{Start: start, End: start.Add(3 * time.Hour)}

	near := fixedObject(140) // ~15° from the moon, inside its ~20° radius
	spans, err := m.Annotate(near, iv)
	if err != nil {
		t.Fatal(err)
	}
	if AffectedFraction(spans) != 1 {
		t.Errorf("an object 15° from a gibbous moon should be fully affected, got %+v", spans)
	}

	far := fixedObject(320) // opposite side of the sky
	spans, err = m.Annotate(far, iv)
	if err != nil {
		t.Fatal(err)
	}
	if AffectedFraction(spans) != 0 {
		t.Errorf("an object 170° from the moon should be clean, got %+v", spans)
	}
}
