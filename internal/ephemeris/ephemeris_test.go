package ephemeris

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/soniakeys/unit"

	"github.com/sky/skyplan/internal/catalog"
)

func testEngine() *Engine {
	return New(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// TestSun checks the apparent solar position for the Milan reference night
// (2024-08-15 20:00 UTC): the Sun sits near λ≈143°, i.e. RA≈145.3°,
// Dec≈+13.8°.
func TestSun(t *testing.T) {
	s := testEngine().Sun(time.Date(2024, 8, 15, 20, 0, 0, 0, time.UTC))

	if diff := math.Abs(s.RA.Deg() - 145.3); diff > 0.5 {
		t.Errorf("Sun RA = %.3f°, want 145.3° ±0.5", s.RA.Deg())
	}
	if diff := math.Abs(s.Dec.Deg() - 13.8); diff > 0.5 {
		t.Errorf("Sun Dec = %.3f°, want 13.8° ±0.5", s.Dec.Deg())
	}
}

// TestMoon checks the lunar position and illuminated fraction against the
// Meeus chapter 47/48 reference date (1992 April 12.0 TT): apparent
// α=134.69°, δ=13.77°, k=0.68.
func TestMoon(t *testing.T) {
	m := testEngine().Moon(time.Date(1992, 4, 12, 0, 0, 0, 0, time.UTC))

	if diff := math.Abs(m.RA.Deg() - 134.69); diff > 0.1 {
		t.Errorf("Moon RA = %.4f°, want 134.69° ±0.1", m.RA.Deg())
	}
	if diff := math.Abs(m.Dec.Deg() - 13.77); diff > 0.1 {
		t.Errorf("Moon Dec = %.4f°, want 13.77° ±0.1", m.Dec.Deg())
	}
	if diff := math.Abs(m.Illuminated - 0.68); diff > 0.02 {
		t.Errorf("Moon illuminated = %.4f, want 0.68 ±0.02", m.Illuminated)
	}
}

// TestApparentThetaPersei reproduces the Meeus example 21.b star: θ Persei
// precessed (with proper motion) from J2000 to epoch 2028.83 lands at
// α=2h46m11.3s, δ=+49°20′54″. Our pipeline adds the short-period nutation
// terms on top, which move the place by well under an arcminute.
func TestApparentThetaPersei(t *testing.T) {
	star := catalog.Object{
		ID:    "theta Per",
		RA:    unit.NewRA(2, 44, 11.986),
		Dec:   unit.NewAngle('+', 49, 13, 42.48),
		Mag:   4.1,
		PMRA:  unit.HourAngle(0.03425 * math.Pi / 43200),
		PMDec: unit.AngleFromSec(-0.0895),
	}
	// JDE 2462088.69 from the worked example.
	instant := time.Date(2028, 11, 13, 4, 33, 36, 0, time.UTC)

	s, err := testEngine().Apparent(star, instant)
	if err != nil {
		t.Fatal(err)
	}

	wantRA := 41.547214  // 2h46m11.331s
	wantDec := 49.348483 // +49°20′54.54″
	tol := 1.0 / 60      // 1 arcmin, leaves room for the nutation terms

	if diff := math.Abs(s.RA.Deg() - wantRA); diff > tol {
		t.Errorf("RA = %.6f°, want %.6f° ±1′ (diff=%.2e)", s.RA.Deg(), wantRA, diff)
	}
	if diff := math.Abs(s.Dec.Deg() - wantDec); diff > tol {
		t.Errorf("Dec = %.6f°, want %.6f° ±1′ (diff=%.2e)", s.Dec.Deg(), wantDec, diff)
	}
}

// TestApparentRejectsBadCoordinates checks per-object validation surfaces
// as an error, not a panic or a silent wrong answer.
func TestApparentRejectsBadCoordinates(t *testing.T) {
	bad := catalog.Object{ID: "bogus", RA: unit.RA(-1), Dec: unit.AngleFromDeg(10)}

	_, err := testEngine().Apparent(bad, time.Now())
	if !errors.Is(err, catalog.ErrBadRA) {
		t.Errorf("got %v, want %v", err, catalog.ErrBadRA)
	}
}

// TestInterferenceRadiusScaling: ≈0 at new moon, maximal at full moon.
func TestInterferenceRadiusScaling(t *testing.T) {
	e := testEngine()

	if r := e.interferenceRadius(0); r.Deg() != 0 {
		t.Errorf("new moon radius = %.2f°, want 0", r.Deg())
	}
	if r := e.interferenceRadius(1); math.Abs(r.Deg()-defaultMoonMaxRadius) > 1e-9 {
		t.Errorf("full moon radius = %.2f°, want %d", r.Deg(), defaultMoonMaxRadius)
	}
	half := e.interferenceRadius(0.5)
	if half.Deg() <= 0 || half.Deg() >= defaultMoonMaxRadius {
		t.Errorf("half moon radius = %.2f°, want strictly between", half.Deg())
	}
}

// TestCacheReadThrough: a repeated lookup must hit the memo and return the
// identical sample.
func TestCacheReadThrough(t *testing.T) {
	e := testEngine()
	star := catalog.BrightStars()[0]
	instant := time.Date(2024, 8, 15, 22, 30, 0, 0, time.UTC)

	first, err := e.Apparent(star, instant)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Apparent(star, instant)
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Errorf("cache returned a different sample: %v vs %v", first, second)
	}
	stats := e.CacheStats()
	if stats.Hits < 1 {
		t.Errorf("expected at least one cache hit, got %+v", stats)
	}
}

// TestCacheQuantization: instants within one quantum share an entry;
// instants in different quanta do not.
func TestCacheQuantization(t *testing.T) {
	c := newCache(time.Minute)
	base := time.Date(2024, 8, 15, 22, 30, 0, 0, time.UTC)

	c.put("x", base, Sample{RA: 1, Dec: 2})
	if _, ok := c.get("x", base.Add(30*time.Second)); !ok {
		t.Error("lookup within the same quantum should hit")
	}
	if _, ok := c.get("x", base.Add(90*time.Second)); ok {
		t.Error("lookup in the next quantum should miss")
	}
}
