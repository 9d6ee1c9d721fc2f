// diag prints tonight's sky at a glance for the built-in catalog: the
// twilight window, the Moon, and each object's apparent place, altitude,
// and azimuth at the middle of the night. Handy for eyeballing the
// pipeline against a planetarium app.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/soniakeys/unit"

	"github.com/sky/skyplan/internal/catalog"
	"github.com/sky/skyplan/internal/ephemeris"
	"github.com/sky/skyplan/internal/site"
	"github.com/sky/skyplan/internal/transform"
	"github.com/sky/skyplan/internal/visibility"
)

func main() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	zone, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		fmt.Println("ERROR loading zone:", err)
		os.Exit(1)
	}
	obs := site.Observer{
		Name:      "Milan",
		Latitude:  unit.AngleFromDeg(45.52),
		Longitude: unit.AngleFromDeg(9.22),
		Elevation: 122,
		Zone:      zone,
		MaxAlt:    unit.AngleFromDeg(90),
	}

	date := time.Now()
	if v := os.Getenv("SKYPLAN_DATE"); v != "" {
		date, err = time.Parse("2006-01-02", v)
		if err != nil {
			fmt.Println("ERROR parsing SKYPLAN_DATE:", err)
			os.Exit(1)
		}
	}

	engine := ephemeris.New(ephemeris.Config{}, logger)
	analyzer := visibility.NewAnalyzer(obs, engine, visibility.Config{}, logger)

	night, ok := analyzer.NightWindow(date)
	if !ok {
		fmt.Println("No astronomical night at this site and date.")
		return
	}
	fmt.Printf("Night: %v -> %v (%v)\n",
		obs.Civil(night.Dusk).Format(time.RFC3339),
		obs.Civil(night.Dawn).Format(time.RFC3339),
		night.Duration())

	mid := night.Dusk.Add(night.Duration() / 2)
	moon := engine.Moon(mid)
	fmt.Printf("Moon at mid-night: %v  illum=%.2f  radius=%.1f°\n",
		ephemeris.Sample{RA: moon.RA, Dec: moon.Dec}, moon.Illuminated, moon.Radius.Deg())

	objects := append(catalog.BrightStars(), catalog.DeepSky()...)
	fmt.Printf("\n%-16s %-28s %8s %8s\n", "OBJECT", "APPARENT (mid-night)", "ALT", "AZ")
	for _, o := range objects {
		pos, err := engine.Apparent(o, mid)
		if err != nil {
			fmt.Printf("%-16s ERROR %v\n", o.ID, err)
			continue
		}
		hz := transform.Observe(pos, obs, mid)
		fmt.Printf("%-16s %-28s %7.1f° %7.1f°\n", o.ID, pos.String(), hz.Alt.Deg(), hz.Az.Deg())
	}
}
