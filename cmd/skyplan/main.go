package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/soniakeys/unit"
	"github.com/spf13/viper"

	"github.com/sky/skyplan/internal/catalog"
	"github.com/sky/skyplan/internal/ephemeris"
	"github.com/sky/skyplan/internal/health"
	"github.com/sky/skyplan/internal/metrics"
	"github.com/sky/skyplan/internal/moonlight"
	"github.com/sky/skyplan/internal/mosaic"
	"github.com/sky/skyplan/internal/schedule"
	"github.com/sky/skyplan/internal/site"
	"github.com/sky/skyplan/internal/visibility"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	v := newConfig(logger)

	observer, err := loadObserver(v)
	if err != nil {
		logger.Error("invalid observer configuration", "error", err)
		os.Exit(1)
	}
	plan := loadPlanConfig(v, logger)

	logger.Info("observer",
		"name", observer.Name,
		"latitude_deg", observer.Latitude.Deg(),
		"longitude_deg", observer.Longitude.Deg(),
		"zone", observer.Zone.String(),
		"min_alt_deg", observer.MinAlt.Deg(),
		"max_alt_deg", observer.MaxAlt.Deg(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := v.GetString("metrics.addr"); addr != "" {
		go func() {
			logger.Info("metrics listener", "addr", addr)
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.HandleFunc("/healthz", health.Healthz)
			mux.HandleFunc("/readyz", health.Readyz)
			if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener error", "error", err)
			}
		}()
	}

	if err := run(ctx, observer, plan, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// planConfig is everything beyond the observer that a run needs.
type planConfig struct {
	Date      time.Time
	Strategy  schedule.Strategy
	FOV       mosaic.FOV
	MinShared time.Duration
	Step      time.Duration
	Workers   int
}

func run(ctx context.Context, observer site.Observer, plan planConfig, logger *slog.Logger) error {
	engine := ephemeris.New(ephemeris.Config{}, logger)
	analyzer := visibility.NewAnalyzer(observer, engine, visibility.Config{
		Step:    plan.Step,
		Workers: plan.Workers,
	}, logger)

	night, ok := analyzer.NightWindow(plan.Date)
	if !ok {
		logger.Info("no astronomical night at this site and date, nothing to plan",
			"date", plan.Date.Format("2006-01-02"))
		return nil
	}
	moon := engine.Moon(night.Dusk.Add(night.Duration() / 2))
	logger.Info("night window",
		"dusk", observer.Civil(night.Dusk).Format(time.RFC3339),
		"dawn", observer.Civil(night.Dawn).Format(time.RFC3339),
		"duration", night.Duration().String(),
		"moon_illuminated", fmt.Sprintf("%.2f", moon.Illuminated),
		"moon_radius_deg", fmt.Sprintf("%.1f", moon.Radius.Deg()),
	)

	objects := append(catalog.BrightStars(), catalog.DeepSky()...)
	results := analyzer.All(ctx, objects, night)
	if err := ctx.Err(); err != nil {
		return err
	}

	visible := results[:0:0]
	for _, r := range results {
		if r.Visible() {
			visible = append(visible, r)
			logger.Debug("visible", "object", r.Object.ID,
				"windows", len(r.Intervals), "total", r.Total().String())
		}
	}
	logger.Info("visibility", "objects", len(objects), "visible", len(visible))

	groups := mosaic.NewGrouper(plan.FOV, plan.MinShared, logger).Group(visible)
	for _, g := range groups {
		logger.Info("mosaic group", "members", g.IDs(), "extent_deg", g.Extent.Deg())
	}

	targets, err := buildTargets(analyzer, engine, plan, visible, groups, logger)
	if err != nil {
		return err
	}

	slots := schedule.New(plan.Strategy, schedule.Config{
		MinDuration: observer.MinDuration,
	}, logger).Plan(night, targets)

	for _, s := range slots {
		logger.Info("slot",
			"target", s.Target,
			"start", observer.Civil(s.Start).Format("15:04"),
			"end", observer.Civil(s.End).Format("15:04"),
			"score", fmt.Sprintf("%.2f", s.Score),
		)
	}
	stats := engine.CacheStats()
	logger.Info("done", "slots", len(slots),
		"cache_entries", stats.Entries, "cache_hits", stats.Hits, "cache_misses", stats.Misses)
	return nil
}

// buildTargets folds visibility, moon interference, and mosaic grouping
// into the scheduler's input: one target per group, one per leftover
// object.
func buildTargets(analyzer *visibility.Analyzer, engine *ephemeris.Engine, plan planConfig,
	visible []visibility.ObjectVisibility, groups []mosaic.Group, logger *slog.Logger) ([]schedule.Target, error) {

	model := moonlight.New(engine.Moon, 0, logger)
	grouped := make(map[string]bool)
	var targets []schedule.Target

	for _, g := range groups {
		for _, id := range g.IDs() {
			grouped[id] = true
		}
		t, err := makeTarget(analyzer, engine, model, g.Objects[0], g.Windows, 1)
		if err != nil {
			logger.Warn("group skipped", "members", g.IDs(), "error", err)
			continue
		}
		t.Members = g.IDs()
		targets = append(targets, t)
	}

	for _, r := range visible {
		if grouped[r.Object.ID] {
			continue
		}
		t, err := makeTarget(analyzer, engine, model, r.Object, r.Intervals, mosaic.PanelCount(r.Object, plan.FOV))
		if err != nil {
			logger.Warn("object skipped", "object", r.Object.ID, "error", err)
			continue
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func makeTarget(analyzer *visibility.Analyzer, engine *ephemeris.Engine, model *moonlight.Model,
	obj catalog.Object, windows []visibility.Interval, panels int) (schedule.Target, error) {

	t := schedule.Target{Object: obj, Intervals: windows, Panels: panels}

	var spans []moonlight.Span
	for _, iv := range windows {
		alt, at, err := analyzer.Peak(obj, iv)
		if err != nil {
			return schedule.Target{}, err
		}
		if alt > t.Peak || t.PeakTime.IsZero() {
			t.Peak, t.PeakTime = alt, at
		}
		s, err := model.Annotate(func(instant time.Time) (ephemeris.Sample, error) {
			return engine.Apparent(obj, instant)
		}, iv)
		if err != nil {
			return schedule.Target{}, err
		}
		spans = append(spans, s...)
	}
	t.MoonFraction = moonlight.AffectedFraction(spans)
	return t, nil
}

// newConfig builds the viper instance: optional skyplan.toml next to the
// binary or under SKYPLAN_CONFIG, every key overridable through
// SKYPLAN_SECTION_KEY environment variables.
func newConfig(logger *slog.Logger) *viper.Viper {
	v := viper.New()
	v.SetConfigName("skyplan")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if dir := os.Getenv("SKYPLAN_CONFIG"); dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix("skyplan")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("observer.name", "Milan")
	v.SetDefault("observer.latitude", 45.52)
	v.SetDefault("observer.longitude", 9.22)
	v.SetDefault("observer.elevation", 122.0)
	v.SetDefault("observer.timezone", "Europe/Rome")
	v.SetDefault("observer.pressure", 0.0)
	v.SetDefault("observer.temperature", 10.0)
	v.SetDefault("constraints.min_alt", 20.0)
	v.SetDefault("constraints.max_alt", 90.0)
	v.SetDefault("constraints.min_az", 0.0)
	v.SetDefault("constraints.max_az", 0.0)
	v.SetDefault("constraints.min_duration_minutes", 30)
	v.SetDefault("plan.strategy", "max-duration")
	v.SetDefault("plan.date", "")
	v.SetDefault("plan.step_seconds", 60)
	v.SetDefault("plan.workers", runtime.NumCPU())
	v.SetDefault("mosaic.width_deg", 2.2)
	v.SetDefault("mosaic.height_deg", 1.5)
	v.SetDefault("mosaic.margin", 0.1)
	v.SetDefault("mosaic.min_shared_minutes", 30)
	v.SetDefault("metrics.addr", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Info("no config file found, using defaults and environment")
		} else {
			logger.Warn("config file ignored", "error", err)
		}
	} else {
		logger.Info("config loaded", "file", v.ConfigFileUsed())
	}
	return v
}

func loadObserver(v *viper.Viper) (site.Observer, error) {
	zone, err := time.LoadLocation(v.GetString("observer.timezone"))
	if err != nil {
		return site.Observer{}, fmt.Errorf("observer.timezone: %w", err)
	}
	o := site.Observer{
		Name:        v.GetString("observer.name"),
		Latitude:    unit.AngleFromDeg(v.GetFloat64("observer.latitude")),
		Longitude:   unit.AngleFromDeg(v.GetFloat64("observer.longitude")),
		Elevation:   v.GetFloat64("observer.elevation"),
		Zone:        zone,
		Pressure:    v.GetFloat64("observer.pressure"),
		Temperature: v.GetFloat64("observer.temperature"),
		MinAlt:      unit.AngleFromDeg(v.GetFloat64("constraints.min_alt")),
		MaxAlt:      unit.AngleFromDeg(v.GetFloat64("constraints.max_alt")),
		MinAz:       unit.AngleFromDeg(v.GetFloat64("constraints.min_az")),
		MaxAz:       unit.AngleFromDeg(v.GetFloat64("constraints.max_az")),
		MinDuration: time.Duration(v.GetInt("constraints.min_duration_minutes")) * time.Minute,
	}
	if err := o.Validate(); err != nil {
		return site.Observer{}, err
	}
	return o, nil
}

func loadPlanConfig(v *viper.Viper, logger *slog.Logger) planConfig {
	cfg := planConfig{
		Date:      time.Now(),
		Step:      time.Duration(v.GetInt("plan.step_seconds")) * time.Second,
		Workers:   v.GetInt("plan.workers"),
		MinShared: time.Duration(v.GetInt("mosaic.min_shared_minutes")) * time.Minute,
		FOV: mosaic.FOV{
			Width:  unit.AngleFromDeg(v.GetFloat64("mosaic.width_deg")),
			Height: unit.AngleFromDeg(v.GetFloat64("mosaic.height_deg")),
			Margin: v.GetFloat64("mosaic.margin"),
		},
	}

	if d := v.GetString("plan.date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			logger.Warn("invalid plan.date value, using today", "value", d)
		} else {
			cfg.Date = parsed
		}
	}

	strat, err := schedule.ParseStrategy(v.GetString("plan.strategy"))
	if err != nil {
		logger.Warn("unknown plan.strategy, using max-duration", "value", v.GetString("plan.strategy"))
		strat = schedule.MaxDuration{}
	}
	cfg.Strategy = strat

	logger.Info("plan config",
		"strategy", cfg.Strategy.Name(),
		"date", cfg.Date.Format("2006-01-02"),
		"step_seconds", cfg.Step.Seconds(),
		"workers", cfg.Workers,
		"fov_deg", fmt.Sprintf("%.1fx%.1f", cfg.FOV.Width.Deg(), cfg.FOV.Height.Deg()),
	)
	return cfg
}
