// Package metrics exposes Prometheus instrumentation for the planning
// pipeline. The core packages only increment counters; serving them over
// HTTP is up to the binary.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ephemerisSamples = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyplan_ephemeris_samples_total",
			Help: "Apparent positions computed, by body kind.",
		},
		[]string{"kind"},
	)

	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skyplan_ephemeris_cache_hits_total",
			Help: "Ephemeris memo cache hits.",
		},
	)

	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skyplan_ephemeris_cache_misses_total",
			Help: "Ephemeris memo cache misses.",
		},
	)

	visibilityWindows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skyplan_visibility_windows_total",
			Help: "Visibility intervals extracted.",
		},
	)

	scheduleSlots = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skyplan_schedule_slots_total",
			Help: "Slots accepted into a schedule.",
		},
	)

	visibilityWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyplan_visibility_workers",
			Help: "Size of the visibility worker pool.",
		},
	)
)

func init() {
	prometheus.MustRegister(ephemerisSamples)
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
	prometheus.MustRegister(visibilityWindows)
	prometheus.MustRegister(scheduleSlots)
	prometheus.MustRegister(visibilityWorkers)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncEphemerisSample counts one computed apparent position.
// kind is "sun", "moon", or "fixed".
func IncEphemerisSample(kind string) {
	ephemerisSamples.WithLabelValues(kind).Inc()
}

// IncCacheHit counts an ephemeris memo cache hit.
func IncCacheHit() { cacheHits.Inc() }

// IncCacheMiss counts an ephemeris memo cache miss.
func IncCacheMiss() { cacheMisses.Inc() }

// AddVisibilityWindows counts extracted visibility intervals.
func AddVisibilityWindows(n int) { visibilityWindows.Add(float64(n)) }

// AddScheduleSlots counts accepted schedule slots.
func AddScheduleSlots(n int) { scheduleSlots.Add(float64(n)) }

// SetVisibilityWorkers publishes the worker pool size.
func SetVisibilityWorkers(n int) { visibilityWorkers.Set(float64(n)) }
