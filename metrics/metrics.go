package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Balance metrics
	BalanceComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_balance_computations_total",
			Help: "Total balance snapshots computed",
		},
		[]string{"policy"},
	)

	BalanceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worktime_balance_duration_seconds",
			Help:    "Time to load events and compute a balance snapshot",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, 1},
		},
	)

	DayCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worktime_day_cache_hits_total",
			Help: "Completed-day cache hits",
		},
	)

	DayCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worktime_day_cache_misses_total",
			Help: "Completed-day cache misses",
		},
	)

	// Event metrics
	EventsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_events_recorded_total",
			Help: "Total session events recorded",
		},
		[]string{"type", "reason"},
	)

	EventsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worktime_events_deleted_total",
			Help: "Total session events deleted",
		},
	)

	Diagnostics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_diagnostics_total",
			Help: "Malformed event sequences seen while reconstructing intervals",
		},
		[]string{"code"},
	)

	// Live stream metrics
	LiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worktime_live_subscribers",
			Help: "Number of connected live balance subscribers",
		},
	)

	// Scheduler metrics
	PeriodsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_periods_closed_total",
			Help: "Month-close runs by outcome",
		},
		[]string{"status"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		BalanceComputations,
		BalanceDuration,
		DayCacheHits,
		DayCacheMisses,
		EventsRecorded,
		EventsDeleted,
		Diagnostics,
		LiveSubscribers,
		PeriodsClosed,
	)
}

// ObserveCacheLookup matches worktime.DayCache.OnLookup.
func ObserveCacheLookup(hit bool) {
	if hit {
		DayCacheHits.Inc()
		return
	}
	DayCacheMisses.Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
