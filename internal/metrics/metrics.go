// Package metrics exposes engine counters to Prometheus. All methods are safe
// on a nil *Metrics so callers never need to check whether metrics are wired.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperengineering/pulse/internal/types"
)

const namespace = "pulse"

// Metrics holds the collectors updated by the reminder engine and goal
// scheduler.
type Metrics struct {
	registry *prometheus.Registry

	ticks         prometheus.Counter
	tickDuration  prometheus.Histogram
	alertsFired   *prometheus.CounterVec
	capReached    prometheus.Counter
	skippedByCap  prometheus.Counter
	alertsPruned  prometheus.Counter
	checkIns      prometheus.Counter
	statusChanges *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Trigger sweeps executed.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of one trigger sweep including persistence.",
			Buckets:   prometheus.DefBuckets,
		}),
		alertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Alerts materialized by the trigger sweep.",
		}, []string{"type"}),
		capReached: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_cap_reached_total",
			Help:      "Sweeps that stopped because the daily alert cap was reached.",
		}),
		skippedByCap: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_skipped_by_cap_total",
			Help:      "Due schedules skipped because the daily alert cap was reached.",
		}),
		alertsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_pruned_total",
			Help:      "Read alerts removed from the delivered log by retention.",
		}),
		checkIns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "goal_checkins_total",
			Help:      "Goal check-ins recorded.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "goal_status_changes_total",
			Help:      "Goal status transitions applied by status refresh.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.ticks, m.tickDuration, m.alertsFired, m.capReached,
		m.skippedByCap, m.alertsPruned, m.checkIns, m.statusChanges,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTick records the outcome of one sweep.
func (m *Metrics) ObserveTick(d time.Duration, fired []types.Alert, skipped int, capReached bool) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	for _, a := range fired {
		m.alertsFired.WithLabelValues(string(a.Type)).Inc()
	}
	if capReached {
		m.capReached.Inc()
	}
	m.skippedByCap.Add(float64(skipped))
}

// ObservePruned records alerts dropped by retention.
func (m *Metrics) ObservePruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.alertsPruned.Add(float64(n))
}

// ObserveCheckIn records one goal check-in.
func (m *Metrics) ObserveCheckIn() {
	if m == nil {
		return
	}
	m.checkIns.Inc()
}

// ObserveStatusChange records a goal moving to status.
func (m *Metrics) ObserveStatusChange(status types.GoalStatus) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(string(status)).Inc()
}
