package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level collectors. They are registered via Register.
var (
	regOK atomic.Bool

	refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "datacycle",
			Subsystem: "cycle",
			Name:      "refreshes_total",
			Help:      "Number of completed refreshes by source and outcome.",
		}, []string{"source", "outcome"},
	)
	refreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "datacycle",
			Subsystem: "cycle",
			Name:      "refresh_duration_seconds",
			Help:      "Time spent fetching from the remote source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"},
	)
	droppedRefreshes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "datacycle",
			Subsystem: "cycle",
			Name:      "dropped_refreshes_total",
			Help:      "Refresh requests ignored because another refresh was in flight.",
		},
	)
	lastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "datacycle",
			Subsystem: "cycle",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful fetch.",
		},
	)
	currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "datacycle",
			Subsystem: "cycle",
			Name:      "current_state",
			Help:      "Current cycle state (1 = active state, 0 = inactive).",
		}, []string{"state"},
	)
)

var states = []string{"uninitialized", "loading", "ready", "refreshing", "failed"}

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{refreshes, refreshDuration, droppedRefreshes, lastSuccess, currentState}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving metrics from the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// HandlerFor serves metrics from a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// The helpers below no-op until Register has been called.

func ObserveRefresh(source, outcome string, seconds float64) {
	if regOK.Load() {
		refreshes.WithLabelValues(source, outcome).Inc()
		refreshDuration.WithLabelValues(source).Observe(seconds)
	}
}

func IncDropped() {
	if regOK.Load() {
		droppedRefreshes.Inc()
	}
}

func SetLastSuccess(unix float64) {
	if regOK.Load() {
		lastSuccess.Set(unix)
	}
}

func SetState(state string) {
	if !regOK.Load() {
		return
	}
	for _, s := range states {
		var v float64
		if s == state {
			v = 1
		}
		currentState.WithLabelValues(s).Set(v)
	}
}
