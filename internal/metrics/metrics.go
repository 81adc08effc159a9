// Package metrics exposes Prometheus collectors for the one-pager console.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	submitsTotal               *prometheus.CounterVec
	transitionsTotal           *prometheus.CounterVec
	transitionConflictsTotal   prometheus.Counter
	sweeperReclaimedTotal      prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		submitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onepager_submits_total",
				Help: "Total submit requests, labeled by outcome (new or duplicate).",
			},
			[]string{"outcome"},
		)

		transitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onepager_transitions_total",
				Help: "Total status transitions applied, labeled by target status.",
			},
			[]string{"status"},
		)

		transitionConflictsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "onepager_transition_conflicts_total",
				Help: "Total conditional transitions rejected because the stored status had changed.",
			},
		)

		sweeperReclaimedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "onepager_sweeper_reclaimed_total",
				Help: "Total stale in-progress reports force-failed by the sweeper.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSubmit increments the submit counter for the given outcome.
func ObserveSubmit(outcome string) {
	if submitsTotal == nil {
		return
	}
	submitsTotal.WithLabelValues(outcome).Inc()
}

// ObserveTransition increments the transition counter for the target status.
func ObserveTransition(status string) {
	if transitionsTotal == nil {
		return
	}
	transitionsTotal.WithLabelValues(status).Inc()
}

// ObserveTransitionConflict increments the conflict counter.
func ObserveTransitionConflict() {
	if transitionConflictsTotal == nil {
		return
	}
	transitionConflictsTotal.Inc()
}

// ObserveReclaimed adds the number of reports reclaimed by a sweep.
func ObserveReclaimed(count int64) {
	if sweeperReclaimedTotal == nil {
		return
	}
	sweeperReclaimedTotal.Add(float64(count))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
