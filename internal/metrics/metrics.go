// Package metrics exposes Prometheus collectors for the discovery service.
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
	buyersDiscoveredTotal      *prometheus.CounterVec
	buyersStoredTotal          prometheus.Counter
	cyclesTotal                *prometheus.CounterVec
	adapterErrorsTotal         *prometheus.CounterVec
	rateLimitDelaySeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		buyersDiscoveredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buyerscout_candidates_total",
				Help: "Total candidate leads produced, labeled by source.",
			},
			[]string{"source"},
		)

		buyersStoredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "buyerscout_buyers_stored_total",
				Help: "Total genuinely new buyer records stored.",
			},
		)

		cyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buyerscout_cycles_total",
				Help: "Total discovery cycles run, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		adapterErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buyerscout_adapter_errors_total",
				Help: "Total adapter-level failures, labeled by source.",
			},
			[]string{"source"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "buyerscout_rate_limit_delay_seconds",
				Help:    "Histogram of rate limit wait durations, labeled by kind.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"kind"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCandidates counts candidates produced by one adapter invocation.
func ObserveCandidates(source string, count int) {
	Init()
	if count > 0 {
		buyersDiscoveredTotal.WithLabelValues(source).Add(float64(count))
	}
}

// ObserveStored counts genuinely new records written by the store.
func ObserveStored(count int) {
	Init()
	if count > 0 {
		buyersStoredTotal.Add(float64(count))
	}
}

// ObserveCycle increments the cycle counter for the given outcome.
func ObserveCycle(outcome string) {
	Init()
	cyclesTotal.WithLabelValues(outcome).Inc()
}

// ObserveAdapterError increments the error counter for the given source.
func ObserveAdapterError(source string) {
	Init()
	adapterErrorsTotal.WithLabelValues(source).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(kind string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
