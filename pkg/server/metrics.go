// Copyright 2025 Certen Protocol
//
// Request metrics, exposed on /metrics for scraping.

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealkernel_http_requests_total",
		Help: "Total HTTP requests handled by the kernel's API surface.",
	}, []string{"route", "method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dealkernel_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	eventsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealkernel_events_appended_total",
		Help: "Total events successfully appended to the committed ledger.",
	})

	gateBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealkernel_gate_blocks_total",
		Help: "Total event-append attempts blocked by the gate, by action.",
	}, []string{"action"})
)

// statusRecorder captures the status code written by downstream handlers so
// the metrics middleware can label it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// withMetrics wraps a handler, recording request count and latency under
// route (the mux pattern that matched, not the raw path, to keep label
// cardinality bounded).
func withMetrics(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	}
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
