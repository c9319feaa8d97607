// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"

	// outcomeOK and outcomeError partition the ask/ingest counters.
	outcomeOK    = "ok"
	outcomeError = "error"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// askRequestsTotal counts completed /api/ask requests, partitioned by
	// outcome: "ok" or "error".
	askRequestsTotal *prometheus.CounterVec

	// askDurationSeconds records the wall-clock duration of each /api/ask
	// request including retrieval and generation.
	askDurationSeconds *prometheus.HistogramVec

	// ingestRequestsTotal counts completed ingest requests, partitioned by
	// outcome: "ok" or "error".
	ingestRequestsTotal *prometheus.CounterVec

	// ingestDurationSeconds records the wall-clock duration of each ingest
	// request including extraction, embedding and upsert.
	ingestDurationSeconds *prometheus.HistogramVec

	// ingestChunksTotal counts chunks written to the vector store.
	ingestChunksTotal prometheus.Counter

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		askRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsmith",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total number of /api/ask requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		askDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docsmith",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/ask requests including retrieval and generation.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"outcome"}),

		ingestRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsmith",
			Subsystem: "ingest",
			Name:      "requests_total",
			Help:      "Total number of ingest requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		ingestDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docsmith",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of ingest requests including extraction, embedding and upsert.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),

		ingestChunksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docsmith",
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Total number of chunks written to the vector store.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsmith",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docsmith",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}
