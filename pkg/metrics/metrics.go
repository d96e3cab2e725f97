// Package metrics registers the Prometheus metrics exported on /metrics.
package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docbrain"

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	DocumentsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_ingested_total",
			Help:      "Uploaded files by outcome.",
		},
		[]string{"status"}, // success, failed
	)

	ChunksIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_indexed_total",
		Help:      "Chunks written to the vector store.",
	})

	RetrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "retrieval_duration_seconds",
		Help:      "Time to embed a query and search the vector store.",
		Buckets:   prometheus.DefBuckets,
	})

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_pipeline_runs_total",
			Help:      "Answer pipeline runs by success flag.",
		},
		[]string{"success"},
	)

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "answer_pipeline_duration_seconds",
		Help:      "End-to-end answer pipeline latency.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
	})

	PipelineTokens = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answer_pipeline_tokens_total",
		Help:      "Language model tokens used by the answer pipeline.",
	})
)

// RegisterDBStats exports connection pool statistics of db.
func RegisterDBStats(db *sql.DB, name string) error {
	return prometheus.Register(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
