// Package metrics defines the Prometheus metric collectors used by the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument the service records.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	QuestionsTotal       *prometheus.CounterVec
	AnswersTotal         *prometheus.CounterVec
	AnswerLatency        *prometheus.HistogramVec
	CandidateCount       prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	RefreshTotal         *prometheus.CounterVec
	RefreshDuration      prometheus.Histogram
	SnapshotDocuments    prometheus.Gauge
	SnapshotTerms        prometheus.Gauge
}

// New registers every collector on the default registry, so it must run at
// most once per process. Tests that need a handler pass a nil *Metrics
// instead.
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, labeled by method, path, and status.",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Wall-clock time spent serving each HTTP request.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "path"}),

		HTTPRequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently being served.",
		}),

		QuestionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "questions_total",
			Help: "Questions asked, labeled by classified type (who, when, where, ...).",
		}, []string{"type"}),

		AnswersTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "answers_total",
			Help: "Answers returned, labeled by outcome (answered, not_found).",
		}, []string{"outcome"}),

		AnswerLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "answer_latency_seconds",
			Help:    "End-to-end question answering latency.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
		}, []string{"cache_status"}),

		CandidateCount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "answer_candidates_count",
			Help:    "Filtered candidate messages considered per question.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		}),

		CacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Answer cache hits.",
		}),

		CacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Answer cache misses.",
		}),

		RefreshTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "corpus_refresh_total",
			Help: "Corpus refresh operations, labeled by status.",
		}, []string{"status"}),

		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "corpus_refresh_duration_seconds",
			Help:    "Corpus load plus index rebuild duration.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),

		SnapshotDocuments: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "snapshot_documents",
			Help: "Messages in the currently published snapshot.",
		}),

		SnapshotTerms: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "snapshot_terms",
			Help: "Distinct index terms in the currently published snapshot.",
		}),
	}
}

// Handler serves the registered collectors in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
