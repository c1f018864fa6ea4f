package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dispatch metrics
	DocumentsDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferret_documents_dispatched_total",
			Help: "Total number of document tasks dispatched to workers",
		},
	)

	DispatchFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferret_dispatch_failed_total",
			Help: "Total number of dispatch attempts that failed",
		},
	)

	DispatchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ferret_dispatch_latency_seconds",
			Help:    "Time taken to select a worker and enqueue a task in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Fusion metrics
	DocumentsFused = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferret_documents_fused_total",
			Help: "Total number of partial indexes fused into the global index",
		},
	)

	ResultsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferret_results_rejected_total",
			Help: "Total number of malformed partial results dropped",
		},
	)

	// Index state
	IndexTerms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferret_index_terms",
			Help: "Number of distinct terms in the global inverted index",
		},
	)

	DocumentsPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferret_documents_pending",
			Help: "Number of dispatched documents awaiting results",
		},
	)

	// Worker metrics
	WorkersLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferret_workers_live",
			Help: "Number of workers with a live status record",
		},
	)

	TasksProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferret_worker_tasks_processed_total",
			Help: "Total number of tasks processed by this worker",
		},
	)

	TasksFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferret_worker_tasks_failed_total",
			Help: "Total number of tasks this worker could not process",
		},
	)

	// Search metrics
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ferret_search_duration_seconds",
			Help:    "Search request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		DocumentsDispatched,
		DispatchFailed,
		DispatchLatency,
		DocumentsFused,
		ResultsRejected,
		IndexTerms,
		DocumentsPending,
		WorkersLive,
		TasksProcessed,
		TasksFailed,
		SearchDuration,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures a duration for histogram observation.
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time on the given histogram.
func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(time.Since(t.start).Seconds())
}
