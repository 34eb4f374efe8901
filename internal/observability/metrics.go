// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Pipeline metrics
	WindowsProcessed prometheus.Counter
	WindowPoints     prometheus.Histogram
	StageDuration    *prometheus.HistogramVec

	// Detection metrics
	CandidatesProduced *prometheus.CounterVec
	DetectorFailures   *prometheus.CounterVec

	// Correlation metrics
	DuplicatesCollapsed prometheus.Counter
	SignalsMerged       prometheus.Counter

	// Emission metrics
	SignalsEmitted  *prometheus.CounterVec
	SignalsRejected prometheus.Counter
	SignalStrength  prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Stream metrics
	StreamSubscribers prometheus.Gauge
	BatchesBroadcast  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "signal_lab"
	}

	return &Metrics{
		// Pipeline metrics
		WindowsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "windows_processed_total",
			Help:      "Total number of data point windows processed",
		}),
		WindowPoints: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "window_points",
			Help:      "Number of data points per processed window",
			Buckets:   []float64{50, 100, 200, 500, 1000, 2000, 5000},
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		// Detection metrics
		CandidatesProduced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "candidates_produced_total",
			Help:      "Total number of candidate signals produced by detector",
		}, []string{"detector"}),
		DetectorFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "detector_failures_total",
			Help:      "Total number of isolated detector failures",
		}, []string{"detector"}),

		// Correlation metrics
		DuplicatesCollapsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correlation",
			Name:      "duplicates_collapsed_total",
			Help:      "Total number of candidates collapsed by deduplication",
		}),
		SignalsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correlation",
			Name:      "signals_merged_total",
			Help:      "Total number of signals absorbed by correlation merges",
		}),

		// Emission metrics
		SignalsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "signals_emitted_total",
			Help:      "Total number of signals emitted by type",
		}, []string{"type"}),
		SignalsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "signals_rejected_total",
			Help:      "Total number of signals rejected by the validation gate",
		}),
		SignalStrength: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "signal_strength",
			Help:      "Strength distribution of emitted signals",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Stream metrics
		StreamSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Current number of WebSocket stream subscribers",
		}),
		BatchesBroadcast: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "batches_broadcast_total",
			Help:      "Total number of signal batches broadcast to subscribers",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordWindowProcessed records one processed window and its point count.
func RecordWindowProcessed(points int) {
	DefaultMetrics.WindowsProcessed.Inc()
	DefaultMetrics.WindowPoints.Observe(float64(points))
}

// RecordStageDuration records a pipeline stage duration.
func RecordStageDuration(stage string, seconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordCandidates records candidate signals produced by a detector.
func RecordCandidates(detector string, count int) {
	DefaultMetrics.CandidatesProduced.WithLabelValues(detector).Add(float64(count))
}

// RecordDetectorFailure records an isolated detector failure.
func RecordDetectorFailure(detector string) {
	DefaultMetrics.DetectorFailures.WithLabelValues(detector).Inc()
}

// RecordDedup records candidates collapsed by deduplication.
func RecordDedup(collapsed int) {
	DefaultMetrics.DuplicatesCollapsed.Add(float64(collapsed))
}

// RecordMerges records signals absorbed by correlation merges.
func RecordMerges(merged int) {
	DefaultMetrics.SignalsMerged.Add(float64(merged))
}

// RecordEmitted records an emitted signal.
func RecordEmitted(signalType string, strength float64) {
	DefaultMetrics.SignalsEmitted.WithLabelValues(signalType).Inc()
	DefaultMetrics.SignalStrength.Observe(strength)
}

// RecordRejected records signals rejected by the validation gate.
func RecordRejected(count int) {
	DefaultMetrics.SignalsRejected.Add(float64(count))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
