// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	inspectionsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inspections_submitted_total",
			Help: "Inspections accepted by the intake path.",
		},
	)

	inspectionsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspections_finished_total",
			Help: "Inspections by terminal status (completed/failed).",
		},
		[]string{"status"},
	)

	inspectionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inspections_in_flight",
			Help: "Orchestration runs currently executing.",
		},
	)

	analysisRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_retries_total",
			Help: "Retry attempts against the analysis service.",
		},
	)

	analysisLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_call_seconds",
			Help:    "End-to-end analysis call latency including retries.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 240, 480},
		},
		[]string{"success"},
	)

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by entity and outcome (hit/miss).",
		},
		[]string{"entity", "outcome"},
	)

	reconciledStaleRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inspections_reconciled_stale_total",
			Help: "Orphaned processing inspections swept to failed.",
		},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			inspectionsSubmitted, inspectionsFinished, inspectionsInFlight,
			analysisRetries, analysisLatencySeconds, cacheRequests, reconciledStaleRuns,
		)
	})
}

func IncInspectionSubmitted() { inspectionsSubmitted.Inc() }

func IncInspectionFinished(status string) {
	inspectionsFinished.WithLabelValues(status).Inc()
}

func IncInspectionsInFlight() { inspectionsInFlight.Inc() }
func DecInspectionsInFlight() { inspectionsInFlight.Dec() }

func IncAnalysisRetry() { analysisRetries.Inc() }

func ObserveAnalysisLatency(d time.Duration, success bool) {
	analysisLatencySeconds.WithLabelValues(strconv.FormatBool(success)).Observe(d.Seconds())
}

func IncCacheRequest(entity, outcome string) {
	cacheRequests.WithLabelValues(entity, outcome).Inc()
}

func AddReconciledStaleRuns(n int) {
	if n > 0 {
		reconciledStaleRuns.Add(float64(n))
	}
}
