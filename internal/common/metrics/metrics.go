// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes.
const (
	OutcomeCompleted   = "completed"
	OutcomeSkipped     = "skipped"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeCancelled   = "cancelled"
	OutcomeLeaseHeld   = "lease_held"
	OutcomeLeaseError  = "lease_error"
)

// Record outcomes.
const (
	RecordSucceeded = "succeeded"
	RecordFailed    = "failed"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_sync_runs_total",
			Help: "Total number of pipeline invocations by outcome",
		},
		[]string{"outcome"},
	)

	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_sync_records_total",
			Help: "Total number of eligible records processed by outcome",
		},
		[]string{"outcome"},
	)

	StepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_sync_step_failures_total",
			Help: "Total number of per-record step failures",
		},
		[]string{"step", "error_code"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contact_sync_run_duration_seconds",
			Help:    "Duration of pipeline invocations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	RunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contact_sync_runs_active",
			Help: "Number of pipeline invocations currently running",
		},
	)
)
