// Package metrics provides Prometheus metrics for the import pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Intake metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_uploads_total",
			Help: "Total number of uploaded files by format and outcome",
		},
		[]string{"format", "outcome"},
	)

	UploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_upload_bytes_total",
			Help: "Total bytes accepted into the staging area",
		},
		[]string{"format"},
	)

	// Session metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "import_sessions_active",
			Help: "Number of import sessions that have not reached a terminal state",
		},
	)

	SessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_sessions_finished_total",
			Help: "Total number of sessions that reached a terminal state",
		},
		[]string{"state", "reason"},
	)

	// Execution metrics
	ExecutionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "import_executions_in_flight",
			Help: "Number of import executions currently writing rows",
		},
	)

	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "import_execution_duration_seconds",
			Help:    "Time taken to execute one import",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"entity_type"},
	)

	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_rows_total",
			Help: "Total number of rows processed by entity type and status",
		},
		[]string{"entity_type", "status"},
	)

	RowWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_row_warnings_total",
			Help: "Total number of rows that carried at least one warning",
		},
		[]string{"entity_type"},
	)

	// Staging metrics
	StagedFilesSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "import_staged_files_swept_total",
			Help: "Total number of staged files removed by the TTL sweeper",
		},
	)

	LimiterRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "import_limiter_rejections_total",
			Help: "Total number of executions rejected because no slot was available",
		},
	)
)

// RecordUpload records the outcome of one file intake.
func RecordUpload(format, outcome string, size int64) {
	UploadsTotal.WithLabelValues(format, outcome).Inc()
	if outcome == "accepted" {
		UploadBytes.WithLabelValues(format).Add(float64(size))
	}
}

// RecordSessionStart records a newly created session.
func RecordSessionStart() {
	SessionsActive.Inc()
}

// RecordSessionEnd records a session reaching a terminal state.
func RecordSessionEnd(state, reason string) {
	SessionsActive.Dec()
	SessionsFinished.WithLabelValues(state, reason).Inc()
}

// RecordExecution records the aggregate outcome of one import run.
func RecordExecution(entityType string, succeeded, failed, warned int, duration time.Duration) {
	RowsProcessed.WithLabelValues(entityType, "success").Add(float64(succeeded))
	RowsProcessed.WithLabelValues(entityType, "error").Add(float64(failed))
	RowWarnings.WithLabelValues(entityType).Add(float64(warned))
	ExecutionDuration.WithLabelValues(entityType).Observe(duration.Seconds())
}
