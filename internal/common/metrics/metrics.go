package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	DocumentsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_documents_imported_total",
			Help: "Documents read from MongoDB and converted into prompt items",
		},
		[]string{"collection"},
	)

	ItemsUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_items_uploaded_total",
			Help: "Items reported back by the dataset store after upload",
		},
		[]string{"dataset_id"},
	)

	ResponsesExported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_responses_exported_total",
			Help: "Best responses written back to MongoDB",
		},
		[]string{"collection"},
	)

	// RecoveredFailures counts runs that were logged and ended without
	// propagating an error.
	RecoveredFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_recovered_failures_total",
			Help: "Pipeline runs that ended in a recovered failure",
		},
		[]string{"operation", "error_code"},
	)
)
