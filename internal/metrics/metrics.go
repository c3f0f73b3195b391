// Package metrics provides Prometheus metrics for the backup tool.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowRuns tracks the total number of workflow runs.
	WorkflowRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backupdbtool_workflow_runs_total",
		Help: "Total number of workflow runs",
	}, []string{"workflow", "status"})

	// StageDuration tracks the duration of pipeline stages.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backupdbtool_stage_duration_seconds",
		Help:    "Duration of pipeline stages in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
	}, []string{"stage"})

	// ArchiveSize tracks the size of the last produced archive.
	ArchiveSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backupdbtool_archive_size_bytes",
		Help: "Size of the last archive in bytes",
	})

	// DatabaseSize tracks the size of the database.
	DatabaseSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backupdbtool_database_size_bytes",
		Help: "Size of the database in bytes",
	}, []string{"database"})

	// StorageOperations tracks storage operations.
	StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backupdbtool_storage_operations_total",
		Help: "Total number of storage operations",
	}, []string{"operation", "provider", "status"})

	// UploadedBytes tracks bytes sent to storage providers.
	UploadedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backupdbtool_uploaded_bytes_total",
		Help: "Total number of bytes uploaded",
	}, []string{"provider"})

	// LastSuccessTimestamp tracks when each workflow last succeeded.
	LastSuccessTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backupdbtool_last_success_timestamp",
		Help: "Unix timestamp of the last successful workflow run",
	}, []string{"workflow"})

	// ObjectsPruned tracks the number of remote objects removed by retention.
	ObjectsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backupdbtool_objects_pruned_total",
		Help: "Total number of remote backups deleted by retention",
	})

	// LocalArchivesRemoved tracks local archives removed by the cleanup policy.
	LocalArchivesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backupdbtool_local_archives_removed_total",
		Help: "Total number of local archives removed",
	})

	// Info provides static information about the tool.
	Info = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backupdbtool_info",
		Help: "Information about the backup tool",
	}, []string{"version", "storage_provider", "db_type"})
)

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordWorkflow records a workflow run with its outcome.
func RecordWorkflow(workflow string, success bool) {
	WorkflowRuns.WithLabelValues(workflow, status(success)).Inc()
	if success {
		LastSuccessTimestamp.WithLabelValues(workflow).SetToCurrentTime()
	}
}

// RecordStorageOperation records a storage operation.
func RecordStorageOperation(operation, provider string, success bool) {
	StorageOperations.WithLabelValues(operation, provider, status(success)).Inc()
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
