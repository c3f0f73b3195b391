package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/imedwei/backupdbtool/internal/config"
	"github.com/imedwei/backupdbtool/internal/health"
	"github.com/imedwei/backupdbtool/internal/metrics"
	"github.com/imedwei/backupdbtool/internal/storage"
	"github.com/imedwei/backupdbtool/internal/utils"
)

// Workflow names used in logs, metrics and the health tracker.
const (
	WorkflowBackup = "backup"
	WorkflowUpload = "upload"
	WorkflowDelete = "delete"
	WorkflowList   = "list"
)

// Orchestrator coordinates the backup workflows.
type Orchestrator struct {
	config   *config.Config
	dumper   Dumper
	archiver Archiver
	storage  storage.Storage
	tracker  *health.Tracker
	now      func() time.Time
	logger   *slog.Logger
}

// NewOrchestrator creates a new backup orchestrator.
func NewOrchestrator(cfg *config.Config, dumper Dumper, archiver Archiver, store storage.Storage, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		config:   cfg,
		dumper:   dumper,
		archiver: archiver,
		storage:  store,
		tracker:  health.NewTracker(),
		now:      time.Now,
		logger:   logger.With("component", "orchestrator"),
	}
}

// Tracker returns the health tracker updated by every workflow.
func (o *Orchestrator) Tracker() *health.Tracker {
	return o.tracker
}

// Backup dumps database, archives the dump and removes the raw dump.
// It returns the archive path.
func (o *Orchestrator) Backup(ctx context.Context, database string) (archivePath string, err error) {
	o.begin(WorkflowBackup)
	defer func() { o.end(WorkflowBackup, err) }()

	startTime := o.now()
	backupDir := o.config.BackupDir()
	o.logger.Info("Starting backup", "database", database, "engine", o.dumper.Engine(), "backup_dir", backupDir)

	if inspector, ok := o.dumper.(Inspector); ok {
		_ = o.stage("inspect", func() error {
			info, err := inspector.Inspect(ctx, database)
			if err != nil {
				// Continue without info
				o.logger.Warn("Failed to get database info", "database", database, "error", err)
				return nil
			}
			o.logger.Info("Database info",
				"name", info.Name,
				"size_bytes", info.Size,
				"size", utils.FormatBytes(info.Size),
				"version", info.Version,
			)
			metrics.DatabaseSize.WithLabelValues(database).Set(float64(info.Size))
			return nil
		})
	}

	var dumpPath string
	err = o.stage("dump", func() error {
		var err error
		dumpPath, err = o.dumper.Backup(ctx, database, backupDir)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to dump database: %w", err)
	}
	o.logger.Info("Database dump created", "path", dumpPath)

	err = o.stage("archive", func() error {
		var err error
		archivePath, err = o.archiver.CompressAndEncrypt(ctx, dumpPath, o.config.App.CompressPassword)
		return err
	})
	if err != nil {
		// The dump stays on disk for inspection or a manual retry
		return "", fmt.Errorf("failed to archive dump %s: %w", dumpPath, err)
	}

	if info, statErr := os.Stat(archivePath); statErr == nil {
		metrics.ArchiveSize.Set(float64(info.Size()))
		o.logger.Info("Backup archived", "path", archivePath, "size", utils.FormatBytes(info.Size()))
	}

	if err := os.Remove(dumpPath); err != nil {
		o.logger.Error("Failed to remove raw dump", "path", dumpPath, "error", err)
	}

	o.logger.Info("Backup completed successfully",
		"database", database,
		"archive", archivePath,
		"duration", o.now().Sub(startTime),
	)
	return archivePath, nil
}

// Upload sends file to storage, or every local archive when all is set.
func (o *Orchestrator) Upload(ctx context.Context, file string, all bool) (err error) {
	if file == "" && !all {
		return fmt.Errorf("%w: specify either a file or all", ErrUsage)
	}

	o.begin(WorkflowUpload)
	defer func() { o.end(WorkflowUpload, err) }()

	prefix := o.config.App.CosPath

	if file != "" {
		if _, statErr := os.Stat(file); statErr != nil {
			if errors.Is(statErr, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrFileNotFound, file)
			}
			return fmt.Errorf("failed to stat %s: %w", file, statErr)
		}

		err = o.stage("upload", func() error {
			return o.storage.Upload(ctx, file, prefix)
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", file, err)
		}
		o.logger.Info("File uploaded successfully", "file", file, "key", storage.ObjectKey(prefix, file))
		return nil
	}

	uploader := NewBulkUploader(o.storage, o.config.App.UploadConcurrency, o.logger)
	var uploaded []string
	err = o.stage("upload", func() error {
		var err error
		uploaded, err = uploader.UploadAll(ctx, o.config.BackupDir(), prefix)
		return err
	})
	if err != nil {
		return err
	}

	o.logger.Info("All backups uploaded successfully", "count", len(uploaded))
	return nil
}

// Delete applies the local cleanup policy, then deletes key or prunes every
// remote object older than the retention cutoff when all is set.
func (o *Orchestrator) Delete(ctx context.Context, key string, all bool) (err error) {
	if key == "" && !all {
		return fmt.Errorf("%w: specify either a key or all", ErrUsage)
	}

	o.begin(WorkflowDelete)
	defer func() { o.end(WorkflowDelete, err) }()

	retention := NewRetention(o.storage, o.logger)

	_ = o.stage("local_cleanup", func() error {
		removed := retention.CleanupLocal(o.config.BackupDir(), o.config.App.LocalCleanup)
		o.logger.Info("Local cleanup finished", "policy", o.config.App.LocalCleanup, "removed", removed)
		return nil
	})

	if key != "" {
		err = o.stage("delete", func() error {
			return o.storage.Delete(ctx, key)
		})
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		o.logger.Info("File deleted successfully", "key", key)
		return nil
	}

	var deleted []string
	err = o.stage("prune", func() error {
		var err error
		deleted, err = retention.PruneRemote(ctx, o.config.App.CosPath, o.now())
		return err
	})
	if err != nil {
		return err
	}

	o.logger.Info("Stale backups deleted successfully",
		"deleted_count", len(deleted),
		"cutoff", utils.RetentionCutoff(o.now()))
	return nil
}

// List returns the stored backups, newest first.
func (o *Orchestrator) List(ctx context.Context) (objects []storage.ObjectInfo, err error) {
	o.begin(WorkflowList)
	defer func() { o.end(WorkflowList, err) }()

	pattern := o.config.App.CosPath
	if o.config.App.CosProvider == config.ProviderLocal {
		pattern = utils.ArchiveGlob
	}

	objects, err = o.storage.List(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return objects, nil
}

func (o *Orchestrator) begin(workflow string) {
	o.tracker.Start(workflow)
	metrics.Info.WithLabelValues(utils.Version, o.storage.Name(), o.config.App.DBType).Set(1)
}

func (o *Orchestrator) end(workflow string, err error) {
	o.tracker.Finish(err)
	metrics.RecordWorkflow(workflow, err == nil)
}

// stage runs fn as a named pipeline stage.
func (o *Orchestrator) stage(name string, fn func() error) error {
	o.tracker.Stage(name)
	start := o.now()
	err := fn()
	metrics.ObserveStage(name, o.now().Sub(start))
	return err
}
