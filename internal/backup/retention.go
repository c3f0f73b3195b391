package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/imedwei/backupdbtool/internal/config"
	"github.com/imedwei/backupdbtool/internal/metrics"
	"github.com/imedwei/backupdbtool/internal/storage"
	"github.com/imedwei/backupdbtool/internal/utils"
)

// Retention removes stale backups locally and from storage.
type Retention struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewRetention creates a retention runner.
func NewRetention(store storage.Storage, logger *slog.Logger) *Retention {
	return &Retention{
		storage: store,
		logger:  logger.With("component", "retention"),
	}
}

// CleanupLocal applies policy to the archives in dir and returns how many
// were removed. The "all" policy removes every archive regardless of age.
// Failures are logged only.
func (r *Retention) CleanupLocal(dir, policy string) int {
	if policy == config.CleanupNone {
		r.logger.Info("Local cleanup disabled", "dir", dir)
		return 0
	}

	files, err := filepath.Glob(filepath.Join(dir, utils.ArchiveGlob))
	if err != nil {
		r.logger.Error("Failed to discover local archives", "dir", dir, "error", err)
		return 0
	}

	removed := 0
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			r.logger.Error("Failed to remove local archive", "file", file, "error", err)
			continue
		}
		removed++
		metrics.LocalArchivesRemoved.Inc()
		r.logger.Info("Removed local archive", "file", file)
	}
	return removed
}

// PruneRemote deletes every object under prefix with a non-zero size that was
// last modified before the start of yesterday (UTC). Deletions run one at a
// time; the first failure stops the prune. It returns the deleted keys.
func (r *Retention) PruneRemote(ctx context.Context, prefix string, now time.Time) ([]string, error) {
	objects, err := r.storage.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	cutoff := utils.RetentionCutoff(now)
	r.logger.Info("Pruning remote backups", "prefix", prefix, "cutoff", cutoff, "listed", len(objects))

	var deleted []string
	for _, obj := range objects {
		if !isStale(obj, now) {
			continue
		}

		r.logger.Info("Deleting stale backup",
			"key", obj.Key,
			"last_modified", obj.LastModified,
			"size", obj.Size,
		)
		if err := r.storage.Delete(ctx, obj.Key); err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", obj.Key, err)
		}
		deleted = append(deleted, obj.Key)
		metrics.ObjectsPruned.Inc()
	}

	return deleted, nil
}

// isStale reports whether obj falls outside the retention window.
// Zero-size objects (directory markers) are always kept.
func isStale(obj storage.ObjectInfo, now time.Time) bool {
	return obj.Size > 0 && utils.IsBeforeYesterday(obj.LastModified, now)
}
