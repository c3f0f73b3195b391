package backup

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/imedwei/backupdbtool/internal/storage"
	"github.com/imedwei/backupdbtool/internal/utils"
)

// BulkUploader uploads every local archive through one shared Storage handle
// with a bounded number of concurrent uploads.
type BulkUploader struct {
	storage     storage.Storage
	concurrency int
	logger      *slog.Logger
}

// NewBulkUploader creates a bulk uploader. Concurrency below one is treated as one.
func NewBulkUploader(store storage.Storage, concurrency int, logger *slog.Logger) *BulkUploader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BulkUploader{
		storage:     store,
		concurrency: concurrency,
		logger:      logger.With("component", "bulk-uploader"),
	}
}

// UploadAll uploads each archive directly inside dir (non-recursive) to
// prefix. Every file is attempted; failures are returned together as
// UploadErrors and do not affect sibling uploads.
func (u *BulkUploader) UploadAll(ctx context.Context, dir, prefix string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, utils.ArchiveGlob))
	if err != nil {
		return nil, fmt.Errorf("failed to discover archives: %w", err)
	}

	u.logger.Info("Uploading local archives", "count", len(files), "dir", dir, "concurrency", u.concurrency)

	var (
		mu       sync.Mutex
		uploaded []string
		failures UploadErrors
	)

	// Tasks never return an error so one failure does not cancel the rest.
	g := new(errgroup.Group)
	g.SetLimit(u.concurrency)

	for _, file := range files {
		g.Go(func() error {
			if err := u.storage.Upload(ctx, file, prefix); err != nil {
				u.logger.Error("Failed to upload archive", "file", file, "error", err)
				mu.Lock()
				failures = append(failures, FileError{File: file, Err: err})
				mu.Unlock()
				return nil
			}

			u.logger.Info("Archive uploaded", "file", file, "key", storage.ObjectKey(prefix, file))
			mu.Lock()
			uploaded = append(uploaded, file)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(uploaded)
	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].File < failures[j].File })
		return uploaded, failures
	}
	return uploaded, nil
}
