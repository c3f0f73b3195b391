package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage on a directory of the local filesystem.
type LocalStorage struct {
	base   string
	logger *slog.Logger
}

// NewLocalStorage creates a local storage provider rooted at baseDir.
func NewLocalStorage(baseDir string, logger *slog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		base:   baseDir,
		logger: logger.With("component", "storage", "provider", "local"),
	}, nil
}

// Name implements Storage.Name.
func (l *LocalStorage) Name() string {
	return "local"
}

// Upload copies the file into base/prefix. A file already at its
// destination is left untouched.
func (l *LocalStorage) Upload(ctx context.Context, localPath, prefix string) error {
	key := ObjectKey(prefix, localPath)
	dst := l.path(key)

	src, err := os.Stat(localPath)
	if err != nil {
		return newError(l.Name(), "upload", key, err)
	}
	if existing, err := os.Stat(dst); err == nil && os.SameFile(src, existing) {
		l.logger.Debug("File already in place", "key", key)
		return nil
	}

	data, err := readPayload(localPath)
	if err != nil {
		return newError(l.Name(), "upload", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return newError(l.Name(), "upload", key, err)
	}

	tmp := dst + ".partial"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return newError(l.Name(), "upload", key, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return newError(l.Name(), "upload", key, err)
	}

	return nil
}

// List implements Storage.List. The pattern is a glob relative to the base
// directory; a pattern ending in "/" lists the files of that directory.
func (l *LocalStorage) List(ctx context.Context, pattern string) ([]ObjectInfo, error) {
	if pattern == "" || strings.HasSuffix(pattern, "/") {
		pattern += "*"
	}

	matches, err := filepath.Glob(l.path(pattern))
	if err != nil {
		return nil, newError(l.Name(), "list", pattern, err)
	}

	objects := make([]ObjectInfo, 0, len(matches))
	for _, match := range matches {
		info, err := os.Lstat(match)
		if err != nil {
			return nil, newError(l.Name(), "list", pattern, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		rel, err := filepath.Rel(l.base, match)
		if err != nil {
			return nil, newError(l.Name(), "list", pattern, err)
		}

		objects = append(objects, ObjectInfo{
			Key:          filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
		})
	}

	SortNewestFirst(objects)
	return objects, nil
}

// Delete implements Storage.Delete. Deleting a missing key is an error.
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(l.path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newError(l.Name(), "delete", key, ErrNotFound)
		}
		return newError(l.Name(), "delete", key, err)
	}
	return nil
}

func (l *LocalStorage) path(key string) string {
	return filepath.Join(l.base, filepath.FromSlash(key))
}
