// Package storage defines the interface for backup storage providers.
package storage

import (
	"context"
	"time"
)

// Storage defines the interface for backup storage operations.
type Storage interface {
	// Upload stores the local file under prefix, keyed by its base name.
	Upload(ctx context.Context, localPath, prefix string) error

	// List returns the objects matching prefix, newest first. The local
	// provider treats prefix as a glob pattern relative to its base directory.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Delete removes exactly one object by key.
	Delete(ctx context.Context, key string) error

	// Name returns the provider name used in logs and metrics.
	Name() string
}

// ObjectInfo contains information about a stored backup.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}
