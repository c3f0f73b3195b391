// Package backup implements the dump, archive, upload and retention workflows.
package backup

import (
	"context"
)

// Dumper produces a raw dump file for one database engine.
type Dumper interface {
	// Backup dumps databaseName into targetDir and returns the dump path.
	Backup(ctx context.Context, databaseName, targetDir string) (string, error)

	// Engine returns the database engine name.
	Engine() string
}

// Inspector is implemented by dumpers that can report database details.
type Inspector interface {
	Inspect(ctx context.Context, databaseName string) (*DatabaseInfo, error)
}

// Archiver turns a dump into an encrypted, compressed archive.
type Archiver interface {
	// CompressAndEncrypt writes the archive next to dumpPath and returns its
	// path. The dump itself is left in place.
	CompressAndEncrypt(ctx context.Context, dumpPath, password string) (string, error)
}

// DatabaseInfo contains information about the database.
type DatabaseInfo struct {
	Name    string
	Size    int64
	Version string
}
