// Package utils provides utility functions for the backup tool.
package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DumpExt is the extension of raw dump files.
	DumpExt = ".sql"
	// ArchiveExt is the extension of encrypted archives.
	ArchiveExt = ".7z"
	// ArchiveGlob matches every archive in a backup directory.
	ArchiveGlob = "*" + ArchiveExt

	timestampLayout = "20060102_150405"
)

// DumpFilename creates the dump filename for a database.
// Format: {database}_{YYYYMMDD_HHMMSS}.sql in UTC. Two dumps of the same
// database within the same second share a name.
func DumpFilename(database string, timestamp time.Time) string {
	return fmt.Sprintf("%s_%s%s", database, timestamp.UTC().Format(timestampLayout), DumpExt)
}

// ArchivePath returns the archive path for a dump, replacing its extension.
func ArchivePath(dumpPath string) string {
	return strings.TrimSuffix(dumpPath, filepath.Ext(dumpPath)) + ArchiveExt
}

// ParseDumpTimestamp extracts the timestamp from a dump or archive filename.
func ParseDumpTimestamp(filename string) (time.Time, error) {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	if len(name) < len(timestampLayout)+2 {
		return time.Time{}, fmt.Errorf("filename too short to contain timestamp: %s", filename)
	}

	sep := len(name) - len(timestampLayout) - 1
	if name[sep] != '_' {
		return time.Time{}, fmt.Errorf("invalid timestamp format: %s", filename)
	}

	t, err := time.Parse(timestampLayout, name[sep+1:])
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
