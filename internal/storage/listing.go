package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ObjectKey returns the remote key for localPath under prefix.
func ObjectKey(prefix, localPath string) string {
	name := filepath.Base(localPath)
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix + name
	}
	return prefix + "/" + name
}

// SortNewestFirst orders objects by LastModified, most recent first.
func SortNewestFirst(objects []ObjectInfo) {
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
}

// parseLastModified parses an RFC3339 listing timestamp. Unparsable entries
// are logged and reported as not ok so the caller drops them.
func parseLastModified(logger *slog.Logger, key, value string) (time.Time, bool) {
	return parseTimestamp(logger, key, value, time.RFC3339)
}

// parseTimestamp is parseLastModified for providers with another layout.
func parseTimestamp(logger *slog.Logger, key, value, layout string) (time.Time, bool) {
	t, err := time.Parse(layout, value)
	if err != nil {
		logger.Warn("Dropping object with unparsable timestamp",
			"key", key,
			"error", &ParseError{Key: key, Value: value, Err: err})
		return time.Time{}, false
	}
	return t.UTC(), true
}

// readPayload loads the whole file to be sent in a single request.
func readPayload(localPath string) ([]byte, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	return data, nil
}
