package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath expands a leading "~" to the user's home directory and
// canonicalizes the result when it exists. Missing paths are returned as-is.
func ResolvePath(p string) (string, error) {
	resolved := p
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("finding home directory: %w", err)
		}
		resolved = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}

	if _, err := os.Stat(resolved); err != nil {
		return resolved, nil
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("could not canonicalize path: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("could not canonicalize path: %w", err)
	}
	return canonical, nil
}
