package backup

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
)

// pgDumpVersions are the versioned pg_dump binaries probed on PATH, newest first.
var pgDumpVersions = []int{17, 16, 15}

var pgVersionRe = regexp.MustCompile(`PostgreSQL (\d+)\.(\d+)`)

// PGVersion represents a PostgreSQL version
type PGVersion struct {
	Major int
	Minor int
	Full  string
}

// ParsePGVersion parses a PostgreSQL version string such as the output of
// SELECT version().
func ParsePGVersion(versionStr string) (*PGVersion, error) {
	matches := pgVersionRe.FindStringSubmatch(versionStr)
	if len(matches) < 3 {
		return nil, fmt.Errorf("could not parse PostgreSQL version from: %s", versionStr)
	}

	major, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid major version: %s", matches[1])
	}

	minor, err := strconv.Atoi(matches[2])
	if err != nil {
		return nil, fmt.Errorf("invalid minor version: %s", matches[2])
	}

	return &PGVersion{
		Major: major,
		Minor: minor,
		Full:  versionStr,
	}, nil
}

// FindBestPGDump returns the pg_dump binary to use for a server of the given
// major version. Versioned binaries (pg_dump16) are preferred when installed
// side by side; plain pg_dump is the fallback.
func FindBestPGDump(major int, lookPath func(string) (string, error)) string {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	target := major
	if target < pgDumpVersions[len(pgDumpVersions)-1] {
		target = pgDumpVersions[len(pgDumpVersions)-1]
	}

	candidates := []string{fmt.Sprintf("pg_dump%d", target)}
	// Closest newer versions, oldest first
	for i := len(pgDumpVersions) - 1; i >= 0; i-- {
		if v := pgDumpVersions[i]; v > target {
			candidates = append(candidates, fmt.Sprintf("pg_dump%d", v))
		}
	}

	for _, bin := range candidates {
		if _, err := lookPath(bin); err == nil {
			return bin
		}
	}

	return pgDumpBinary
}
