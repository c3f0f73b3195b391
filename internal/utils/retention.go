package utils

import "time"

// RetentionCutoff returns the start of yesterday in UTC. This is a calendar
// boundary, not a rolling 24 hour window.
func RetentionCutoff(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d-1, 0, 0, 0, 0, time.UTC)
}

// IsBeforeYesterday reports whether ts falls before the start of yesterday (UTC).
func IsBeforeYesterday(ts, now time.Time) bool {
	return ts.UTC().Before(RetentionCutoff(now))
}
