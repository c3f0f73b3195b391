package utils

import (
	"testing"
	"time"
)

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 4, 5, 0, time.UTC)
	want := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)

	if got := RetentionCutoff(now); !got.Equal(want) {
		t.Errorf("RetentionCutoff() = %v, want %v", got, want)
	}

	// Month and year boundaries roll over through time.Date normalization.
	newYear := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)
	if got := RetentionCutoff(newYear); !got.Equal(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("RetentionCutoff() across year = %v", got)
	}

	// The calendar day is taken in UTC, not in the caller's zone.
	local := time.Date(2024, 6, 2, 1, 0, 0, 0, time.FixedZone("UTC+8", 8*3600))
	if got := RetentionCutoff(local); !got.Equal(want) {
		t.Errorf("RetentionCutoff() with zone = %v, want %v", got, want)
	}
}

func TestIsBeforeYesterday(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{name: "yesterday 23:59:59", ts: time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC), want: false},
		{name: "yesterday 00:00:00", ts: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), want: false},
		{name: "two days ago 00:00:00", ts: time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC), want: true},
		{name: "two days ago 23:59:59", ts: time.Date(2024, 5, 30, 23, 59, 59, 0, time.UTC), want: true},
		{name: "today 00:00:01", ts: time.Date(2024, 6, 1, 0, 0, 1, 0, time.UTC), want: false},
		{name: "25 hours ago is still yesterday", ts: now.Add(-25 * time.Hour), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBeforeYesterday(tt.ts, now); got != tt.want {
				t.Errorf("IsBeforeYesterday(%v) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}
