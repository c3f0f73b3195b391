package backup

import (
	"errors"
	"testing"
)

func TestParsePGVersion(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantMajor int
		wantMinor int
		wantErr   bool
	}{
		{
			name:      "PostgreSQL 16",
			input:     "PostgreSQL 16.2 on x86_64-pc-linux-gnu, compiled by gcc",
			wantMajor: 16,
			wantMinor: 2,
		},
		{
			name:      "PostgreSQL 15",
			input:     "PostgreSQL 15.5 (Debian 15.5-1.pgdg120+1)",
			wantMajor: 15,
			wantMinor: 5,
		},
		{
			name:      "PostgreSQL 17",
			input:     "PostgreSQL 17.0",
			wantMajor: 17,
			wantMinor: 0,
		},
		{
			name:    "not postgres",
			input:   "8.0.36 MySQL Community Server",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePGVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePGVersion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Major != tt.wantMajor || got.Minor != tt.wantMinor {
				t.Errorf("ParsePGVersion() = %d.%d, want %d.%d", got.Major, got.Minor, tt.wantMajor, tt.wantMinor)
			}
		})
	}
}

func TestFindBestPGDump(t *testing.T) {
	tests := []struct {
		name      string
		major     int
		installed []string
		want      string
	}{
		{name: "exact match", major: 16, installed: []string{"pg_dump15", "pg_dump16", "pg_dump17"}, want: "pg_dump16"},
		{name: "closest newer", major: 15, installed: []string{"pg_dump16", "pg_dump17"}, want: "pg_dump16"},
		{name: "old server uses oldest known", major: 12, installed: []string{"pg_dump15"}, want: "pg_dump15"},
		{name: "newer server falls back", major: 18, installed: []string{"pg_dump17"}, want: "pg_dump"},
		{name: "nothing versioned", major: 16, want: "pg_dump"},
		{name: "older binary is never chosen", major: 17, installed: []string{"pg_dump16"}, want: "pg_dump"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookPath := func(bin string) (string, error) {
				for _, b := range tt.installed {
					if b == bin {
						return "/usr/bin/" + bin, nil
					}
				}
				return "", errors.New("not found")
			}
			if got := FindBestPGDump(tt.major, lookPath); got != tt.want {
				t.Errorf("FindBestPGDump(%d) = %q, want %q", tt.major, got, tt.want)
			}
		})
	}
}
