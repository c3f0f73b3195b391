package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePath_Existing(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "testfile.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ResolvePath(file)
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("ResolvePath() = %v, want absolute path", got)
	}

	want, _ := filepath.EvalSymlinks(file)
	if got != want {
		t.Errorf("ResolvePath() = %v, want %v", got, want)
	}
}

func TestResolvePath_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "not_exist.txt")

	got, err := ResolvePath(missing)
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if got != missing {
		t.Errorf("ResolvePath() = %v, want %v", got, missing)
	}
}

func TestResolvePath_Tilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ResolvePath("~/testfile")
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if want := filepath.Join(home, "testfile"); got != want {
		t.Errorf("ResolvePath() = %v, want %v", got, want)
	}

	got, err = ResolvePath("~")
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(home)
	if got != want {
		t.Errorf("ResolvePath(~) = %v, want %v", got, want)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.0 kB"},
		{1500000, "1.5 MB"},
		{3 * 1000 * 1000 * 1000, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
