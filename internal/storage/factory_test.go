package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"testing"
	"time"

	"github.com/imedwei/backupdbtool/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStorage is a mock implementation for testing retry logic.
type mockStorage struct {
	uploadCalls int
	uploadErr   error
	deleteCalls int
	deleteErr   error
	listCalls   int
	listErr     error
	listResult  []ObjectInfo
}

func (m *mockStorage) Name() string { return "mock" }

func (m *mockStorage) Upload(ctx context.Context, localPath, prefix string) error {
	m.uploadCalls++
	return m.uploadErr
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	m.deleteCalls++
	return m.deleteErr
}

func (m *mockStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	m.listCalls++
	return m.listResult, m.listErr
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: 1 * time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryableStorage_Upload(t *testing.T) {
	tests := []struct {
		name        string
		uploadErr   error
		maxAttempts int
		wantCalls   int
		wantErr     bool
	}{
		{
			name:        "success on first attempt",
			uploadErr:   nil,
			maxAttempts: 3,
			wantCalls:   1,
			wantErr:     false,
		},
		{
			name:        "failure after max attempts",
			uploadErr:   errors.New("upload failed"),
			maxAttempts: 3,
			wantCalls:   3,
			wantErr:     true,
		},
		{
			name:        "single attempt",
			uploadErr:   errors.New("upload failed"),
			maxAttempts: 1,
			wantCalls:   1,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockStorage{uploadErr: tt.uploadErr}
			retryable := NewRetryableStorage(mock, fastRetry(tt.maxAttempts), testLogger())

			err := retryable.Upload(context.Background(), "db_20240101_000000.7z", "db/")

			if (err != nil) != tt.wantErr {
				t.Errorf("Upload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, tt.uploadErr) {
				t.Errorf("Upload() error = %v, want wrapped %v", err, tt.uploadErr)
			}
			if mock.uploadCalls != tt.wantCalls {
				t.Errorf("Upload() calls = %v, want %v", mock.uploadCalls, tt.wantCalls)
			}
		})
	}
}

func TestRetryableStorage_ListAndDelete(t *testing.T) {
	want := []ObjectInfo{{Key: "db/a.7z", Size: 1}}
	mock := &mockStorage{listResult: want, deleteErr: errors.New("delete failed")}
	retryable := NewRetryableStorage(mock, fastRetry(2), testLogger())

	got, err := retryable.List(context.Background(), "db/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].Key != "db/a.7z" {
		t.Errorf("List() = %v, want %v", got, want)
	}

	if err := retryable.Delete(context.Background(), "db/a.7z"); err == nil {
		t.Error("Delete() expected error")
	}
	if mock.deleteCalls != 2 {
		t.Errorf("Delete() calls = %v, want 2", mock.deleteCalls)
	}
	if retryable.Name() != "mock" {
		t.Errorf("Name() = %v, want mock", retryable.Name())
	}
}

func TestRetryableStorage_MissingIsNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "missing object", err: newError("mock", "delete", "db/a.7z", ErrNotFound)},
		{name: "missing local file", err: newError("mock", "upload", "db/a.7z", &fs.PathError{Op: "open", Path: "a.7z", Err: fs.ErrNotExist})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockStorage{uploadErr: tt.err, deleteErr: tt.err}
			retryable := NewRetryableStorage(mock, fastRetry(3), testLogger())

			if err := retryable.Delete(context.Background(), "db/a.7z"); !errors.Is(err, tt.err) {
				t.Errorf("Delete() error = %v, want %v", err, tt.err)
			}
			if err := retryable.Upload(context.Background(), "a.7z", "db/"); !errors.Is(err, tt.err) {
				t.Errorf("Upload() error = %v, want %v", err, tt.err)
			}
			if mock.deleteCalls != 1 || mock.uploadCalls != 1 {
				t.Errorf("calls = delete %d, upload %d, want 1 each", mock.deleteCalls, mock.uploadCalls)
			}
		})
	}
}

type closingStorage struct {
	mockStorage
	closed int
}

func (c *closingStorage) Close() error {
	c.closed++
	return nil
}

func TestStorageWrappersForwardClose(t *testing.T) {
	inner := &closingStorage{}
	wrapped := NewRetryableStorage(instrumentedStorage{Storage: inner}, fastRetry(2), testLogger())

	if err := wrapped.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if inner.closed != 1 {
		t.Errorf("inner Close() calls = %d, want 1", inner.closed)
	}

	if err := (instrumentedStorage{Storage: &mockStorage{}}).Close(); err != nil {
		t.Errorf("Close() of provider without a client error = %v", err)
	}
}

func TestRetryableStorage_ContextCancellation(t *testing.T) {
	mock := &mockStorage{uploadErr: errors.New("upload failed")}
	config := RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
	retryable := NewRetryableStorage(mock, config, testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := retryable.Upload(ctx, "db_20240101_000000.7z", "db/")

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if mock.uploadCalls >= config.MaxAttempts {
		t.Errorf("Upload() should have been cancelled, but made %v calls", mock.uploadCalls)
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %v, want 3", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != 1*time.Second {
		t.Errorf("InitialDelay = %v, want 1s", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 10*time.Second {
		t.Errorf("MaxDelay = %v, want 10s", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2.0", cfg.Multiplier)
	}
}

func localConfig(t *testing.T) *config.Config {
	return &config.Config{
		App: config.AppConfig{
			BackupDir:            t.TempDir(),
			CosProvider:          config.ProviderLocal,
			StorageRetryAttempts: 1,
		},
	}
}

func TestNewStorage(t *testing.T) {
	t.Run("local without retry", func(t *testing.T) {
		s, err := NewStorage(context.Background(), localConfig(t), testLogger())
		if err != nil {
			t.Fatalf("NewStorage() error = %v", err)
		}
		if _, ok := s.(*RetryableStorage); ok {
			t.Error("NewStorage() installed retry wrapper for a single attempt")
		}
		if s.Name() != "local" {
			t.Errorf("Name() = %v, want local", s.Name())
		}
	})

	t.Run("local with retry", func(t *testing.T) {
		cfg := localConfig(t)
		cfg.App.StorageRetryAttempts = 3

		s, err := NewStorage(context.Background(), cfg, testLogger())
		if err != nil {
			t.Fatalf("NewStorage() error = %v", err)
		}
		r, ok := s.(*RetryableStorage)
		if !ok {
			t.Fatalf("NewStorage() = %T, want *RetryableStorage", s)
		}
		if r.config.MaxAttempts != 3 {
			t.Errorf("MaxAttempts = %v, want 3", r.config.MaxAttempts)
		}
	})

	t.Run("unsupported provider", func(t *testing.T) {
		cfg := localConfig(t)
		cfg.App.CosProvider = "dropbox"

		if _, err := NewStorage(context.Background(), cfg, testLogger()); err == nil {
			t.Error("NewStorage() expected error for unsupported provider")
		}
	})

	t.Run("invalid gcs service account", func(t *testing.T) {
		cfg := localConfig(t)
		cfg.App.CosProvider = config.ProviderGCS
		cfg.GCS = config.GCSConfig{Bucket: "b", ServiceAccountJSON: `{"type":"user"}`}

		if _, err := NewStorage(context.Background(), cfg, testLogger()); err == nil {
			t.Error("NewStorage() expected error for invalid service account")
		}
	})

	t.Run("tencent cos", func(t *testing.T) {
		cfg := localConfig(t)
		cfg.App.CosProvider = config.ProviderTencentCOS
		cfg.TencentCOS = config.TencentCOSConfig{SecretID: "id", SecretKey: "key", Region: "ap-guangzhou", Bucket: "b-125"}

		s, err := NewStorage(context.Background(), cfg, testLogger())
		if err != nil {
			t.Fatalf("NewStorage() error = %v", err)
		}
		if s.Name() != "tencent_cos" {
			t.Errorf("Name() = %v, want tencent_cos", s.Name())
		}
	})
}

func TestValidateServiceAccountJSON(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{name: "valid", json: `{"type":"service_account","project_id":"p"}`},
		{name: "wrong type", json: `{"type":"authorized_user"}`, wantErr: true},
		{name: "malformed", json: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceAccountJSON(tt.json)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServiceAccountJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
