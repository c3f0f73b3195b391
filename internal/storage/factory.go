package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/imedwei/backupdbtool/internal/config"
	"github.com/imedwei/backupdbtool/internal/metrics"
)

// RetryConfig holds retry configuration for storage operations.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the backoff used when retries are enabled.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryableStorage wraps a Storage implementation with retry logic.
type RetryableStorage struct {
	storage Storage
	config  RetryConfig
	logger  *slog.Logger
}

// NewRetryableStorage creates a new storage wrapper with retry logic.
func NewRetryableStorage(storage Storage, config RetryConfig, logger *slog.Logger) *RetryableStorage {
	return &RetryableStorage{
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

// Name implements Storage.Name.
func (r *RetryableStorage) Name() string {
	return r.storage.Name()
}

// Upload implements Storage.Upload with retry logic.
func (r *RetryableStorage) Upload(ctx context.Context, localPath, prefix string) error {
	return r.retry(ctx, "upload", func() error {
		return r.storage.Upload(ctx, localPath, prefix)
	})
}

// Delete implements Storage.Delete with retry logic.
func (r *RetryableStorage) Delete(ctx context.Context, key string) error {
	return r.retry(ctx, "delete", func() error {
		return r.storage.Delete(ctx, key)
	})
}

// List implements Storage.List with retry logic.
func (r *RetryableStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var result []ObjectInfo
	err := r.retry(ctx, "list", func() error {
		var err error
		result, err = r.storage.List(ctx, prefix)
		return err
	})
	return result, err
}

// Close implements io.Closer.
func (r *RetryableStorage) Close() error {
	return closeStorage(r.storage)
}

// retry executes a function with exponential backoff retry logic. Missing
// objects are returned at once since another attempt cannot find them.
func (r *RetryableStorage) retry(ctx context.Context, op string, fn func() error) error {
	delay := r.config.InitialDelay

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return err
		}

		if attempt >= r.config.MaxAttempts {
			return fmt.Errorf("operation failed after %d attempts: %w", attempt, err)
		}

		r.logger.Warn("Storage operation failed, retrying",
			"operation", op,
			"attempt", attempt,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * r.config.Multiplier)
		if delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}
}

// instrumentedStorage records every provider call in the storage metrics.
type instrumentedStorage struct {
	Storage
}

func (s instrumentedStorage) Upload(ctx context.Context, localPath, prefix string) error {
	err := s.Storage.Upload(ctx, localPath, prefix)
	metrics.RecordStorageOperation("upload", s.Name(), err == nil)
	if err == nil {
		if info, statErr := os.Stat(localPath); statErr == nil {
			metrics.UploadedBytes.WithLabelValues(s.Name()).Add(float64(info.Size()))
		}
	}
	return err
}

func (s instrumentedStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects, err := s.Storage.List(ctx, prefix)
	metrics.RecordStorageOperation("list", s.Name(), err == nil)
	return objects, err
}

func (s instrumentedStorage) Delete(ctx context.Context, key string) error {
	err := s.Storage.Delete(ctx, key)
	metrics.RecordStorageOperation("delete", s.Name(), err == nil)
	return err
}

func (s instrumentedStorage) Close() error {
	return closeStorage(s.Storage)
}

// closeStorage releases s when the provider holds a client that needs closing.
func closeStorage(s Storage) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewStorage creates the storage provider selected by app.cos_provider.
func NewStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Storage, error) {
	var storage Storage
	var err error

	switch cfg.App.CosProvider {
	case config.ProviderLocal:
		storage, err = NewLocalStorage(cfg.BackupDir(), logger)

	case config.ProviderS3:
		storage, err = NewS3Storage(ctx, S3Config{
			AccessKeyID:     cfg.S3.SecretID,
			SecretAccessKey: cfg.S3.SecretKey,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.EndPoint,
			UsePathStyle:    cfg.S3.PathStyle,
			LegacyListing:   cfg.S3.LegacyListing,
		}, logger)

	case config.ProviderTencentCOS:
		storage, err = NewCOSStorage(COSConfig{
			SecretID:  cfg.TencentCOS.SecretID,
			SecretKey: cfg.TencentCOS.SecretKey,
			Region:    cfg.TencentCOS.Region,
			Bucket:    cfg.TencentCOS.Bucket,
		}, logger)

	case config.ProviderAliyunOSS:
		storage, err = NewOSSStorage(OSSConfig{
			AccessKeyID:     cfg.AliyunOSS.SecretID,
			AccessKeySecret: cfg.AliyunOSS.SecretKey,
			Endpoint:        cfg.AliyunOSS.EndPoint,
			Bucket:          cfg.AliyunOSS.Bucket,
		}, logger)

	case config.ProviderGCS:
		if cfg.GCS.ServiceAccountJSON != "" {
			if err := ValidateServiceAccountJSON(cfg.GCS.ServiceAccountJSON); err != nil {
				return nil, fmt.Errorf("invalid GCS service account: %w", err)
			}
		}
		storage, err = NewGCSStorage(ctx, GCSConfig{
			Bucket:             cfg.GCS.Bucket,
			ProjectID:          cfg.GCS.ProjectID,
			ServiceAccountJSON: cfg.GCS.ServiceAccountJSON,
		}, logger)

	case config.ProviderAzure:
		storage, err = NewAzureStorage(AzureConfig{
			AccountName: cfg.Azure.AccountName,
			AccountKey:  cfg.Azure.AccountKey,
			Container:   cfg.Azure.Container,
			Endpoint:    cfg.Azure.Endpoint,
		}, logger)

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.App.CosProvider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", cfg.App.CosProvider, err)
	}

	storage = instrumentedStorage{Storage: storage}

	if cfg.App.StorageRetryAttempts > 1 {
		retryCfg := DefaultRetryConfig()
		retryCfg.MaxAttempts = cfg.App.StorageRetryAttempts
		return NewRetryableStorage(storage, retryCfg, logger.With("component", "storage")), nil
	}

	return storage, nil
}
