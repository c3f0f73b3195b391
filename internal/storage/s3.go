package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// defaultS3Region is used for custom endpoints configured without a region.
const defaultS3Region = "us-east-1"

// S3Storage implements Storage interface for S3-compatible object stores.
type S3Storage struct {
	client        *s3.Client
	uploader      *manager.Uploader
	bucket        string
	legacy        *legacyLister
	legacyListing bool
	logger        *slog.Logger
}

// S3Config holds S3-specific configuration.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	Endpoint        string // Optional custom endpoint
	UsePathStyle    bool   // For S3-compatible services
	LegacyListing   bool   // Always list through the raw XML path
}

// NewS3Storage creates a new S3 storage provider.
func NewS3Storage(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Storage, error) {
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}

	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	// Create AWS config
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(creds),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = cfg.UsePathStyle
		},
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	// A single upload goroutine; part size is raised per upload so the
	// payload always goes out as one PutObject.
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.Concurrency = 1
	})

	logger = logger.With("component", "storage", "provider", "s3")

	legacy, err := newLegacyLister(creds, cfg.Endpoint, region, cfg.Bucket, cfg.UsePathStyle, logger)
	if err != nil {
		return nil, err
	}

	return &S3Storage{
		client:        client,
		uploader:      uploader,
		bucket:        cfg.Bucket,
		legacy:        legacy,
		legacyListing: cfg.LegacyListing,
		logger:        logger,
	}, nil
}

// Name implements Storage.Name.
func (s *S3Storage) Name() string {
	return "s3"
}

// Upload implements Storage.Upload.
func (s *S3Storage) Upload(ctx context.Context, localPath, prefix string) error {
	key := ObjectKey(prefix, localPath)

	data, err := readPayload(localPath)
	if err != nil {
		return newError(s.Name(), "upload", key, err)
	}

	partSize := int64(len(data)) + 1
	if partSize < manager.MinUploadPartSize {
		partSize = manager.MinUploadPartSize
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}, func(u *manager.Uploader) {
		u.PartSize = partSize
	})
	if err != nil {
		return newError(s.Name(), "upload", key, err)
	}

	return nil
}

// Delete implements Storage.Delete. S3 reports success for missing keys.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return newError(s.Name(), "delete", key, err)
	}

	return nil
}

// List implements Storage.List. Responses the typed client cannot
// deserialize are re-read through the raw XML listing.
func (s *S3Storage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if s.legacyListing {
		return s.listLegacy(ctx, prefix)
	}

	objects, err := s.listV2(ctx, prefix)
	if err != nil {
		var de *smithy.DeserializationError
		if errors.As(err, &de) {
			s.logger.Warn("Typed listing could not be decoded, falling back to raw XML", "error", err)
			return s.listLegacy(ctx, prefix)
		}
		return nil, newError(s.Name(), "list", prefix, err)
	}

	SortNewestFirst(objects)
	return objects, nil
}

func (s *S3Storage) listV2(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Contents {
			if obj.LastModified == nil {
				s.logger.Warn("Dropping object without timestamp", "key", aws.ToString(obj.Key))
				continue
			}
			objects = append(objects, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: obj.LastModified.UTC(),
			})
		}
	}

	return objects, nil
}

func (s *S3Storage) listLegacy(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects, err := s.legacy.list(ctx, prefix)
	if err != nil {
		return nil, newError(s.Name(), "list", prefix, err)
	}
	SortNewestFirst(objects)
	return objects, nil
}
