package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	cos "github.com/tencentyun/cos-go-sdk-v5"
)

// cosMaxKeys is the page size requested from Bucket.Get.
const cosMaxKeys = 1000

// COSStorage implements Storage interface for Tencent Cloud COS.
type COSStorage struct {
	client *cos.Client
	logger *slog.Logger
}

// COSConfig holds COS-specific configuration.
type COSConfig struct {
	SecretID  string
	SecretKey string
	Region    string
	Bucket    string // Includes the APPID suffix, e.g. backups-1250000000
}

// NewCOSStorage creates a new Tencent COS storage provider.
func NewCOSStorage(cfg COSConfig, logger *slog.Logger) (*COSStorage, error) {
	u, err := url.Parse(fmt.Sprintf("https://%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("invalid COS bucket URL: %w", err)
	}
	return newCOSStorage(u, cfg.SecretID, cfg.SecretKey, logger), nil
}

func newCOSStorage(bucketURL *url.URL, secretID, secretKey string, logger *slog.Logger) *COSStorage {
	client := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  secretID,
			SecretKey: secretKey,
		},
	})

	return &COSStorage{
		client: client,
		logger: logger.With("component", "storage", "provider", "tencent_cos"),
	}
}

// Name implements Storage.Name.
func (c *COSStorage) Name() string {
	return "tencent_cos"
}

// Upload implements Storage.Upload.
func (c *COSStorage) Upload(ctx context.Context, localPath, prefix string) error {
	key := ObjectKey(prefix, localPath)

	data, err := readPayload(localPath)
	if err != nil {
		return newError(c.Name(), "upload", key, err)
	}

	if _, err := c.client.Object.Put(ctx, key, bytes.NewReader(data), nil); err != nil {
		return newError(c.Name(), "upload", key, err)
	}

	return nil
}

// List implements Storage.List.
func (c *COSStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	marker := ""

	for {
		result, _, err := c.client.Bucket.Get(ctx, &cos.BucketGetOptions{
			Prefix:  prefix,
			Marker:  marker,
			MaxKeys: cosMaxKeys,
		})
		if err != nil {
			return nil, newError(c.Name(), "list", prefix, err)
		}

		for _, obj := range result.Contents {
			lastModified, ok := parseLastModified(c.logger, obj.Key, obj.LastModified)
			if !ok {
				continue
			}
			objects = append(objects, ObjectInfo{
				Key:          obj.Key,
				Size:         obj.Size,
				LastModified: lastModified,
			})
		}

		if !result.IsTruncated {
			break
		}

		next := result.NextMarker
		if next == "" && len(result.Contents) > 0 {
			next = result.Contents[len(result.Contents)-1].Key
		}
		if next == "" || next == marker {
			return nil, newError(c.Name(), "list", prefix, fmt.Errorf("truncated listing without a continuation marker"))
		}
		marker = next
	}

	SortNewestFirst(objects)
	return objects, nil
}

// Delete implements Storage.Delete. Missing keys are treated as deleted.
func (c *COSStorage) Delete(ctx context.Context, key string) error {
	if _, err := c.client.Object.Delete(ctx, key); err != nil {
		if cos.IsNotFoundError(err) {
			c.logger.Debug("Object already absent", "key", key)
			return nil
		}
		return newError(c.Name(), "delete", key, err)
	}
	return nil
}
