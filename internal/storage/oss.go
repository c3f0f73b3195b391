package storage

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// ossMaxKeys is the page size requested per ListObjectsV2 call.
const ossMaxKeys = 1000

// OSSStorage implements Storage interface for Aliyun OSS.
type OSSStorage struct {
	bucket *oss.Bucket
	logger *slog.Logger
}

// OSSConfig holds OSS-specific configuration.
type OSSConfig struct {
	AccessKeyID     string
	AccessKeySecret string
	Endpoint        string
	Bucket          string
}

// NewOSSStorage creates a new Aliyun OSS storage provider.
func NewOSSStorage(cfg OSSConfig, logger *slog.Logger) (*OSSStorage, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open OSS bucket: %w", err)
	}

	return &OSSStorage{
		bucket: bucket,
		logger: logger.With("component", "storage", "provider", "aliyun_oss"),
	}, nil
}

// Name implements Storage.Name.
func (o *OSSStorage) Name() string {
	return "aliyun_oss"
}

// Upload implements Storage.Upload.
func (o *OSSStorage) Upload(ctx context.Context, localPath, prefix string) error {
	key := ObjectKey(prefix, localPath)

	data, err := readPayload(localPath)
	if err != nil {
		return newError(o.Name(), "upload", key, err)
	}

	if err := o.bucket.PutObject(key, bytes.NewReader(data), oss.WithContext(ctx)); err != nil {
		return newError(o.Name(), "upload", key, err)
	}

	return nil
}

// ossListResult mirrors a ListObjectsV2 page. LastModified stays a string
// so one malformed entry drops that object instead of failing the page.
type ossListResult struct {
	XMLName               xml.Name    `xml:"ListBucketResult"`
	IsTruncated           bool        `xml:"IsTruncated"`
	NextContinuationToken string      `xml:"NextContinuationToken"`
	Contents              []ossObject `xml:"Contents"`
}

type ossObject struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	Size         int64  `xml:"Size"`
}

// List implements Storage.List.
func (o *OSSStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	token := ""

	for {
		page, err := o.listPage(ctx, prefix, token)
		if err != nil {
			return nil, newError(o.Name(), "list", prefix, err)
		}

		for _, obj := range page.Contents {
			key, err := url.QueryUnescape(obj.Key)
			if err != nil {
				o.logger.Warn("Dropping object with undecodable key", "key", obj.Key, "error", err)
				continue
			}
			lastModified, ok := parseLastModified(o.logger, key, obj.LastModified)
			if !ok {
				continue
			}
			objects = append(objects, ObjectInfo{
				Key:          key,
				Size:         obj.Size,
				LastModified: lastModified,
			})
		}

		if !page.IsTruncated {
			break
		}

		next, err := url.QueryUnescape(page.NextContinuationToken)
		if err != nil {
			return nil, newError(o.Name(), "list", prefix, fmt.Errorf("invalid continuation token: %w", err))
		}
		if next == "" || next == token {
			return nil, newError(o.Name(), "list", prefix, fmt.Errorf("truncated listing without a continuation marker"))
		}
		token = next
	}

	SortNewestFirst(objects)
	return objects, nil
}

// listPage sends one signed ListObjectsV2 request and decodes the page.
func (o *OSSStorage) listPage(ctx context.Context, prefix, token string) (*ossListResult, error) {
	opts := []oss.Option{
		oss.Prefix(prefix),
		oss.MaxKeys(ossMaxKeys),
		oss.ListType(2),
		oss.EncodingType("url"),
	}
	if token != "" {
		opts = append(opts, oss.ContinuationToken(token))
	}
	params, err := oss.GetRawParams(opts)
	if err != nil {
		return nil, err
	}

	resp, err := o.bucket.Client.Conn.DoWithContext(ctx, http.MethodGet, o.bucket.BucketName, "", params, nil, nil, 0, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := oss.CheckRespCode(resp.StatusCode, []int{http.StatusOK}); err != nil {
		return nil, err
	}

	var page ossListResult
	if err := xml.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	return &page, nil
}

// Delete implements Storage.Delete. Missing keys are treated as deleted.
func (o *OSSStorage) Delete(ctx context.Context, key string) error {
	if err := o.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		var svcErr oss.ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode == http.StatusNotFound {
			o.logger.Debug("Object already absent", "key", key)
			return nil
		}
		return newError(o.Name(), "delete", key, err)
	}
	return nil
}
