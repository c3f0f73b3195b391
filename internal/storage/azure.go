package storage

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-pipeline-go/pipeline"
	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureStorage implements Storage interface for Azure Blob Storage.
type AzureStorage struct {
	container azblob.ContainerURL
	pipeline  pipeline.Pipeline
	logger    *slog.Logger
}

// AzureConfig holds Azure-specific configuration.
type AzureConfig struct {
	AccountName string
	AccountKey  string
	Container   string
	Endpoint    string // Optional, e.g. an Azurite URL
}

// NewAzureStorage creates a new Azure Blob storage provider.
func NewAzureStorage(cfg AzureConfig, logger *slog.Logger) (*AzureStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credentials: %w", err)
	}

	p := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccountName)
	}
	serviceURL, err := url.Parse(strings.TrimSuffix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Azure service URL: %w", err)
	}

	return &AzureStorage{
		container: azblob.NewServiceURL(*serviceURL, p).NewContainerURL(cfg.Container),
		pipeline:  p,
		logger:    logger.With("component", "storage", "provider", "azure"),
	}, nil
}

// Name implements Storage.Name.
func (a *AzureStorage) Name() string {
	return "azure"
}

// Upload implements Storage.Upload.
func (a *AzureStorage) Upload(ctx context.Context, localPath, prefix string) error {
	key := ObjectKey(prefix, localPath)

	data, err := readPayload(localPath)
	if err != nil {
		return newError(a.Name(), "upload", key, err)
	}

	blobURL := a.container.NewBlockBlobURL(key)
	_, err = azblob.UploadBufferToBlockBlob(ctx, data, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   azblob.BlockBlobMaxUploadBlobBytes,
		Parallelism: 1,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: "application/x-7z-compressed",
		},
	})
	if err != nil {
		return newError(a.Name(), "upload", key, err)
	}

	return nil
}

// azureListResult mirrors one List Blobs page. Last-Modified stays a string
// so one malformed entry drops that blob instead of failing the page.
type azureListResult struct {
	XMLName    xml.Name    `xml:"EnumerationResults"`
	Blobs      []azureBlob `xml:"Blobs>Blob"`
	NextMarker string      `xml:"NextMarker"`
}

type azureBlob struct {
	Name          string `xml:"Name"`
	LastModified  string `xml:"Properties>Last-Modified"`
	ContentLength int64  `xml:"Properties>Content-Length"`
}

// List implements Storage.List.
func (a *AzureStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	marker := ""

	for {
		page, err := a.listPage(ctx, prefix, marker)
		if err != nil {
			return nil, newError(a.Name(), "list", prefix, err)
		}

		for _, blob := range page.Blobs {
			lastModified, ok := parseTimestamp(a.logger, blob.Name, blob.LastModified, time.RFC1123)
			if !ok {
				continue
			}
			objects = append(objects, ObjectInfo{
				Key:          blob.Name,
				Size:         blob.ContentLength,
				LastModified: lastModified,
			})
		}

		if page.NextMarker == "" {
			break
		}
		if page.NextMarker == marker {
			return nil, newError(a.Name(), "list", prefix, fmt.Errorf("listing marker did not advance"))
		}
		marker = page.NextMarker
	}

	SortNewestFirst(objects)
	return objects, nil
}

// listPage sends one List Blobs request through the signed pipeline.
func (a *AzureStorage) listPage(ctx context.Context, prefix, marker string) (*azureListResult, error) {
	req, err := pipeline.NewRequest(http.MethodGet, a.container.URL(), nil)
	if err != nil {
		return nil, err
	}
	params := req.URL.Query()
	if prefix != "" {
		params.Set("prefix", prefix)
	}
	if marker != "" {
		params.Set("marker", marker)
	}
	params.Set("restype", "container")
	params.Set("comp", "list")
	req.URL.RawQuery = params.Encode()
	req.Header.Set("x-ms-version", azblob.ServiceVersion)

	resp, err := a.pipeline.Do(ctx, nil, req)
	if err != nil {
		return nil, err
	}
	body := resp.Response().Body
	defer body.Close()

	if code := resp.Response().StatusCode; code != http.StatusOK {
		_, _ = io.Copy(io.Discard, body)
		return nil, fmt.Errorf("list blobs returned %s", resp.Response().Status)
	}

	var page azureListResult
	if err := xml.NewDecoder(body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	return &page, nil
}

// Delete implements Storage.Delete. Missing blobs are treated as deleted.
func (a *AzureStorage) Delete(ctx context.Context, key string) error {
	blobURL := a.container.NewBlockBlobURL(key)
	_, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
	if err != nil {
		var stgErr azblob.StorageError
		if errors.As(err, &stgErr) && stgErr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
			a.logger.Debug("Object already absent", "key", key)
			return nil
		}
		return newError(a.Name(), "delete", key, err)
	}
	return nil
}
