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

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
)

// SHA-256 of an empty body.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 1024

// listBucketResult is the ListObjects (v1) response document. Contents is a
// slice so a single entry decodes the same way as many.
type listBucketResult struct {
	XMLName     xml.Name       `xml:"ListBucketResult"`
	IsTruncated bool           `xml:"IsTruncated"`
	NextMarker  string         `xml:"NextMarker"`
	Contents    []legacyObject `xml:"Contents"`
}

type legacyObject struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	Size         int64  `xml:"Size"`
}

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// legacyLister reads bucket listings as signed raw XML requests.
type legacyLister struct {
	client    httpDoer
	signer    *v4.Signer
	creds     aws.CredentialsProvider
	bucketURL *url.URL
	region    string
	logger    *slog.Logger
}

func newLegacyLister(creds aws.CredentialsProvider, endpoint, region, bucket string, pathStyle bool, logger *slog.Logger) (*legacyLister, error) {
	u, err := bucketURL(endpoint, region, bucket, pathStyle)
	if err != nil {
		return nil, err
	}

	return &legacyLister{
		client:    awshttp.NewBuildableClient(),
		signer:    v4.NewSigner(),
		creds:     creds,
		bucketURL: u,
		region:    region,
		logger:    logger,
	}, nil
}

// bucketURL returns the root URL of bucket for path-style or virtual-hosted
// addressing.
func bucketURL(endpoint, region, bucket string, pathStyle bool) (*url.URL, error) {
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", region)
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid S3 endpoint %q: missing host", endpoint)
	}

	if pathStyle {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + bucket + "/"
	} else {
		u.Host = bucket + "." + u.Host
		u.Path = "/"
	}
	return u, nil
}

// list drains every page of the listing for prefix.
func (l *legacyLister) list(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	marker := ""

	for {
		page, err := l.fetch(ctx, prefix, marker)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Contents {
			lastModified, ok := parseLastModified(l.logger, obj.Key, obj.LastModified)
			if !ok {
				continue
			}
			objects = append(objects, ObjectInfo{
				Key:          obj.Key,
				Size:         obj.Size,
				LastModified: lastModified,
			})
		}

		if !page.IsTruncated {
			return objects, nil
		}

		next := page.NextMarker
		if next == "" && len(page.Contents) > 0 {
			next = page.Contents[len(page.Contents)-1].Key
		}
		if next == "" || next == marker {
			return nil, errors.New("truncated listing without a continuation marker")
		}
		marker = next
	}
}

func (l *legacyLister) fetch(ctx context.Context, prefix, marker string) (*listBucketResult, error) {
	u := *l.bucketURL
	query := url.Values{}
	query.Set("prefix", prefix)
	if marker != "" {
		query.Set("marker", marker)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build listing request: %w", err)
	}
	req.Header.Set("X-Amz-Content-Sha256", emptyPayloadHash)

	creds, err := l.creds.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve credentials: %w", err)
	}
	err = l.signer.SignHTTP(ctx, creds, req, emptyPayloadHash, "s3", l.region, time.Now(),
		func(o *v4.SignerOptions) {
			o.DisableURIPathEscaping = true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to sign listing request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("listing returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return decodeListBucketResult(resp.Body)
}

func decodeListBucketResult(r io.Reader) (*listBucketResult, error) {
	var result listBucketResult
	if err := xml.NewDecoder(r).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode listing XML: %w", err)
	}
	return &result, nil
}
