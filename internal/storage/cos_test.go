package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func newTestCOSStorage(t *testing.T, serverURL string) *COSStorage {
	t.Helper()
	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	return newCOSStorage(u, "id", "key", testLogger())
}

func TestCOSStorage_ListDrainsPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		switch r.URL.Query().Get("marker") {
		case "":
			fmt.Fprint(w, `<ListBucketResult>
  <Name>backups-1250000000</Name>
  <Prefix>db/</Prefix>
  <IsTruncated>true</IsTruncated>
  <NextMarker>db/b_20240201_000000.7z</NextMarker>
  <Contents><Key>db/a_20240101_000000.7z</Key><LastModified>2024-01-01T00:00:05.000Z</LastModified><Size>1</Size></Contents>
  <Contents><Key>db/b_20240201_000000.7z</Key><LastModified>2024-02-01T00:00:05.000Z</LastModified><Size>2</Size></Contents>
</ListBucketResult>`)
		default:
			fmt.Fprint(w, `<ListBucketResult>
  <Name>backups-1250000000</Name>
  <Prefix>db/</Prefix>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>db/c_20240301_000000.7z</Key><LastModified>2024-03-01T00:00:05.000Z</LastModified><Size>3</Size></Contents>
  <Contents><Key>db/broken.7z</Key><LastModified>03/01/2024</LastModified><Size>4</Size></Contents>
</ListBucketResult>`)
		}
	}))
	defer server.Close()

	objects, err := newTestCOSStorage(t, server.URL).List(context.Background(), "db/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"db/c_20240301_000000.7z", "db/b_20240201_000000.7z", "db/a_20240101_000000.7z"}
	if len(objects) != len(want) {
		t.Fatalf("List() returned %d objects, want %d: %v", len(objects), len(want), objects)
	}
	for i, key := range want {
		if objects[i].Key != key {
			t.Errorf("objects[%d].Key = %v, want %v", i, objects[i].Key, key)
		}
	}
}

func TestCOSStorage_DeleteMissingIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
	}))
	defer server.Close()

	if err := newTestCOSStorage(t, server.URL).Delete(context.Background(), "db/gone.7z"); err != nil {
		t.Errorf("Delete() of missing key error = %v, want nil", err)
	}
}

func TestCOSStorage_DeleteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `<Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
	}))
	defer server.Close()

	if err := newTestCOSStorage(t, server.URL).Delete(context.Background(), "db/a.7z"); err == nil {
		t.Error("Delete() expected error for access denied")
	}
}
