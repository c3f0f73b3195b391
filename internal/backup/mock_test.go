package backup

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/imedwei/backupdbtool/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStorage records calls; uploadErrs and deleteErrs are keyed by local
// path and object key.
type mockStorage struct {
	mu sync.Mutex

	uploads    []string
	uploadErrs map[string]error
	deletes    []string
	deleteErrs map[string]error
	listCalls  []string
	listResult []storage.ObjectInfo
	listErr    error

	inflight    int
	maxInflight int
	onUpload    func()
}

func (m *mockStorage) Name() string { return "mock" }

func (m *mockStorage) Upload(ctx context.Context, localPath, prefix string) error {
	m.mu.Lock()
	m.inflight++
	m.maxInflight = max(m.maxInflight, m.inflight)
	hook := m.onUpload
	m.mu.Unlock()

	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	m.uploads = append(m.uploads, localPath)
	return m.uploadErrs[localPath]
}

func (m *mockStorage) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls = append(m.listCalls, prefix)
	return m.listResult, m.listErr
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErrs[key]; err != nil {
		return err
	}
	m.deletes = append(m.deletes, key)
	return nil
}
