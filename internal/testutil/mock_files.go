// mock_files.go - In-memory remote file store for tests
package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/xaenox/bwe-assistant/internal/models"
)

// ErrUnavailable is returned by MockFileStore when Fail is set.
var ErrUnavailable = errors.New("remote store unavailable")

// MockFileStore implements remote.FileStore for testing
type MockFileStore struct {
	mu      sync.RWMutex
	files   []models.FileRecord
	nextID  int
	limited bool

	// Fail makes every call return ErrUnavailable.
	Fail bool

	Uploads int
	Deletes []string
}

func NewMockFileStore(files ...models.FileRecord) *MockFileStore {
	return &MockFileStore{files: append([]models.FileRecord(nil), files...)}
}

// NewLimitedMockFileStore behaves like a limited-mode store.
func NewLimitedMockFileStore(files ...models.FileRecord) *MockFileStore {
	m := NewMockFileStore(files...)
	m.limited = true
	return m
}

func (m *MockFileStore) List(ctx context.Context) ([]models.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Fail {
		return nil, ErrUnavailable
	}
	return append([]models.FileRecord(nil), m.files...), nil
}

func (m *MockFileStore) Upload(ctx context.Context, name, path string) (models.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail {
		return models.FileRecord{}, ErrUnavailable
	}
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	m.nextID++
	record := models.FileRecord{
		ID:        fmt.Sprintf("file-test-%d", m.nextID),
		Filename:  name,
		CreatedAt: time.Now().Format(models.CreatedAtLayout),
		Bytes:     size,
		Purpose:   "assistants",
	}
	m.files = append(m.files, record)
	m.Uploads++
	return record, nil
}

func (m *MockFileStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail {
		return ErrUnavailable
	}
	for i, f := range m.files {
		if f.ID == id {
			m.files = append(m.files[:i], m.files[i+1:]...)
			m.Deletes = append(m.Deletes, id)
			return nil
		}
	}
	return fmt.Errorf("file not found: %s", id)
}

func (m *MockFileStore) Limited() bool {
	return m.limited
}

// Add puts files straight into the store, bypassing Upload.
func (m *MockFileStore) Add(files ...models.FileRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files = append(m.files, files...)
}
