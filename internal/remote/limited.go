package remote

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/bwe-assistant/internal/models"
)

// LimitedStore stands in for the remote store when the API is unavailable.
// Uploads get local ids and live only as long as the process.
type LimitedStore struct {
	mu    sync.RWMutex
	files []models.FileRecord
	now   func() time.Time
}

func NewLimitedStore(samples []models.FileRecord) *LimitedStore {
	return &LimitedStore{
		files: append([]models.FileRecord(nil), samples...),
		now:   time.Now,
	}
}

func (s *LimitedStore) List(ctx context.Context) ([]models.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.FileRecord(nil), s.files...), nil
}

func (s *LimitedStore) Upload(ctx context.Context, name, path string) (models.FileRecord, error) {
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	record := models.FileRecord{
		ID:        uuid.New().String(),
		Filename:  name,
		CreatedAt: s.now().Format(models.CreatedAtLayout),
		Bytes:     size,
		Purpose:   PurposeAssistants,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, record)
	return record, nil
}

func (s *LimitedStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.files {
		if f.ID == id {
			s.files = append(s.files[:i], s.files[i+1:]...)
			break
		}
	}
	return nil
}

func (s *LimitedStore) Limited() bool {
	return true
}

// SampleFiles is canned data shown in limited mode when sample data is enabled.
func SampleFiles() []models.FileRecord {
	return []models.FileRecord{
		{ID: "sample-1", Filename: "Budget_January_2024.pdf", CreatedAt: "2024-01-31", Bytes: 48213, Purpose: PurposeAssistants},
		{ID: "sample-2", Filename: "Budget_February_2024.pdf", CreatedAt: "2024-02-29", Bytes: 47102, Purpose: PurposeAssistants},
		{ID: "sample-3", Filename: "Budget_April_2024.pdf", CreatedAt: "2024-04-30", Bytes: 49877, Purpose: PurposeAssistants},
		{ID: "sample-4", Filename: "Board_Meeting_Minutes_March_2024.pdf", CreatedAt: "2024-03-14", Bytes: 20411, Purpose: PurposeAssistants},
		{ID: "sample-5", Filename: "2024_Fire_Drill_Plan.pdf", CreatedAt: "2024-02-02", Bytes: 15330, Purpose: PurposeAssistants},
		{ID: "sample-6", Filename: "Condo_Declaration.pdf", CreatedAt: "2023-11-20", Bytes: 301552, Purpose: PurposeAssistants},
	}
}
