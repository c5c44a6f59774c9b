package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xaenox/bwe-assistant/internal/models"
	"go.uber.org/zap"
)

// FileStorage keeps the state in a single JSON document:
//
//	{"categories": [...], "file_categories": {"file-id": "Category"}}
//
// A missing or unreadable document is recreated with the default taxonomy.
type FileStorage struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

func NewFileStorage(path string, logger *zap.Logger) (*FileStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating categories directory: %w", err)
		}
	}
	return &FileStorage{path: path, logger: logger}, nil
}

func (s *FileStorage) Load(ctx context.Context) (*models.CategoryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info("Categories file not found, creating defaults", zap.String("path", s.path))
		return s.reset()
	}
	if err != nil {
		return nil, fmt.Errorf("reading categories file: %w", err)
	}

	var state models.CategoryState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Error("Categories file is corrupt, recreating defaults",
			zap.Error(err),
			zap.String("path", s.path))
		return s.reset()
	}

	return normalize(&state), nil
}

func (s *FileStorage) Save(ctx context.Context, state *models.CategoryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(normalize(state))
}

func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) reset() (*models.CategoryState, error) {
	state := models.NewCategoryState()
	if err := s.write(state); err != nil {
		return nil, err
	}
	return state, nil
}

// write swaps in the new document via a temp file and rename.
func (s *FileStorage) write(state *models.CategoryState) error {
	data, err := json.MarshalIndent(state, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".categories-*.json")
	if err != nil {
		return fmt.Errorf("creating temp categories file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing categories: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp categories file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing categories file: %w", err)
	}
	return nil
}
