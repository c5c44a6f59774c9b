package storage

import (
	"context"
	"sync"

	"github.com/xaenox/bwe-assistant/internal/models"
)

type MemoryStorage struct {
	mu    sync.RWMutex
	state *models.CategoryState
	saves int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		state: models.NewCategoryState(),
	}
}

// NewMemoryStorageWith starts from a copy of state.
func NewMemoryStorageWith(state *models.CategoryState) *MemoryStorage {
	if state == nil {
		return NewMemoryStorage()
	}
	return &MemoryStorage{
		state: normalize(state.Clone()),
	}
}

func (s *MemoryStorage) Load(ctx context.Context) (*models.CategoryState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Clone(), nil
}

func (s *MemoryStorage) Save(ctx context.Context, state *models.CategoryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = normalize(state.Clone())
	s.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (s *MemoryStorage) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.saves
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
