package storage

import (
	"context"

	"github.com/xaenox/bwe-assistant/internal/models"
)

// Storage persists the taxonomy and the file → category assignments.
// Load returns a copy the caller may mutate; Save replaces the stored state.
type Storage interface {
	Load(ctx context.Context) (*models.CategoryState, error)
	Save(ctx context.Context, state *models.CategoryState) error
	Close() error
}

// normalize fills in what a partially written document left out.
func normalize(state *models.CategoryState) *models.CategoryState {
	if state == nil {
		return models.NewCategoryState()
	}
	if state.Categories == nil {
		state.Categories = models.DefaultCategories()
	}
	if state.FileCategories == nil {
		state.FileCategories = make(map[string]string)
	}
	return state
}
