package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/bwe-assistant/internal/models"
	"go.uber.org/zap"
)

// AddCategory appends a category to the taxonomy. An empty name gets a
// generated "New Category N" name.
func (s *Service) AddCategory(ctx context.Context, name string) (string, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		for n := len(state.Categories); ; n++ {
			name = fmt.Sprintf("New Category %d", n)
			if !state.HasCategory(name) {
				break
			}
		}
	}
	if state.HasCategory(name) {
		return "", fmt.Errorf("%w: %s", ErrCategoryExists, name)
	}

	state.Categories = append(state.Categories, name)
	if err := s.store.Save(ctx, state); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Info("Category added", zap.String("category", name))
	return name, nil
}

// DeleteCategory removes a category and moves its files to Uncategorized.
// The catch-all categories cannot be deleted.
func (s *Service) DeleteCategory(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: category", ErrMissingField)
	}
	if models.IsCatchAll(name) {
		return fmt.Errorf("%w: %s", ErrProtectedCategory, name)
	}

	state, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !state.HasCategory(name) {
		return fmt.Errorf("%w: %s", ErrInvalidCategory, name)
	}

	kept := state.Categories[:0]
	for _, c := range state.Categories {
		if c != name {
			kept = append(kept, c)
		}
	}
	state.Categories = kept

	moved := 0
	for id, c := range state.FileCategories {
		if c == name {
			state.FileCategories[id] = models.Uncategorized
			moved++
		}
	}

	if err := s.store.Save(ctx, state); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Info("Category deleted", zap.String("category", name), zap.Int("files_moved", moved))
	return nil
}
