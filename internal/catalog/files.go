package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/xaenox/bwe-assistant/internal/models"
	"go.uber.org/zap"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename reduces a client-supplied name to a safe base name.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_")
	name = strings.Trim(name, "._")
	if name == "" || name == "/" {
		return ""
	}
	return name
}

func (s *Service) allowed(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return false
	}
	for _, a := range s.options.AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// Upload stages the file locally, sends it to the remote store, classifies
// it by name and records the assignment. The local copy is always removed.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (models.FileRecord, string, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return models.FileRecord{}, "", ErrNoFile
	}
	if !s.allowed(name) {
		return models.FileRecord{}, "", fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, name)
	}

	if err := os.MkdirAll(s.options.UploadDir, 0755); err != nil {
		return models.FileRecord{}, "", fmt.Errorf("creating upload directory: %w", err)
	}
	dir, err := os.MkdirTemp(s.options.UploadDir, "upload-*")
	if err != nil {
		return models.FileRecord{}, "", fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name)
	if err := stage(path, r); err != nil {
		return models.FileRecord{}, "", err
	}

	record, err := s.files.Upload(ctx, name, path)
	if err != nil {
		return models.FileRecord{}, "", fmt.Errorf("%w: %v", ErrRemote, err)
	}

	category := s.classifier.Classify(ctx, record.Filename, "")

	state, err := s.store.Load(ctx)
	if err != nil {
		return record, category, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !state.HasCategory(category) {
		state.Categories = append(state.Categories, category)
	}
	state.FileCategories[record.ID] = category
	if err := s.store.Save(ctx, state); err != nil {
		return record, category, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Info("File uploaded and categorized",
		zap.String("file_id", record.ID),
		zap.String("filename", record.Filename),
		zap.String("category", category),
		zap.Bool("limited_mode", s.files.Limited()))
	return record, category, nil
}

func stage(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating staged file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing staged file: %w", err)
	}
	return f.Close()
}

// Delete removes a file from the remote store and drops its assignment.
// It returns the category the file was in.
func (s *Service) Delete(ctx context.Context, fileID string) (string, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	category, ok := state.FileCategories[fileID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
	}

	if err := s.files.Delete(ctx, fileID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemote, err)
	}

	delete(state.FileCategories, fileID)
	if err := s.store.Save(ctx, state); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Info("File deleted", zap.String("file_id", fileID), zap.String("category", category))
	return category, nil
}

// DuplicateGroup lists remote files sharing a filename, newest first.
type DuplicateGroup struct {
	Filename string              `json:"filename"`
	Files    []models.FileRecord `json:"files"`
}

// Duplicates groups remote files by filename.
func (s *Service) Duplicates(ctx context.Context) ([]DuplicateGroup, error) {
	files, err := s.files.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}

	byName := make(map[string][]models.FileRecord)
	for _, f := range files {
		byName[f.Filename] = append(byName[f.Filename], f)
	}

	var groups []DuplicateGroup
	for name, group := range byName {
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].CreatedAt != group[j].CreatedAt {
				return group[i].CreatedAt > group[j].CreatedAt
			}
			return group[i].ID > group[j].ID
		})
		groups = append(groups, DuplicateGroup{Filename: name, Files: group})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Filename < groups[j].Filename })
	return groups, nil
}

// RemoveDuplicates keeps the newest file of every duplicate group and
// deletes the rest, returning the deleted ids.
func (s *Service) RemoveDuplicates(ctx context.Context) ([]string, error) {
	groups, err := s.Duplicates(ctx)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var removed []string
	var firstErr error
	for _, g := range groups {
		for _, f := range g.Files[1:] {
			if err := s.files.Delete(ctx, f.ID); err != nil {
				s.logger.Error("Failed to delete duplicate",
					zap.Error(err),
					zap.String("file_id", f.ID),
					zap.String("filename", f.Filename))
				if firstErr == nil {
					firstErr = fmt.Errorf("%w: %v", ErrRemote, err)
				}
				continue
			}
			delete(state.FileCategories, f.ID)
			removed = append(removed, f.ID)
		}
	}

	if len(removed) > 0 {
		if err := s.store.Save(ctx, state); err != nil {
			return removed, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	return removed, firstErr
}
