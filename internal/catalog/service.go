// Package catalog is the document library: it combines the remote file
// store, the persisted category assignments, classification and gap
// detection into the operations the front ends expose.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xaenox/bwe-assistant/internal/classifier"
	"github.com/xaenox/bwe-assistant/internal/models"
	"github.com/xaenox/bwe-assistant/internal/reconcile"
	"github.com/xaenox/bwe-assistant/internal/remote"
	"github.com/xaenox/bwe-assistant/internal/storage"
	"github.com/xaenox/bwe-assistant/internal/timeline"
	"go.uber.org/zap"
)

// LimitedModeMessage is shown whenever the remote store is unavailable.
const LimitedModeMessage = "OpenAI configuration error. The application will work in limited mode."

type Options struct {
	UploadDir         string
	AllowedExtensions []string
}

var DefaultAllowedExtensions = []string{"txt", "pdf", "doc", "docx", "xls", "xlsx", "csv", "md"}

type Service struct {
	store      storage.Storage
	files      remote.FileStore
	classifier classifier.Classifier
	resolver   *classifier.Resolver
	reconciler *reconcile.Reconciler
	gaps       *timeline.GapDetector
	options    Options
	logger     *zap.Logger
}

func NewService(store storage.Storage, files remote.FileStore, clf classifier.Classifier, gaps *timeline.GapDetector, options Options, logger *zap.Logger) *Service {
	if clf == nil {
		clf = classifier.NewKeywordClassifier()
	}
	if gaps == nil {
		gaps = timeline.NewGapDetector()
	}
	if len(options.AllowedExtensions) == 0 {
		options.AllowedExtensions = DefaultAllowedExtensions
	}
	resolver := classifier.NewResolver(nil)
	return &Service{
		store:      store,
		files:      files,
		classifier: clf,
		resolver:   resolver,
		reconciler: reconcile.New(store, files, resolver, clf, logger),
		gaps:       gaps,
		options:    options,
		logger:     logger,
	}
}

// Reconciler exposes the consistency pass run before every listing.
func (s *Service) Reconciler() *reconcile.Reconciler {
	return s.reconciler
}

func (s *Service) Limited() bool {
	return s.files.Limited()
}

// View builds the categorized listing. Failures never prevent a view: they
// are logged and reported through CategoryView.Error. Only an unknown
// selected category is returned as an error.
func (s *Service) View(ctx context.Context, selected string) (*models.CategoryView, error) {
	view := &models.CategoryView{Selected: selected, LimitedMode: s.files.Limited()}

	if !view.LimitedMode {
		s.reconciler.VerifyAndRepair(ctx)
	}

	state, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to load categories", zap.Error(err))
		state = models.NewCategoryState()
		view.Error = "Failed to load categories"
	}

	if selected != "" && !state.HasCategory(selected) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, selected)
	}

	buckets := make(map[string]*models.CategoryBucket, len(state.Categories))
	view.Categories = make([]models.CategoryBucket, 0, len(state.Categories)+1)
	for _, name := range state.Categories {
		view.Categories = append(view.Categories, models.CategoryBucket{Name: name, Files: []models.FileRecord{}})
	}
	if !state.HasCategory(models.Uncategorized) {
		view.Categories = append(view.Categories, models.CategoryBucket{Name: models.Uncategorized, Files: []models.FileRecord{}})
	}
	for i := range view.Categories {
		buckets[view.Categories[i].Name] = &view.Categories[i]
	}

	if view.LimitedMode {
		view.Error = LimitedModeMessage
	}

	files, err := s.files.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list remote files", zap.Error(err))
		view.Error = "Failed to load files from the knowledge base"
		return view, nil
	}

	for _, f := range files {
		bucket, ok := buckets[state.FileCategories[f.ID]]
		if !ok {
			bucket = buckets[models.Uncategorized]
		}
		bucket.Files = append(bucket.Files, f)
	}

	for i := range view.Categories {
		bucket := &view.Categories[i]
		if models.IsReportCategory(bucket.Name) {
			timeline.SortByPeriod(bucket.Files)
			bucket.Gaps = s.gaps.IdentifyGaps(bucket.Files)
			continue
		}
		sort.SliceStable(bucket.Files, func(a, b int) bool {
			return bucket.Files[a].CreatedAt > bucket.Files[b].CreatedAt
		})
	}

	return view, nil
}

// Gaps lists the missing months of one category's series.
func (s *Service) Gaps(ctx context.Context, category string) ([]string, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !state.HasCategory(category) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	files, err := s.files.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}

	var inCategory []models.FileRecord
	for _, f := range files {
		if state.FileCategories[f.ID] == category {
			inCategory = append(inCategory, f)
		}
	}
	return s.gaps.IdentifyGaps(inCategory), nil
}

// Files returns the live remote listing.
func (s *Service) Files(ctx context.Context) ([]models.FileRecord, error) {
	files, err := s.files.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return files, nil
}

// Categories returns the taxonomy in display order.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return state.Categories, nil
}

// UpdateCategory reassigns a file. The category must be in the taxonomy and
// the file must exist remotely. It returns the previous category.
func (s *Service) UpdateCategory(ctx context.Context, fileID, category string) (string, error) {
	if fileID == "" || category == "" {
		return "", fmt.Errorf("%w: file_id or new_category", ErrMissingField)
	}

	state, err := s.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !state.HasCategory(category) {
		return "", fmt.Errorf("%w: %s", ErrInvalidCategory, category)
	}

	files, err := s.files.List(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemote, err)
	}
	if !containsFile(files, fileID) {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
	}

	previous := state.FileCategories[fileID]
	state.FileCategories[fileID] = category
	if err := s.store.Save(ctx, state); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Info("Updated file category",
		zap.String("file_id", fileID),
		zap.String("from", previous),
		zap.String("to", category))
	return previous, nil
}

// Search matches query case-insensitively against filenames. Exact matches
// come first, the rest alphabetically.
func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, ErrEmptyQuery
	}

	files, err := s.files.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	results := []models.SearchResult{}
	for _, f := range files {
		if !strings.Contains(strings.ToLower(f.Filename), query) {
			continue
		}
		results = append(results, models.SearchResult{
			ID:        f.ID,
			Filename:  f.Filename,
			Category:  s.resolver.Resolve(f, state.FileCategories),
			CreatedAt: f.CreatedAt,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := strings.ToLower(results[i].Filename), strings.ToLower(results[j].Filename)
		if (a == query) != (b == query) {
			return a == query
		}
		return a < b
	})
	return results, nil
}

func containsFile(files []models.FileRecord, id string) bool {
	for _, f := range files {
		if f.ID == id {
			return true
		}
	}
	return false
}
