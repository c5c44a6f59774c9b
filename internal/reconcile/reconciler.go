// Package reconcile keeps the persisted category assignments consistent with
// the files the remote store actually holds.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xaenox/bwe-assistant/internal/classifier"
	"github.com/xaenox/bwe-assistant/internal/models"
	"github.com/xaenox/bwe-assistant/internal/remote"
	"github.com/xaenox/bwe-assistant/internal/storage"
	"go.uber.org/zap"
)

// ErrLimitedMode is returned when the remote store is a limited-mode stand-in;
// its file list cannot be trusted to prune assignments.
var ErrLimitedMode = errors.New("remote store is in limited mode")

// Report summarises one reconciliation pass.
type Report struct {
	MissingCategories []string `json:"missing_categories,omitempty"`
	GhostsRemoved     int      `json:"ghosts_removed"`
	Backfilled        int      `json:"backfilled"`
	InvalidReset      int      `json:"invalid_reset"`
	Recategorized     int      `json:"recategorized"`
	Saves             int      `json:"saves"`
	Failures          int      `json:"failures"`
}

// Changed reports whether the pass modified any assignment.
func (r Report) Changed() bool {
	return r.GhostsRemoved+r.Backfilled+r.InvalidReset+r.Recategorized > 0
}

type Reconciler struct {
	store      storage.Storage
	files      remote.FileStore
	resolver   *classifier.Resolver
	classifier classifier.Classifier
	logger     *zap.Logger

	// suggestions remembers classifier answers per file id so catch-all
	// files are not sent to the classifier on every pass.
	mu          sync.Mutex
	suggestions map[string]string
}

func New(store storage.Storage, files remote.FileStore, resolver *classifier.Resolver, clf classifier.Classifier, logger *zap.Logger) *Reconciler {
	if resolver == nil {
		resolver = classifier.NewResolver(nil)
	}
	return &Reconciler{
		store:       store,
		files:       files,
		resolver:    resolver,
		classifier:  clf,
		logger:      logger,
		suggestions: make(map[string]string),
	}
}

// VerifyAndRepair runs a full pass and reports whether it completed.
func (r *Reconciler) VerifyAndRepair(ctx context.Context) bool {
	report, err := r.Run(ctx)
	if err != nil {
		r.logger.Error("Category verification failed", zap.Error(err))
		return false
	}
	if report.Failures > 0 {
		r.logger.Warn("Category verification finished with failures", zap.Int("failures", report.Failures))
		return false
	}
	r.logger.Info("Category verification complete",
		zap.Int("ghosts_removed", report.GhostsRemoved),
		zap.Int("backfilled", report.Backfilled),
		zap.Int("invalid_reset", report.InvalidReset),
		zap.Int("recategorized", report.Recategorized))
	return true
}

// Run checks the taxonomy, then repairs ghosts, unassigned files, invalid
// categories and catch-all assignments. Every repairing step saves on its
// own, so an interrupted pass leaves a valid map behind.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report

	if r.files.Limited() {
		return report, ErrLimitedMode
	}

	state, err := r.store.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("loading categories: %w", err)
	}

	report.MissingCategories = r.checkTaxonomy(state)

	files, err := r.files.List(ctx)
	if err != nil {
		return report, fmt.Errorf("listing remote files: %w", err)
	}
	live := make(map[string]models.FileRecord, len(files))
	for _, f := range files {
		live[f.ID] = f
	}
	r.forget(live)

	steps := []struct {
		name string
		run  func(context.Context, *models.CategoryState, map[string]models.FileRecord) int
		into *int
	}{
		{"remove_ghosts", r.removeGhosts, &report.GhostsRemoved},
		{"backfill", r.backfill, &report.Backfilled},
		{"reset_invalid", r.resetInvalid, &report.InvalidReset},
		{"recategorize", r.recategorize, &report.Recategorized},
	}
	for _, step := range steps {
		changed, ok := r.runStep(step.name, func() int { return step.run(ctx, state, live) })
		if !ok {
			report.Failures++
			continue
		}
		*step.into = changed
		if changed == 0 {
			continue
		}
		if err := r.store.Save(ctx, state); err != nil {
			r.logger.Error("Failed to save categories", zap.String("step", step.name), zap.Error(err))
			report.Failures++
			continue
		}
		report.Saves++
	}

	return report, nil
}

// runStep isolates a step so a panic in one check does not abort the pass.
func (r *Reconciler) runStep(name string, fn func() int) (changed int, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Category check panicked", zap.String("step", name), zap.Any("panic", p))
			ok = false
		}
	}()
	return fn(), true
}

func (r *Reconciler) checkTaxonomy(state *models.CategoryState) []string {
	var missing []string
	for _, c := range models.DefaultCategories() {
		if !state.HasCategory(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		r.logger.Warn("Missing default categories", zap.Strings("categories", missing))
	}
	return missing
}

func (r *Reconciler) removeGhosts(_ context.Context, state *models.CategoryState, live map[string]models.FileRecord) int {
	removed := 0
	for _, id := range sortedKeys(state.FileCategories) {
		if _, ok := live[id]; ok {
			continue
		}
		delete(state.FileCategories, id)
		removed++
	}
	if removed > 0 {
		r.logger.Info("Removed ghost assignments", zap.Int("count", removed))
	}
	return removed
}

func (r *Reconciler) backfill(ctx context.Context, state *models.CategoryState, live map[string]models.FileRecord) int {
	added := 0
	for _, id := range sortedKeys(live) {
		if _, ok := state.FileCategories[id]; ok {
			continue
		}
		file := live[id]
		category := r.suggest(ctx, file)
		if !isValid(state, category) {
			category = catchAll(state)
		}
		state.FileCategories[id] = category
		added++
		r.logger.Info("Categorized untracked file",
			zap.String("file_id", id),
			zap.String("filename", file.Filename),
			zap.String("category", category))
	}
	return added
}

func (r *Reconciler) resetInvalid(_ context.Context, state *models.CategoryState, _ map[string]models.FileRecord) int {
	reset := 0
	fallback := catchAll(state)
	for _, id := range sortedKeys(state.FileCategories) {
		category := state.FileCategories[id]
		if isValid(state, category) {
			continue
		}
		state.FileCategories[id] = fallback
		reset++
		r.logger.Warn("Reset file with invalid category",
			zap.String("file_id", id),
			zap.String("category", category))
	}
	return reset
}

func (r *Reconciler) recategorize(ctx context.Context, state *models.CategoryState, live map[string]models.FileRecord) int {
	changed := 0
	for _, id := range sortedKeys(state.FileCategories) {
		current := state.FileCategories[id]
		if !models.IsCatchAll(current) {
			continue
		}
		file, ok := live[id]
		if !ok {
			continue
		}
		suggested := r.suggest(ctx, file)
		if suggested == current || suggested == models.GeneralDocuments || !state.HasCategory(suggested) {
			continue
		}
		state.FileCategories[id] = suggested
		changed++
		r.logger.Info("Recategorized file",
			zap.String("filename", file.Filename),
			zap.String("from", current),
			zap.String("to", suggested))
	}
	return changed
}

// suggest classifies file by its filename patterns and asks the classifier
// only when they give General Documents. Classifier answers are cached.
func (r *Reconciler) suggest(ctx context.Context, file models.FileRecord) string {
	category := r.resolver.Suggest(ctx, file, nil)
	if category != models.GeneralDocuments || r.classifier == nil {
		return category
	}

	r.mu.Lock()
	cached, ok := r.suggestions[file.ID]
	r.mu.Unlock()
	if ok {
		return cached
	}

	category = r.classifier.Classify(ctx, file.Filename, "")
	if ctx.Err() != nil {
		return category
	}
	r.mu.Lock()
	r.suggestions[file.ID] = category
	r.mu.Unlock()
	return category
}

// forget drops cached answers for files that are no longer in the remote store.
func (r *Reconciler) forget(live map[string]models.FileRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.suggestions {
		if _, ok := live[id]; !ok {
			delete(r.suggestions, id)
		}
	}
}

// catchAll is General Documents while the taxonomy has it, Uncategorized otherwise.
func catchAll(state *models.CategoryState) string {
	if state.HasCategory(models.GeneralDocuments) {
		return models.GeneralDocuments
	}
	return models.Uncategorized
}

// isValid reports whether category can hold files. Uncategorized always
// can, since listings show it even when the taxonomy lacks it.
func isValid(state *models.CategoryState, category string) bool {
	return category == models.Uncategorized || state.HasCategory(category)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
