package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/bwe-assistant/internal/classifier"
	"github.com/xaenox/bwe-assistant/internal/models"
	"github.com/xaenox/bwe-assistant/internal/storage"
	"github.com/xaenox/bwe-assistant/internal/testutil"
	"go.uber.org/zap"
)

func newTestReconciler(store storage.Storage, files *testutil.MockFileStore) *Reconciler {
	return New(store, files, nil, classifier.NewKeywordClassifier(), zap.NewNop())
}

type countingClassifier struct {
	answer string
	calls  map[string]int
}

func newCountingClassifier(answer string) *countingClassifier {
	return &countingClassifier{answer: answer, calls: make(map[string]int)}
}

func (c *countingClassifier) Classify(_ context.Context, filename, _ string) string {
	c.calls[filename]++
	return c.answer
}

func (c *countingClassifier) total() int {
	n := 0
	for _, calls := range c.calls {
		n += calls
	}
	return n
}

func stateWith(assignments map[string]string) *models.CategoryState {
	state := models.NewCategoryState()
	for id, c := range assignments {
		state.FileCategories[id] = c
	}
	return state
}

func TestReconciler_RemovesGhostsAndBackfills(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorageWith(stateWith(map[string]string{
		"file-1":     models.FinancialReports,
		"file-ghost": models.MeetingDocuments,
	}))
	files := testutil.NewMockFileStore(
		models.FileRecord{ID: "file-1", Filename: "Budget_2024.pdf"},
		models.FileRecord{ID: "file-2", Filename: "2024_Fire_Drill_Plan.pdf"},
	)

	require.True(t, newTestReconciler(store, files).VerifyAndRepair(ctx))

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"file-1": models.FinancialReports,
		"file-2": models.EmergencySafety,
	}, state.FileCategories)
	assert.Equal(t, 2, store.Saves(), "ghost removal and backfill each save")
}

func TestReconciler_ResetsInvalidCategories(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorageWith(stateWith(map[string]string{
		"file-1": "Recipes",
	}))
	files := testutil.NewMockFileStore(models.FileRecord{ID: "file-1", Filename: "notes.pdf"})

	report, err := newTestReconciler(store, files).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.InvalidReset)
	assert.Zero(t, report.Recategorized)

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.GeneralDocuments, state.FileCategories["file-1"])
}

func TestReconciler_RecategorizesCatchAlls(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorageWith(stateWith(map[string]string{
		"file-1": models.GeneralDocuments,
		"file-2": models.Uncategorized,
		"file-3": models.Uncategorized,
		"file-4": models.MeetingDocuments,
	}))
	files := testutil.NewMockFileStore(
		models.FileRecord{ID: "file-1", Filename: "Work_Schedule.pdf"},
		models.FileRecord{ID: "file-2", Filename: "Parking_Guide.pdf"},
		models.FileRecord{ID: "file-3", Filename: "notes.pdf"},
		models.FileRecord{ID: "file-4", Filename: "budget.pdf"},
	)

	report, err := newTestReconciler(store, files).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Recategorized)

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.BuildingManagement, state.FileCategories["file-1"])
	assert.Equal(t, models.ResidentInformation, state.FileCategories["file-2"])
	assert.Equal(t, models.Uncategorized, state.FileCategories["file-3"], "no better match keeps the catch-all")
	assert.Equal(t, models.MeetingDocuments, state.FileCategories["file-4"], "explicit assignments are left alone")
}

func TestReconciler_SecondPassIsNoop(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorageWith(stateWith(map[string]string{
		"file-ghost": models.FinancialReports,
		"file-1":     "Recipes",
		"file-2":     models.Uncategorized,
	}))
	files := testutil.NewMockFileStore(
		models.FileRecord{ID: "file-1", Filename: "Budget_2024.pdf"},
		models.FileRecord{ID: "file-2", Filename: "Parking_Guide.pdf"},
		models.FileRecord{ID: "file-3", Filename: "random.pdf"},
	)
	r := newTestReconciler(store, files)

	first, err := r.Run(ctx)
	require.NoError(t, err)
	assert.True(t, first.Changed())
	saves := store.Saves()

	second, err := r.Run(ctx)
	require.NoError(t, err)
	assert.False(t, second.Changed())
	assert.Equal(t, saves, store.Saves())
}

func TestReconciler_FlagsMissingDefaultsWithoutCreating(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorageWith(&models.CategoryState{
		Categories:     []string{models.FinancialReports, models.GeneralDocuments},
		FileCategories: map[string]string{},
	})
	files := testutil.NewMockFileStore(models.FileRecord{ID: "file-1", Filename: "Pet_Policy.pdf"})

	report, err := newTestReconciler(store, files).Run(ctx)
	require.NoError(t, err)
	assert.Len(t, report.MissingCategories, 10)

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Categories, 2)
	assert.Equal(t, models.GeneralDocuments, state.FileCategories["file-1"], "suggestions outside the taxonomy are not used")

	second, err := newTestReconciler(store, files).Run(ctx)
	require.NoError(t, err)
	assert.False(t, second.Changed())
}

func TestReconciler_RemoteFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorageWith(stateWith(map[string]string{"file-1": models.FinancialReports}))
	files := testutil.NewMockFileStore()
	files.Fail = true

	assert.False(t, newTestReconciler(store, files).VerifyAndRepair(ctx))

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, state.FileCategories, 1, "nothing is pruned when the remote list fails")
	assert.Zero(t, store.Saves())
}

func TestReconciler_LimitedModeSkips(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorageWith(stateWith(map[string]string{"file-1": models.FinancialReports}))

	_, err := newTestReconciler(store, testutil.NewLimitedMockFileStore()).Run(ctx)
	assert.ErrorIs(t, err, ErrLimitedMode)
	assert.Zero(t, store.Saves())
}

func TestReconciler_FallsBackToUncategorizedWithoutGeneral(t *testing.T) {
	ctx := context.Background()
	state := stateWith(map[string]string{"file-1": models.GeneralDocuments})
	kept := state.Categories[:0]
	for _, c := range state.Categories {
		if c != models.GeneralDocuments {
			kept = append(kept, c)
		}
	}
	state.Categories = kept
	store := storage.NewMemoryStorageWith(state)
	files := testutil.NewMockFileStore(
		models.FileRecord{ID: "file-1", Filename: "notes.pdf"},
		models.FileRecord{ID: "file-2", Filename: "scan_0042.pdf"},
	)
	r := newTestReconciler(store, files)

	first, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Backfilled)
	assert.Equal(t, 1, first.InvalidReset)
	assert.Contains(t, first.MissingCategories, models.GeneralDocuments)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"file-1": models.Uncategorized,
		"file-2": models.Uncategorized,
	}, loaded.FileCategories)
	saves := store.Saves()

	for i := 0; i < 3; i++ {
		again, err := r.Run(ctx)
		require.NoError(t, err)
		assert.False(t, again.Changed())
		assert.Zero(t, again.InvalidReset)
	}
	assert.Equal(t, saves, store.Saves())
}

func TestReconciler_AsksClassifierOncePerFile(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorageWith(stateWith(map[string]string{
		"file-1": models.Uncategorized,
	}))
	files := testutil.NewMockFileStore(
		models.FileRecord{ID: "file-1", Filename: "scan_0041.pdf"},
		models.FileRecord{ID: "file-2", Filename: "scan_0042.pdf"},
		models.FileRecord{ID: "file-3", Filename: "scan_0043.pdf"},
		models.FileRecord{ID: "file-4", Filename: "budget.pdf"},
	)
	clf := newCountingClassifier(models.GeneralDocuments)
	r := New(store, files, nil, clf, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := r.Run(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, map[string]int{
		"scan_0041.pdf": 1,
		"scan_0042.pdf": 1,
		"scan_0043.pdf": 1,
	}, clf.calls, "keyword matches never reach the classifier")
}

func TestReconciler_ForgetsRemovedFiles(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	scan := models.FileRecord{ID: "file-1", Filename: "scan_0041.pdf"}
	files := testutil.NewMockFileStore(scan)
	clf := newCountingClassifier(models.GeneralDocuments)
	r := New(store, files, nil, clf, zap.NewNop())

	_, err := r.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, files.Delete(ctx, scan.ID))
	_, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, r.suggestions)

	files.Add(scan)
	_, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, clf.total(), "a file that comes back is classified again")
}

func TestReconciler_CancelledAnswerNotCached(t *testing.T) {
	store := storage.NewMemoryStorageWith(stateWith(map[string]string{"file-1": models.Uncategorized}))
	files := testutil.NewMockFileStore(models.FileRecord{ID: "file-1", Filename: "scan_0041.pdf"})
	clf := newCountingClassifier(models.GeneralDocuments)
	r := New(store, files, nil, clf, zap.NewNop())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, models.GeneralDocuments, r.suggest(cancelled, models.FileRecord{ID: "file-1", Filename: "scan_0041.pdf"}))
	assert.Empty(t, r.suggestions)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, clf.total())
}
