package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/bwe-assistant/internal/models"
	"go.uber.org/zap"
)

// createTestPostgresStorage connects to DATABASE_URL and empties both tables.
// The database is shared, so these tests must not run in parallel.
func createTestPostgresStorage(t *testing.T) *PostgresStorage {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	store, err := openPostgres(dsn, zap.NewNop())
	require.NoError(t, err)

	truncate := func() {
		_, err := store.db.Exec(`TRUNCATE categories, file_categories`)
		require.NoError(t, err)
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		store.Close()
	})
	return store
}

func TestPostgresStorage_SchemaIsIdempotent(t *testing.T) {
	store := createTestPostgresStorage(t)

	assert.NoError(t, store.initializeSchema())
}

func TestPostgresStorage_EmptyDatabaseSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	store := createTestPostgresStorage(t)

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategories(), state.Categories)
	assert.Empty(t, state.FileCategories)

	categories, err := store.loadCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategories(), categories, "defaults are persisted")
}

func TestPostgresStorage_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := createTestPostgresStorage(t)

	want := &models.CategoryState{
		Categories: []string{"Pool & Spa", models.FinancialReports, models.GeneralDocuments, models.Uncategorized},
		FileCategories: map[string]string{
			"file-1": models.FinancialReports,
			"file-2": "Pool & Spa",
			"file-3": models.Uncategorized,
		},
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestPostgresStorage_SaveReplacesRows(t *testing.T) {
	ctx := context.Background()
	store := createTestPostgresStorage(t)

	first := models.NewCategoryState()
	first.FileCategories["file-1"] = models.FinancialReports
	first.FileCategories["file-2"] = models.MeetingDocuments
	require.NoError(t, store.Save(ctx, first))

	second := &models.CategoryState{
		Categories:     []string{models.MeetingDocuments, models.GeneralDocuments, models.Uncategorized},
		FileCategories: map[string]string{"file-2": models.GeneralDocuments},
	}
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(second, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}
