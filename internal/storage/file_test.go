package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/bwe-assistant/internal/models"
	"go.uber.org/zap"
)

func createTestFileStorage(t *testing.T) (*FileStorage, string) {
	path := filepath.Join(t.TempDir(), "data", "categories.json")
	store, err := NewFileStorage(path, zap.NewNop())
	require.NoError(t, err)
	return store, path
}

func TestFileStorage_MissingFileCreatesDefaults(t *testing.T) {
	store, path := createTestFileStorage(t)

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategories(), state.Categories)
	assert.Empty(t, state.FileCategories)

	_, err = os.Stat(path)
	assert.NoError(t, err, "defaults should be written to disk")
}

func TestFileStorage_CorruptFileIsRecreated(t *testing.T) {
	store, path := createTestFileStorage(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategories(), state.Categories)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestFileStorage_DocumentLayout(t *testing.T) {
	store, path := createTestFileStorage(t)
	ctx := context.Background()

	state := models.NewCategoryState()
	state.FileCategories["file-abc"] = models.FinancialReports
	require.NoError(t, store.Save(ctx, state))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "categories")
	assert.Contains(t, doc, "file_categories")
	assert.Contains(t, string(data), `"file-abc": "Financial Reports"`)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
}

func TestFileStorage_PartialDocumentIsNormalized(t *testing.T) {
	store, path := createTestFileStorage(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"file_categories": {"f1": "Meeting Documents"}}`), 0644))

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategories(), state.Categories)
	assert.Equal(t, models.MeetingDocuments, state.FileCategories["f1"])
}

func TestFileStorage_CustomTaxonomyPersists(t *testing.T) {
	store, path := createTestFileStorage(t)
	ctx := context.Background()

	state := models.NewCategoryState()
	state.Categories = append(state.Categories, "Pool & Spa", "New Category 13")
	state.FileCategories["f1"] = "Pool & Spa"
	state.FileCategories["f2"] = models.Uncategorized
	require.NoError(t, store.Save(ctx, state))

	reopened, err := NewFileStorage(path, zap.NewNop())
	require.NoError(t, err)
	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(state, loaded); diff != "" {
		t.Errorf("state mismatch after reopen (-want +got):\n%s", diff)
	}
}
