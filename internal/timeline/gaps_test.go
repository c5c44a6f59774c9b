package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/bwe-assistant/internal/models"
)

func fixedDetector(now time.Time) *GapDetector {
	return &GapDetector{Now: func() time.Time { return now }}
}

func TestGapDetector_IdentifyGaps(t *testing.T) {
	files := []models.FileRecord{
		{ID: "1", Filename: "Budget_January_2024.pdf"},
		{ID: "2", Filename: "Budget_February_2024.pdf"},
		{ID: "3", Filename: "Budget_April_2024.pdf"},
	}
	d := fixedDetector(time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC))

	assert.Equal(t, []string{"March 2024"}, d.IdentifyGaps(files))
}

func TestGapDetector_UnorderedAndUndatedInput(t *testing.T) {
	files := []models.FileRecord{
		{ID: "1", Filename: "notes.pdf"},
		{ID: "2", Filename: "Report_2023-12.pdf"},
		{ID: "3", Filename: "Report_2023-10.pdf"},
	}
	d := fixedDetector(time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, []string{"November 2023", "January 2024"}, d.IdentifyGaps(files))
}

func TestGapDetector_ClampsToTrailingYear(t *testing.T) {
	files := []models.FileRecord{{ID: "1", Filename: "Budget_January_2020.pdf"}}
	d := fixedDetector(time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC))

	gaps := d.IdentifyGaps(files)
	require.Len(t, gaps, 12)
	assert.Equal(t, "June 2023", gaps[0])
	assert.Equal(t, "May 2024", gaps[11])
}

func TestGapDetector_NoDatedFiles(t *testing.T) {
	d := fixedDetector(time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC))

	assert.Empty(t, d.IdentifyGaps(nil))
	assert.Empty(t, d.IdentifyGaps([]models.FileRecord{{ID: "1", Filename: "notes.pdf"}}))
}

func TestGapDetector_CurrentMonthOnly(t *testing.T) {
	files := []models.FileRecord{{ID: "1", Filename: "Budget_May_2024.pdf"}}
	d := fixedDetector(time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC))

	assert.Empty(t, d.IdentifyGaps(files))
}

func TestSortByPeriod(t *testing.T) {
	files := []models.FileRecord{
		{ID: "a", Filename: "Budget_January_2024.pdf"},
		{ID: "b", Filename: "notes.pdf"},
		{ID: "c", Filename: "Budget_March_2024.pdf"},
		{ID: "d", Filename: "Budget_February_2023.pdf"},
	}

	SortByPeriod(files)

	var ids []string
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"c", "a", "d", "b"}, ids)
}
