package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xaenox/bwe-assistant/internal/models"
)

func TestExtractMonthYear(t *testing.T) {
	tests := []struct {
		name      string
		file      models.FileRecord
		want      models.MonthYear
		wantFound bool
	}{
		{
			name:      "month name then year",
			file:      models.FileRecord{Filename: "June_2023_budget.pdf"},
			want:      models.MonthYear{Month: 6, Year: 2023},
			wantFound: true,
		},
		{
			name:      "full month name",
			file:      models.FileRecord{Filename: "Minutes_September_2023.docx"},
			want:      models.MonthYear{Month: 9, Year: 2023},
			wantFound: true,
		},
		{
			name:      "abbreviation without separator",
			file:      models.FileRecord{Filename: "Budget_Dec2022.xlsx"},
			want:      models.MonthYear{Month: 12, Year: 2022},
			wantFound: true,
		},
		{
			name:      "year then month name",
			file:      models.FileRecord{Filename: "2024 March minutes.pdf"},
			want:      models.MonthYear{Month: 3, Year: 2024},
			wantFound: true,
		},
		{
			name:      "year then numeric month",
			file:      models.FileRecord{Filename: "2023-06-report.pdf"},
			want:      models.MonthYear{Month: 6, Year: 2023},
			wantFound: true,
		},
		{
			name:      "compact date",
			file:      models.FileRecord{Filename: "20230615_invoice.pdf"},
			want:      models.MonthYear{Month: 6, Year: 2023},
			wantFound: true,
		},
		{
			name:      "numeric month then year",
			file:      models.FileRecord{Filename: "03-2024_statement.pdf"},
			want:      models.MonthYear{Month: 3, Year: 2024},
			wantFound: true,
		},
		{
			name:      "created_at fallback",
			file:      models.FileRecord{Filename: "random.pdf", CreatedAt: "2022-01-15"},
			want:      models.MonthYear{Month: 1, Year: 2022},
			wantFound: true,
		},
		{
			name:      "out of range month falls through to created_at",
			file:      models.FileRecord{Filename: "Report_2024_15.pdf", CreatedAt: "2024-02-10"},
			want:      models.MonthYear{Month: 2, Year: 2024},
			wantFound: true,
		},
		{
			name:      "unparseable created_at",
			file:      models.FileRecord{Filename: "random.pdf", CreatedAt: "15/01/2022"},
			wantFound: false,
		},
		{
			name:      "nothing to go on",
			file:      models.FileRecord{Filename: "random.pdf"},
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractMonthYear(tt.file)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
