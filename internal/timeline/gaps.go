package timeline

import (
	"sort"
	"time"

	"github.com/xaenox/bwe-assistant/internal/models"
)

// lookback is how far back a series may reach before the scan is clamped to
// the trailing twelve months.
const lookback = 365 * 24 * time.Hour

// GapDetector finds months with no file in a monthly report series.
type GapDetector struct {
	// Now is read once per call. Tests replace it with a fixed clock.
	Now func() time.Time
}

func NewGapDetector() *GapDetector {
	return &GapDetector{Now: time.Now}
}

// IdentifyGaps lists, oldest first, the months between the earliest dated
// file and the current month that have no file. Undated files are ignored.
// The current month is still in progress and is never reported.
func (d *GapDetector) IdentifyGaps(files []models.FileRecord) []string {
	present := make(map[models.MonthYear]struct{})
	var earliest models.MonthYear
	for _, f := range files {
		my, ok := ExtractMonthYear(f)
		if !ok {
			continue
		}
		if len(present) == 0 || my.Before(earliest) {
			earliest = my
		}
		present[my] = struct{}{}
	}
	if len(present) == 0 {
		return nil
	}

	now := d.Now()
	start := time.Date(earliest.Year, time.Month(earliest.Month), 1, 0, 0, 0, 0, now.Location())
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if now.Sub(start) > lookback {
		start = current.AddDate(0, -12, 0)
	}

	var missing []string
	for m := start; m.Before(current); m = m.AddDate(0, 1, 0) {
		key := models.MonthYear{Month: int(m.Month()), Year: m.Year()}
		if _, ok := present[key]; !ok {
			missing = append(missing, key.String())
		}
	}
	return missing
}

// SortByPeriod orders files newest period first. Files without a period keep
// their relative order after the dated ones.
func SortByPeriod(files []models.FileRecord) {
	type entry struct {
		file   models.FileRecord
		period models.MonthYear
		dated  bool
	}
	entries := make([]entry, len(files))
	for i, f := range files {
		my, ok := ExtractMonthYear(f)
		entries[i] = entry{file: f, period: my, dated: ok}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.dated != b.dated {
			return a.dated
		}
		return b.period.Before(a.period)
	})
	for i := range entries {
		files[i] = entries[i].file
	}
}
