// Package timeline infers report periods from file metadata and finds the
// months missing from a monthly series.
package timeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xaenox/bwe-assistant/internal/models"
)

const monthNames = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

type datePattern struct {
	re   *regexp.Regexp
	kind patternKind
}

type patternKind int

const (
	nameThenYear patternKind = iota
	yearThenName
	numericPair
)

// Tried in order against the lowercased filename; only the first match of
// each pattern is considered.
var datePatterns = []datePattern{
	{regexp.MustCompile(monthNames + `[- _]*(\d{4})`), nameThenYear},
	{regexp.MustCompile(`(\d{4})[- _]*` + monthNames), yearThenName},
	{regexp.MustCompile(`(\d{4})[- _]*(\d{1,2})`), numericPair},
	{regexp.MustCompile(`(\d{1,2})[- _]*(\d{4})`), numericPair},
}

var monthPrefixes = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// ExtractMonthYear returns the best-guess period of a file from its filename,
// falling back to its creation date. Two bare numbers are told apart only by
// magnitude, so "03-04" style names never resolve from the filename.
func ExtractMonthYear(file models.FileRecord) (models.MonthYear, bool) {
	filename := strings.ToLower(file.Filename)

	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(filename)
		if m == nil {
			continue
		}
		if my, ok := p.resolve(m[1], m[2]); ok {
			return my, true
		}
	}

	if file.CreatedAt != "" {
		if t, err := time.Parse(models.CreatedAtLayout, file.CreatedAt); err == nil {
			return models.MonthYear{Month: int(t.Month()), Year: t.Year()}, true
		}
	}

	return models.MonthYear{}, false
}

func (p datePattern) resolve(first, second string) (models.MonthYear, bool) {
	var month, year int
	switch p.kind {
	case nameThenYear:
		month = monthPrefixes[first[:3]]
		year, _ = strconv.Atoi(second)
	case yearThenName:
		year, _ = strconv.Atoi(first)
		month = monthPrefixes[second[:3]]
	default:
		a, _ := strconv.Atoi(first)
		b, _ := strconv.Atoi(second)
		if a > 1000 {
			year, month = a, b
		} else {
			month, year = a, b
		}
	}

	if month < 1 || month > 12 || year < 1 {
		return models.MonthYear{}, false
	}
	return models.MonthYear{Month: month, Year: year}, true
}
