package models

import (
	"strconv"
	"time"
)

// CreatedAtLayout is the format of FileRecord.CreatedAt.
const CreatedAtLayout = "2006-01-02"

// FileRecord mirrors a file held by the remote assistant store
type FileRecord struct {
	ID        string `json:"id" msgpack:"id"`
	Filename  string `json:"filename" msgpack:"filename"`
	CreatedAt string `json:"created_at" msgpack:"created_at"`
	Bytes     int64  `json:"bytes" msgpack:"bytes"`
	Purpose   string `json:"purpose" msgpack:"purpose"`
}

// CreatedTime parses CreatedAt, returning the zero time when it is not a valid date.
func (f FileRecord) CreatedTime() time.Time {
	t, err := time.Parse(CreatedAtLayout, f.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// MonthYear is a calendar month inferred for a file
type MonthYear struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Before reports whether m is chronologically earlier than o.
func (m MonthYear) Before(o MonthYear) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// String renders the month as "March 2024".
func (m MonthYear) String() string {
	return time.Month(m.Month).String() + " " + strconv.Itoa(m.Year)
}

// CategoryState is the persisted taxonomy and file → category assignments
type CategoryState struct {
	Categories     []string          `json:"categories"`
	FileCategories map[string]string `json:"file_categories"`
}

// NewCategoryState returns a state holding the default taxonomy and no assignments.
func NewCategoryState() *CategoryState {
	return &CategoryState{
		Categories:     DefaultCategories(),
		FileCategories: make(map[string]string),
	}
}

// Clone returns a deep copy of the state.
func (s *CategoryState) Clone() *CategoryState {
	c := &CategoryState{
		Categories:     append([]string(nil), s.Categories...),
		FileCategories: make(map[string]string, len(s.FileCategories)),
	}
	for id, cat := range s.FileCategories {
		c.FileCategories[id] = cat
	}
	return c
}

// HasCategory reports whether name is part of the taxonomy.
func (s *CategoryState) HasCategory(name string) bool {
	for _, c := range s.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// CategoryBucket groups the files of one category for display
type CategoryBucket struct {
	Name  string       `json:"name" msgpack:"name"`
	Files []FileRecord `json:"files" msgpack:"files"`
	Gaps  []string     `json:"gaps,omitempty" msgpack:"gaps,omitempty"`
}

// CategoryView is the categorized listing rendered by the front ends
type CategoryView struct {
	Categories  []CategoryBucket `json:"categories" msgpack:"categories"`
	Selected    string           `json:"selected,omitempty" msgpack:"selected,omitempty"`
	LimitedMode bool             `json:"limited_mode" msgpack:"limited_mode"`
	Error       string           `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Bucket returns the bucket with the given name, or nil.
func (v *CategoryView) Bucket(name string) *CategoryBucket {
	for i := range v.Categories {
		if v.Categories[i].Name == name {
			return &v.Categories[i]
		}
	}
	return nil
}

// SearchResult is one filename match with its resolved category
type SearchResult struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Category  string `json:"category"`
	CreatedAt string `json:"created_at"`
}
