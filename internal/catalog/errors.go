package catalog

import "errors"

var (
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrCategoryExists     = errors.New("category already exists")
	ErrProtectedCategory  = errors.New("category cannot be deleted")
	ErrFileNotFound       = errors.New("file not found")
	ErrNoFile             = errors.New("no file selected")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrEmptyQuery         = errors.New("no search query provided")
	ErrRemote             = errors.New("remote store error")
	ErrStorage            = errors.New("category storage error")
)
