// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xaenox/bwe-assistant/internal/catalog"
	"github.com/xaenox/bwe-assistant/internal/reconcile"
	"go.uber.org/zap"
)

// APIError is the {success:false, error} envelope returned by JSON routes.
type APIError struct {
	Status  int    `json:"-"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: message,
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// serviceError maps catalog errors onto API errors.
func serviceError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, catalog.ErrMissingField),
		errors.Is(err, catalog.ErrInvalidCategory),
		errors.Is(err, catalog.ErrProtectedCategory),
		errors.Is(err, catalog.ErrEmptyQuery),
		errors.Is(err, catalog.ErrNoFile),
		errors.Is(err, catalog.ErrFileTypeNotAllowed):
		return NewBadRequestError(err.Error(), nil)
	case errors.Is(err, catalog.ErrFileNotFound),
		errors.Is(err, catalog.ErrUnknownCategory):
		return NewNotFoundError(err.Error())
	case errors.Is(err, catalog.ErrCategoryExists):
		return NewConflictError(err.Error())
	case errors.Is(err, catalog.ErrRemote),
		errors.Is(err, reconcile.ErrLimitedMode):
		return NewServiceUnavailableError("Remote file store unavailable", err)
	case errors.Is(err, catalog.ErrStorage):
		return NewInternalError("Failed to save categories", err)
	default:
		return NewInternalError("An unexpected error occurred", err)
	}
}

// ErrorHandler renders every error as an APIError envelope. Details are
// only exposed in development.
// Usage: e.HTTPErrorHandler = api.ErrorHandler(logger, development)
func ErrorHandler(logger *zap.Logger, development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *APIError
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &httpErr):
			apiErr = &APIError{
				Status:  httpErr.Code,
				Code:    "HTTP_ERROR",
				Message: fmt.Sprintf("%v", httpErr.Message),
			}
		default:
			apiErr = serviceError(err)
		}

		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.Error(err),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path))
		}

		out := *apiErr
		if !development {
			out.Details = ""
		}
		if err := c.JSON(out.Status, out); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
	}
}
