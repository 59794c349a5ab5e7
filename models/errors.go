package models

import (
	"context"
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeParse        = "PARSE_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// AsDetail converts any error into an ErrorDetail, falling back to
// ErrCodeInternal for errors that are not a *ScrapeError.
func AsDetail(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.ToDetail()
	}
	return &ErrorDetail{Code: ErrCodeInternal, Message: err.Error()}
}

// IsNotFound reports whether err carries ErrCodeNotFound anywhere in its chain.
func IsNotFound(err error) bool {
	var se *ScrapeError
	return errors.As(err, &se) && se.Code == ErrCodeNotFound
}

// CategorizeError wraps raw errors into typed ScrapeErrors so callers can
// tell timeouts from navigation failures. ScrapeErrors pass through.
func CategorizeError(err error, msg string) *ScrapeError {
	var se *ScrapeError
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, context.DeadlineExceeded):
		return NewScrapeError(ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return NewScrapeError(ErrCodeTimeout, "request canceled", err)
	default:
		return NewScrapeError(ErrCodeNavigation, msg, err)
	}
}
