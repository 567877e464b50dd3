package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// Validation errors - caused by bad caller input
	ErrorTypeValidation ErrorType = "validation"
	// Upstream errors - the GitHub API rejected or failed a request
	ErrorTypeUpstream ErrorType = "upstream"
	// RateLimit errors - the GitHub API reported a rate limit (403)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// NotFound errors - a requested record does not exist
	ErrorTypeNotFound ErrorType = "not_found"
	// Database errors - database operation failures
	ErrorTypeDatabase ErrorType = "database"
	// Internal errors - everything else
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured error with context
type Error struct {
	// Type categorizes the error
	Type ErrorType
	// Message is the error message
	Message string
	// Field names the offending input field for validation errors
	Field string
	// Cause is the underlying error
	Cause error
	// Context provides additional context
	Context map[string]interface{}
	// Timestamp when error occurred
	Timestamp time.Time
	// File and Line where error was created
	File string
	Line int
	// HTTPStatus is the recommended HTTP status code
	HTTPStatus int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithField tags the error with the offending input field
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	_, file, line, _ := runtime.Caller(1)

	return &Error{
		Type:       errType,
		Message:    message,
		Timestamp:  time.Now(),
		File:       file,
		Line:       line,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	_, file, line, _ := runtime.Caller(1)

	return &Error{
		Type:       errType,
		Message:    message,
		Cause:      err,
		Timestamp:  time.Now(),
		File:       file,
		Line:       line,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

func getDefaultHTTPStatus(errType ErrorType) int {
	switch errType {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeUpstream, ErrorTypeRateLimit:
		return http.StatusServiceUnavailable
	case ErrorTypeDatabase:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// TypeOf returns the structured type of err, or ErrorTypeInternal for
// plain errors.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err carries the given structured type.
func IsType(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// AsError extracts the structured error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
