package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents different types of application errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeStore      ErrorType = "store_unavailable"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeAuth       ErrorType = "authentication"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// NewValidationError creates a new validation error (malformed user input)
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewStoreError creates an error for an unreachable or failing persistence backend
func NewStoreError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeStore,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Internal:   internal,
	}
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(message string, retryAfter time.Duration) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Details:    map[string]interface{}{"retry_after_seconds": int(retryAfter.Seconds())},
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuth,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// ErrorResponse represents the JSON error response
type ErrorResponse struct {
	Error struct {
		Type      ErrorType              `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}
