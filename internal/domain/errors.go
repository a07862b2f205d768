package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeValidation indicates malformed or out-of-range input.
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypePrecondition indicates a required context key was absent.
	ErrorTypePrecondition ErrorType = "precondition"

	// ErrorTypeDependency indicates a store or codec failure.
	ErrorTypeDependency ErrorType = "dependency"

	// ErrorTypeConflict indicates a duplicate composite key on insert.
	ErrorTypeConflict ErrorType = "conflict"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeDuplicateReview ErrorCode = "duplicate_review"
	ErrorCodeSauceNotFound   ErrorCode = "sauce_not_found"
	ErrorCodeMissingSecret   ErrorCode = "missing_secret"
)

// APIError is the canonical error carried out of a pipeline stage. Every
// failure path converts into one of these before a reply is written; no error
// is ever fatal to the process.
type APIError struct {
	// Type is the category of error.
	Type ErrorType `json:"type"`

	// Code is an optional specific error code.
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message returned to the caller.
	Message string `json:"message"`

	// StatusCode overrides the type's default HTTP status when non-zero.
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the compat status code for this error. The set
// {401, 300, 400} is preserved as-is from the original API contract, 300
// for missing preconditions included.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusUnauthorized
	case ErrorTypePrecondition:
		return http.StatusMultipleChoices
	case ErrorTypeDependency, ErrorTypeConflict:
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

// WithCode adds an error code to the error.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// ErrValidation creates a validation error (reported 401, never retried).
func ErrValidation(message string) *APIError {
	return &APIError{Type: ErrorTypeValidation, Message: message}
}

// ErrPrecondition creates a missing-precondition error (reported 300).
func ErrPrecondition(message string) *APIError {
	return &APIError{Type: ErrorTypePrecondition, Message: message}
}

// ErrDependency creates a dependency failure (reported 400, retryable at the
// caller's discretion).
func ErrDependency(message string) *APIError {
	return &APIError{Type: ErrorTypeDependency, Message: message}
}

// ErrConflict creates a conflict error, distinguishable from generic
// dependency failures by its type and code.
func ErrConflict(message string) *APIError {
	return (&APIError{Type: ErrorTypeConflict, Message: message}).WithCode(ErrorCodeDuplicateReview)
}

// AsAPIError coerces an arbitrary error into an APIError. Errors that are not
// already typed are treated as dependency failures with the given fallback
// message so they never escape a stage unconverted.
func AsAPIError(err error, fallback string) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrDependency(fallback)
}

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeConflict
}
