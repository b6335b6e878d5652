package model

import "fmt"

// ErrorCode represents a structured API error code.
type ErrorCode string

const (
	ErrValidation   ErrorCode = "VALIDATION_ERROR"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrUnknownAlgo  ErrorCode = "UNKNOWN_ALGORITHM"
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrUnavailable  ErrorCode = "UNAVAILABLE"
)

// APIError is a structured error returned by the schedkit API.
type APIError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates an APIError with validation details.
func NewValidationError(msg string, details ...FieldError) *APIError {
	return &APIError{Code: ErrValidation, Message: msg, Details: details}
}

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s '%s' not found", resource, id),
	}
}

// ValueError reports an invalid task or platform parameter. It is raised
// before any algorithm runs.
type ValueError struct {
	Task    int // index into the task set, -1 when not task specific
	Field   string
	Value   int64
	Message string
}

func (e *ValueError) Error() string {
	if e.Task < 0 {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("task %d: invalid %s %d: %s", e.Task, e.Field, e.Value, e.Message)
}

// FieldError converts the error into an API validation detail.
func (e *ValueError) FieldError() FieldError {
	fe := FieldError{Field: e.Field, Message: e.Message}
	if e.Task >= 0 {
		fe.Path = fmt.Sprintf("tasks[%d].%s", e.Task, e.Field)
	}
	return fe
}
