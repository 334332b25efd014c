// Package errors provides the typed error taxonomy for the ledger client.
// Every failure surfaced to a caller is an *AppError carrying a stable code
// and a human-readable message; remote error payloads are decoded into this
// shape instead of being probed dynamically.
package errors

import (
	"sort"
	"strings"
)

// AppError represents a structured application error with an error code,
// human-readable message, optional per-field detail, and an optional
// wrapped internal error.
type AppError struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	Internal error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message but wrapping an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:     sentinel.Code,
		Message:  sentinel.Message,
		Internal: internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:     sentinel.Code,
		Message:  message,
		Internal: sentinel.Internal,
	}
}

// NewValidation creates an invalid-input error carrying per-field messages.
func NewValidation(fields map[string]string) *AppError {
	return &AppError{
		Code:    ErrInvalidInput.Code,
		Message: ErrInvalidInput.Message,
		Fields:  fields,
	}
}

// Authentication errors.
var (
	ErrUnauthenticated    = &AppError{Code: "UNAUTHENTICATED", Message: "Sign in to access the ledger"}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password"}
	ErrSessionExpired     = &AppError{Code: "SESSION_EXPIRED", Message: "Your session has expired, please sign in again"}
)

// Input errors.
var (
	ErrInvalidInput = &AppError{Code: "INVALID_INPUT", Message: "Invalid input"}
)

// Remote collaborator errors.
var (
	ErrNotFound    = &AppError{Code: "NOT_FOUND", Message: "Resource not found"}
	ErrRemote      = &AppError{Code: "REMOTE_ERROR", Message: "The server could not process the request"}
	ErrUnreachable = &AppError{Code: "UNREACHABLE", Message: "Could not reach the server"}
)

// Local state errors.
var (
	ErrLocalState = &AppError{Code: "LOCAL_STATE", Message: "Could not access local session state"}
)
