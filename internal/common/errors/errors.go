// Package errors provides the standardized error taxonomy shared by the
// API boundary, the workflow consumers, and the canary runner.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// Kind represents a standardized internal error kind.
type Kind string

const (
	KindBadRequest        Kind = "BAD_REQUEST"
	KindNotAuthenticated  Kind = "NOT_AUTHENTICATED"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindValidationFailure Kind = "VALIDATION_FAILURE"
	KindInternal          Kind = "INTERNAL"
	KindCanaryFailure     Kind = "CANARY_FAILURE"
)

// APIError is a structured application error. Endpoints raise these; the
// invoker converts them to wire responses exactly once at the boundary.
type APIError struct {
	Kind       Kind      `json:"kind"`
	Entity     string    `json:"entity,omitempty"`
	Field      string    `json:"field,omitempty"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	HTTPStatus int       `json:"httpStatus"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("APIError[%s]: %s", e.Kind, e.Message)
}

// Expected reports whether this kind is a client-correctable failure.
// Expected failures render with the endpoint's declared status (typically
// 200/201) and Status=Failure; only unexpected ones render as 500.
func (e *APIError) Expected() bool {
	return e.Kind != KindInternal
}

// ==========================
// Constructors
// ==========================

// NewBadRequest signals a malformed request (missing fields or headers).
func NewBadRequest(message string) *APIError {
	return &APIError{
		Kind:       KindBadRequest,
		Message:    message,
		HTTPStatus: http.StatusOK,
		Timestamp:  time.Now().UTC(),
	}
}

// NewNotAuthenticated signals a missing, malformed, expired, or revoked
// bearer token. Details are logged server-side, never echoed to the caller.
func NewNotAuthenticated(details string) *APIError {
	return &APIError{
		Kind:       KindNotAuthenticated,
		Message:    "Not authenticated!",
		Details:    details,
		HTTPStatus: http.StatusOK,
		Timestamp:  time.Now().UTC(),
	}
}

// NewNotFound signals that a referenced entity does not exist.
func NewNotFound(entity string) *APIError {
	return &APIError{
		Kind:       KindNotFound,
		Entity:     entity,
		Message:    fmt.Sprintf("%s does not exist!", entity),
		HTTPStatus: http.StatusOK,
		Timestamp:  time.Now().UTC(),
	}
}

// NewConflict signals that the entity being created already exists.
func NewConflict(entity string) *APIError {
	return &APIError{
		Kind:       KindConflict,
		Entity:     entity,
		Message:    fmt.Sprintf("%s already exists!", entity),
		HTTPStatus: http.StatusOK,
		Timestamp:  time.Now().UTC(),
	}
}

// NewValidationFailure signals a field-level validation error.
func NewValidationFailure(field, reason string) *APIError {
	return &APIError{
		Kind:       KindValidationFailure,
		Field:      field,
		Message:    fmt.Sprintf("Invalid %s: %s", field, reason),
		HTTPStatus: http.StatusOK,
		Timestamp:  time.Now().UTC(),
	}
}

// NewInternal wraps an unexpected error. The client-facing message is
// generic; the original error text lives in Details for server-side logs.
func NewInternal(err error) *APIError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &APIError{
		Kind:       KindInternal,
		Message:    "Internal server error",
		Details:    details,
		HTTPStatus: http.StatusInternalServerError,
		Timestamp:  time.Now().UTC(),
	}
}

// NewCanaryFailure signals a synthetic-probe assertion failure. These never
// reach API clients; they drive canary metrics and ops alerts.
func NewCanaryFailure(check, details string) *APIError {
	return &APIError{
		Kind:       KindCanaryFailure,
		Field:      check,
		Message:    fmt.Sprintf("Canary check failed: %s", check),
		Details:    details,
		HTTPStatus: http.StatusInternalServerError,
		Timestamp:  time.Now().UTC(),
	}
}

// ==========================
// Utility Functions
// ==========================

// Normalize ensures we always have an APIError. Anything that is not
// already an APIError becomes Internal.
func Normalize(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternal(err)
}

// KindOf returns the kind of an error, Internal for foreign errors.
func KindOf(err error) Kind {
	return Normalize(err).Kind
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
