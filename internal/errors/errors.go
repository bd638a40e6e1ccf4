package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Verso error code.
type ErrorCode string

const (
	ErrValidation  ErrorCode = "VALIDATION"  // 400
	ErrNotFound    ErrorCode = "NOT_FOUND"   // 404
	ErrConflict    ErrorCode = "CONFLICT"    // 409
	ErrConsistency ErrorCode = "CONSISTENCY" // 500 (invariant violated, fatal)
	ErrStore       ErrorCode = "STORE"       // 500 (persistence failure)
	ErrInternal    ErrorCode = "INTERNAL"    // 500
)

// VersoError represents a structured error with code, status, and details.
type VersoError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *VersoError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidation creates a 400 error for rejected input. Validation failures
// are raised before any write happens.
func NewValidation(msg string) *VersoError {
	return &VersoError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing version, owner, or field.
// Not-found is a normal outcome, not a failure.
func NewNotFound(identifier string) *VersoError {
	return &VersoError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *VersoError {
	return &VersoError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewConsistency creates a 500 error for an observed invariant violation,
// e.g. more than one current version for an owner. Must never be silently
// resolved into a not-found or an arbitrary pick.
func NewConsistency(msg string) *VersoError {
	return &VersoError{
		Code:    ErrConsistency,
		Status:  500,
		Message: msg,
	}
}

// NewStore creates a 500 error wrapping a persistence failure. The engine
// never retries; retries belong to the caller.
func NewStore(err error) *VersoError {
	msg := "store failure"
	if err != nil {
		msg = err.Error()
	}
	return &VersoError{
		Code:    ErrStore,
		Status:  500,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *VersoError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &VersoError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a VersoError with the given code, unwrapping as needed.
func Is(err error, code ErrorCode) bool {
	var vErr *VersoError
	if stderrors.As(err, &vErr) {
		return vErr.Code == code
	}
	return false
}
