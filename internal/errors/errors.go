package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a tabstash error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"    // 400
	ErrImportParse     ErrorCode = "IMPORT_PARSE_ERROR" // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"          // 404
	ErrIndexOutOfRange ErrorCode = "INDEX_OUT_OF_RANGE" // 404
	ErrNoMatches       ErrorCode = "NO_MATCHES"         // 422
	ErrCancelled       ErrorCode = "CANCELLED"          // 499
	ErrInternal        ErrorCode = "INTERNAL"           // 500
	ErrStorage         ErrorCode = "STORAGE"            // 503
)

// statusClientClosed mirrors the nginx convention for a caller that went away.
const statusClientClosed = 499

// StashError represents a structured error with code, status, and details.
type StashError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *StashError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *StashError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *StashError {
	return &StashError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewImportParse creates a 400 error for an import payload that is not a valid collection document.
func NewImportParse(err error) *StashError {
	return &StashError{
		Code:    ErrImportParse,
		Status:  400,
		Message: fmt.Sprintf("import payload is not a valid groups document: %v", err),
		cause:   err,
	}
}

// NewNotFound creates a 404 error for when a group cannot be found.
func NewNotFound(id string) *StashError {
	return &StashError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("group not found: %s", id),
		Details: map[string]any{"group_id": id},
	}
}

// NewIndexOutOfRange creates a 404 error for a position outside a sequence.
func NewIndexOutOfRange(what string, index, length int) *StashError {
	return &StashError{
		Code:    ErrIndexOutOfRange,
		Status:  404,
		Message: fmt.Sprintf("%s index %d out of range (length %d)", what, index, length),
		Details: map[string]any{"index": index, "length": length},
	}
}

// NewNoMatches creates a 422 error when a URL pattern selects no tabs.
func NewNoMatches(pattern string) *StashError {
	return &StashError{
		Code:    ErrNoMatches,
		Status:  422,
		Message: fmt.Sprintf("no tabs match pattern %q", pattern),
		Details: map[string]any{"pattern": pattern},
	}
}

// NewCancelled creates an error for an operation whose context ended before it ran.
func NewCancelled(operation string) *StashError {
	return &StashError{
		Code:    ErrCancelled,
		Status:  statusClientClosed,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewStorage creates a 503 error for a failed persistence read or write.
func NewStorage(err error) *StashError {
	msg := "storage failure"
	if err != nil {
		msg = fmt.Sprintf("storage failure: %v", err)
	}
	return &StashError{
		Code:    ErrStorage,
		Status:  503,
		Message: msg,
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *StashError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &StashError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is (or wraps) a StashError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *StashError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As extracts a StashError from err. Errors that are not a StashError are
// reported as INTERNAL.
func As(err error) *StashError {
	if err == nil {
		return nil
	}
	var sErr *StashError
	if stderrors.As(err, &sErr) {
		return sErr
	}
	return NewInternal(err)
}
