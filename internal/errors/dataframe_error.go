// Package errors provides standardized error types for the compliance layer.
// This package defines DataFrameError for consistent error handling across
// namespaces, frames and expressions, with operation context and error
// wrapping support.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Sentinel causes. Match them with errors.Is.
var (
	// ErrTypeMismatch is the cause of a failed native admission check.
	ErrTypeMismatch = stderrors.New("type mismatch")
	// ErrInternal marks an internal consistency failure (a programming error).
	ErrInternal = stderrors.New("internal consistency failure")
	// ErrUnreachable marks a dispatch value outside its closed set.
	ErrUnreachable = stderrors.New("unreachable branch")
	// ErrInvalidInput marks a user input that cannot be processed.
	ErrInvalidInput = stderrors.New("invalid input")
	// ErrUnsupported marks an operation a backend does not provide.
	ErrUnsupported = stderrors.New("unsupported operation")
)

// DataFrameError represents standardized errors across all operations
type DataFrameError struct {
	Op      string // Operation name (e.g., "from_native", "concat", "select")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *DataFrameError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s operation failed on column '%s': %s", e.Op, e.Column, e.Message)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *DataFrameError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is()
func (e *DataFrameError) Is(target error) bool {
	if df, ok := target.(*DataFrameError); ok {
		return e.Op == df.Op && e.Column == df.Column && e.Message == df.Message
	}
	return false
}

// TypeName returns the runtime type name used in type mismatch messages.
func TypeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

// NewTypeMismatchError creates an error for a value rejected by an admission check.
// The message names the rejected runtime type.
func NewTypeMismatchError(op string, value any) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: fmt.Sprintf("unsupported type: %q", TypeName(value)),
		Cause:   ErrTypeMismatch,
	}
}

// NewInternalError creates an error for internal consistency failures
func NewInternalError(op, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: message,
		Cause:   ErrInternal,
	}
}

// NewUnreachableError creates an error for a dispatch value outside its closed set
func NewUnreachableError(op string, value any) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: fmt.Sprintf("unexpected value %v", value),
		Cause:   ErrUnreachable,
	}
}

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Message: "column does not exist",
		Cause:   ErrInvalidInput,
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: message,
		Cause:   ErrInvalidInput,
	}
}

// NewUnsupportedError creates an error for operations a backend does not provide
func NewUnsupportedError(op, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: message,
		Cause:   ErrUnsupported,
	}
}

// NewBackendError wraps a failure reported by a native backend
func NewBackendError(op string, cause error) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: cause.Error(),
		Cause:   cause,
	}
}
