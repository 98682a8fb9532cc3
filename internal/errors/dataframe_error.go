// Package errors provides standardized error types for DataFrame operations.
// This package defines DataFrameError for consistent error handling across
// all public APIs, with operation context and error wrapping support.
package errors

import (
	"fmt"
)

// DataFrameError represents standardized errors across all DataFrame operations
type DataFrameError struct {
	Op      string // Operation name (e.g., "Select", "Where", "Join")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *DataFrameError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Column != "" {
		return fmt.Sprintf("%s operation failed on column '%s': %s", e.Op, e.Column, msg)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Op, msg)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *DataFrameError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// An empty Op or Column on the target acts as a wildcard so that the
// predefined sentinels match errors raised by any operation.
func (e *DataFrameError) Is(target error) bool {
	df, ok := target.(*DataFrameError)
	if !ok {
		return false
	}
	if df.Op != "" && df.Op != e.Op {
		return false
	}
	if df.Column != "" && df.Column != e.Column {
		return false
	}
	return e.Message == df.Message
}

// Messages shared between constructors and sentinels.
const (
	msgColumnNotFound = "column does not exist"
	msgNotGrouped     = "having can only be used after group by"
	msgSchemaMismatch = "schemas do not match"
	msgLengthMismatch = "arrays must have the same length"
)

// Common error constructors for consistent error creation

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Message: msgColumnNotFound,
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: message,
	}
}

// NewUnsupportedTypeError creates an error for unsupported data types
func NewUnsupportedTypeError(op, typeName string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
	}
}

// NewValidationError creates an error for input validation failures
func NewValidationError(op, column, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Message: message,
	}
}

// NewParseError creates an error for literals or expressions that cannot be parsed
func NewParseError(op, column string, cause error) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Message: "cannot parse value",
		Cause:   cause,
	}
}

// NewSchemaMismatchError creates an error for operations combining incompatible frames
func NewSchemaMismatchError(op string, cause error) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: msgSchemaMismatch,
		Cause:   cause,
	}
}

// NewNotGroupedError creates the usage error raised by Having on an ungrouped frame
func NewNotGroupedError(op string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: msgNotGrouped,
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: "internal error occurred",
		Cause:   cause,
	}
}

// Predefined error variables for common cases. They carry no Op so that
// errors.Is matches them against errors from any operation.
var (
	// ErrColumnNotFound matches every column lookup failure
	ErrColumnNotFound = &DataFrameError{Message: msgColumnNotFound}

	// ErrNotGrouped indicates Having was called on a frame that was never grouped
	ErrNotGrouped = &DataFrameError{Message: msgNotGrouped}

	// ErrSchemaMismatch indicates two frames cannot be combined
	ErrSchemaMismatch = &DataFrameError{Message: msgSchemaMismatch}

	// ErrMismatchedLength indicates length mismatches in operations
	ErrMismatchedLength = &DataFrameError{Message: msgLengthMismatch}
)
