package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/paveg/seekwell/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestDataFrameError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.DataFrameError
		expected string
	}{
		{
			name: "Error with column",
			err: &errors.DataFrameError{
				Op:      "OrderBy",
				Column:  "age",
				Message: "column does not exist",
			},
			expected: "OrderBy operation failed on column 'age': column does not exist",
		},
		{
			name: "Error without column",
			err: &errors.DataFrameError{
				Op:      "Join",
				Message: "mismatched lengths",
			},
			expected: "Join operation failed: mismatched lengths",
		},
		{
			name: "Error with cause",
			err: &errors.DataFrameError{
				Op:      "Cast",
				Column:  "mass",
				Message: "cannot parse value",
				Cause:   stderrors.New("bad digit"),
			},
			expected: "Cast operation failed on column 'mass': cannot parse value: bad digit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDataFrameError_Unwrap(t *testing.T) {
	cause := stderrors.New("underlying error")
	err := &errors.DataFrameError{
		Op:      "Where",
		Message: "evaluation failed",
		Cause:   cause,
	}

	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestDataFrameError_Is(t *testing.T) {
	err1 := errors.NewColumnNotFoundError("OrderBy", "age")
	err2 := errors.NewColumnNotFoundError("OrderBy", "age")
	err3 := errors.NewColumnNotFoundError("Where", "age")

	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(stderrors.New("different error")))
}

func TestSentinelsMatchAnyOperation(t *testing.T) {
	assert.ErrorIs(t, errors.NewColumnNotFoundError("Select", "x"), errors.ErrColumnNotFound)
	assert.ErrorIs(t, errors.NewNotGroupedError("Having"), errors.ErrNotGrouped)
	assert.ErrorIs(t, errors.NewSchemaMismatchError("Union", nil), errors.ErrSchemaMismatch)

	wrapped := fmt.Errorf("running query: %w", errors.NewColumnNotFoundError("Where", "mass"))
	assert.ErrorIs(t, wrapped, errors.ErrColumnNotFound)
	assert.NotErrorIs(t, wrapped, errors.ErrNotGrouped)
}

func TestConstructors(t *testing.T) {
	err := errors.NewInvalidInputError("OrderBy", "ascending flags must match columns")
	assert.Equal(t, "OrderBy", err.Op)
	assert.Empty(t, err.Column)
	assert.Equal(t, "OrderBy operation failed: ascending flags must match columns", err.Error())

	err = errors.NewUnsupportedTypeError("Cast", "decimal")
	assert.Equal(t, "unsupported type: decimal", err.Message)

	err = errors.NewValidationError("Unpivot", "value", "column already exists")
	assert.Equal(t, "value", err.Column)

	cause := stderrors.New("invalid syntax")
	err = errors.NewParseError("Where", "mass", cause)
	assert.Equal(t, cause, err.Unwrap())

	err = errors.NewInternalError("GroupBy", cause)
	assert.Equal(t, "internal error occurred", err.Message)
	assert.Equal(t, cause, err.Cause)
}
