// Package validation provides input checks shared by frame operations.
package validation

import (
	"fmt"
	"strings"

	"github.com/paveg/seekwell/internal/errors"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnProvider interface for types that provide column information
type ColumnProvider interface {
	HasColumn(name string) bool
	Columns() []string
	Len() int
}

// ColumnValidator validates column existence
type ColumnValidator struct {
	df      ColumnProvider
	columns []string
	op      string
}

// NewColumnValidator creates a validator for column operations
func NewColumnValidator(df ColumnProvider, op string, columns ...string) *ColumnValidator {
	return &ColumnValidator{df: df, columns: columns, op: op}
}

// Validate checks that every column exists, reporting the first missing one
func (v *ColumnValidator) Validate() error {
	for _, column := range v.columns {
		if !v.df.HasColumn(column) {
			return errors.NewColumnNotFoundError(v.op, column)
		}
	}
	return nil
}

// UniqueValidator rejects repeated names in a column list
type UniqueValidator struct {
	names []string
	op    string
}

// NewUniqueValidator creates a validator for duplicate names
func NewUniqueValidator(op string, names ...string) *UniqueValidator {
	return &UniqueValidator{names: names, op: op}
}

// Validate checks that no name appears twice
func (v *UniqueValidator) Validate() error {
	seen := make(map[string]bool, len(v.names))
	for _, name := range v.names {
		if seen[name] {
			return errors.NewValidationError(v.op, name, "duplicate column name")
		}
		seen[name] = true
	}
	return nil
}

// LengthValidator validates length consistency
type LengthValidator struct {
	expected int
	actual   int
	op       string
	context  string
}

// NewLengthValidator creates a validator for length consistency
func NewLengthValidator(expected, actual int, op, context string) *LengthValidator {
	return &LengthValidator{expected: expected, actual: actual, op: op, context: context}
}

// Validate checks if lengths match
func (v *LengthValidator) Validate() error {
	if v.expected != v.actual {
		message := fmt.Sprintf("%s: expected length %d, got %d", v.context, v.expected, v.actual)
		return errors.NewValidationError(v.op, "", message)
	}
	return nil
}

// SchemaProvider exposes ordered column names and their type names
type SchemaProvider interface {
	Columns() []string
	TypeOf(name string) (string, bool)
}

// SchemaValidator requires two frames to share column names, order and types
type SchemaValidator struct {
	left, right SchemaProvider
	op          string
}

// NewSchemaValidator creates a validator comparing two schemas
func NewSchemaValidator(op string, left, right SchemaProvider) *SchemaValidator {
	return &SchemaValidator{left: left, right: right, op: op}
}

// Validate reports the first difference between the two schemas
func (v *SchemaValidator) Validate() error {
	lcols, rcols := v.left.Columns(), v.right.Columns()
	if len(lcols) != len(rcols) {
		return errors.NewSchemaMismatchError(v.op, fmt.Errorf("[%s] vs [%s]",
			strings.Join(lcols, ", "), strings.Join(rcols, ", ")))
	}
	for i, name := range lcols {
		if rcols[i] != name {
			return errors.NewSchemaMismatchError(v.op, fmt.Errorf("column %d is %q vs %q", i, name, rcols[i]))
		}
		lt, _ := v.left.TypeOf(name)
		rt, _ := v.right.TypeOf(name)
		if lt != rt {
			return errors.NewSchemaMismatchError(v.op, fmt.Errorf("column %q is %s vs %s", name, lt, rt))
		}
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{validators: validators}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidateColumns is a convenience function for column validation
func ValidateColumns(df ColumnProvider, op string, columns ...string) error {
	return NewColumnValidator(df, op, columns...).Validate()
}

// ValidateUnique is a convenience function for duplicate name validation
func ValidateUnique(op string, names ...string) error {
	return NewUniqueValidator(op, names...).Validate()
}

// ValidateLength is a convenience function for length validation
func ValidateLength(expected, actual int, op, context string) error {
	return NewLengthValidator(expected, actual, op, context).Validate()
}

// ValidateSchemasMatch is a convenience function for schema validation
func ValidateSchemasMatch(op string, left, right SchemaProvider) error {
	return NewSchemaValidator(op, left, right).Validate()
}
