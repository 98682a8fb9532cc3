// Package dataframe provides the Arrow-backed table that every SQL-style
// operation reads from and produces.
package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/seekwell/internal/errors"
	"github.com/paveg/seekwell/internal/series"
	"github.com/paveg/seekwell/internal/validation"
)

// ISeries is the type-erased column held by a DataFrame
type ISeries = series.ISeries

// DataFrame represents a table of data with typed columns
type DataFrame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a DataFrame from columns of equal length with distinct names.
// The frame takes ownership of the series.
func New(cols ...ISeries) (*DataFrame, error) {
	names := make([]string, len(cols))
	for i, s := range cols {
		names[i] = s.Name()
	}
	if err := validation.ValidateUnique("New", names...); err != nil {
		return nil, err
	}
	for _, s := range cols[min(1, len(cols)):] {
		if err := validation.ValidateLength(cols[0].Len(), s.Len(), "New", "column "+s.Name()); err != nil {
			return nil, err
		}
	}
	return newFrame(cols), nil
}

// newFrame builds a frame from columns already known to be consistent
func newFrame(cols []ISeries) *DataFrame {
	columns := make(map[string]ISeries, len(cols))
	order := make([]string, 0, len(cols))
	for _, s := range cols {
		columns[s.Name()] = s
		order = append(order, s.Name())
	}
	return &DataFrame{columns: columns, order: order}
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	return append([]string{}, df.order...)
}

// Len returns the number of rows
func (df *DataFrame) Len() int {
	if len(df.order) == 0 {
		return 0
	}
	return df.columns[df.order[0]].Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.order)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (ISeries, bool) {
	s, exists := df.columns[name]
	return s, exists
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// TypeOf returns the Arrow type name of a column
func (df *DataFrame) TypeOf(name string) (string, bool) {
	s, ok := df.columns[name]
	if !ok {
		return "", false
	}
	return s.DataType().String(), true
}

// Schema returns the Arrow schema of the frame
func (df *DataFrame) Schema() *arrow.Schema {
	fields := make([]arrow.Field, len(df.order))
	for i, name := range df.order {
		fields[i] = arrow.Field{Name: name, Type: df.columns[name].DataType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// Select returns a new DataFrame with the named columns in the given order
func (df *DataFrame) Select(names ...string) (*DataFrame, error) {
	if err := validation.ValidateColumns(df, "Select", names...); err != nil {
		return nil, err
	}
	if err := validation.ValidateUnique("Select", names...); err != nil {
		return nil, err
	}
	cols := make([]ISeries, len(names))
	for i, name := range names {
		cols[i] = df.columns[name].Rename(name)
	}
	return newFrame(cols), nil
}

// Drop returns a new DataFrame without the specified columns
func (df *DataFrame) Drop(names ...string) (*DataFrame, error) {
	if err := validation.ValidateColumns(df, "Drop", names...); err != nil {
		return nil, err
	}
	dropSet := make(map[string]bool, len(names))
	for _, name := range names {
		dropSet[name] = true
	}

	cols := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		if !dropSet[name] {
			cols = append(cols, df.columns[name].Rename(name))
		}
	}
	return newFrame(cols), nil
}

// Rename returns a new DataFrame with column old renamed to name
func (df *DataFrame) Rename(old, name string) (*DataFrame, error) {
	if err := validation.ValidateColumns(df, "Rename", old); err != nil {
		return nil, err
	}
	if old != name && df.HasColumn(name) {
		return nil, errors.NewValidationError("Rename", name, "column already exists")
	}
	cols := make([]ISeries, len(df.order))
	for i, col := range df.order {
		target := col
		if col == old {
			target = name
		}
		cols[i] = df.columns[col].Rename(target)
	}
	return newFrame(cols), nil
}

// SetColumn replaces the column with the same name in place, or appends it
// as the last column. The frame takes ownership of s.
func (df *DataFrame) SetColumn(s ISeries) error {
	if df.Width() > 0 && s.Len() != df.Len() {
		return errors.NewValidationError("SetColumn", s.Name(),
			fmt.Sprintf("expected length %d, got %d", df.Len(), s.Len()))
	}
	if old, exists := df.columns[s.Name()]; exists {
		old.Release()
	} else {
		df.order = append(df.order, s.Name())
	}
	df.columns[s.Name()] = s
	return nil
}

// Clone returns a frame sharing column data; column-level changes to the
// clone do not affect the original
func (df *DataFrame) Clone() *DataFrame {
	cols := make([]ISeries, len(df.order))
	for i, name := range df.order {
		cols[i] = df.columns[name].Rename(name)
	}
	return newFrame(cols)
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}
	for _, name := range df.order {
		parts = append(parts, fmt.Sprintf("  %s: %s", name, df.columns[name].DataType()))
	}
	return strings.Join(parts, "\n")
}

// Slice creates a new DataFrame containing rows from start (inclusive) to end (exclusive).
// Out-of-range bounds are clamped.
func (df *DataFrame) Slice(start, end int) *DataFrame {
	length := df.Len()
	start = max(0, min(start, length))
	end = max(start, min(end, length))

	cols := make([]ISeries, len(df.order))
	for i, name := range df.order {
		arr := df.columns[name].Array()
		cols[i] = series.FromArray(name, array.NewSlice(arr, int64(start), int64(end)))
		arr.Release()
	}
	return newFrame(cols)
}

// Head returns the first n rows
func (df *DataFrame) Head(n int) *DataFrame {
	return df.Slice(0, n)
}

// Concat appends the rows of others below df. Every frame must have the same
// column names, order and types.
func (df *DataFrame) Concat(others ...*DataFrame) (*DataFrame, error) {
	for _, other := range others {
		if err := validation.ValidateSchemasMatch("Concat", df, other); err != nil {
			return nil, err
		}
	}
	if len(others) == 0 {
		return df.Clone(), nil
	}

	mem := memory.NewGoAllocator()
	cols := make([]ISeries, len(df.order))
	for i, name := range df.order {
		arrs := make([]arrow.Array, 0, len(others)+1)
		arrs = append(arrs, df.columns[name].Array())
		for _, other := range others {
			arrs = append(arrs, other.columns[name].Array())
		}
		merged, err := array.Concatenate(arrs, mem)
		for _, a := range arrs {
			a.Release()
		}
		if err != nil {
			releaseAll(cols[:i])
			return nil, errors.NewInternalError("Concat", err)
		}
		cols[i] = series.FromArray(name, merged)
	}
	return newFrame(cols), nil
}

// Row returns row i as Go values in column order; nulls are nil
func (df *DataFrame) Row(i int) []any {
	row := make([]any, len(df.order))
	for c, name := range df.order {
		arr := df.columns[name].Array()
		row[c] = series.ValueAt(arr, i)
		arr.Release()
	}
	return row
}

// Release releases all underlying Arrow memory
func (df *DataFrame) Release() {
	for _, s := range df.columns {
		s.Release()
	}
}

// arrays returns retained arrays for the named columns; release with releaseArrays
func (df *DataFrame) arrays(names []string) []arrow.Array {
	arrs := make([]arrow.Array, len(names))
	for i, name := range names {
		arrs[i] = df.columns[name].Array()
	}
	return arrs
}

func releaseArrays(arrs []arrow.Array) {
	for _, a := range arrs {
		a.Release()
	}
}

func releaseAll(cols []ISeries) {
	for _, s := range cols {
		if s != nil {
			s.Release()
		}
	}
}
