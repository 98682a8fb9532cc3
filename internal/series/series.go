// Package series provides data structures for column operations
package series

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/seekwell/internal/errors"
)

// TimestampType is the Arrow type used for every time.Time column.
var TimestampType arrow.DataType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

const timeLayout = "2006-01-02 15:04:05.999999999"

// ISeries provides a type-erased interface for Series of any type
type ISeries interface {
	Name() string
	Len() int
	DataType() arrow.DataType
	IsNull(index int) bool
	String() string
	Array() arrow.Array
	Release()
	GetAsString(index int) string
	Rename(name string) ISeries
}

// Series represents a typed data column with Apache Arrow backend
type Series[T any] struct {
	name  string
	array arrow.Array
}

// New creates a new Series from a slice of values. It panics on unsupported
// element types; use NewSafe when the type is not known statically.
func New[T any](name string, values []T, mem memory.Allocator) *Series[T] {
	s, err := NewSafe(name, values, mem)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSafe creates a new Series, returning an error for unsupported element types
func NewSafe[T any](name string, values []T, mem memory.Allocator) (*Series[T], error) {
	return NewNullable(name, values, nil, mem)
}

// NewNullable creates a Series where valid[i] == false marks row i as null.
// A nil valid slice means every value is present.
func NewNullable[T any](name string, values []T, valid []bool, mem memory.Allocator) (*Series[T], error) {
	if valid != nil && len(valid) != len(values) {
		return nil, errors.NewValidationError("series creation", name,
			fmt.Sprintf("validity has length %d, values have length %d", len(valid), len(values)))
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	var arr arrow.Array
	switch v := any(values).(type) {
	case []string:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		arr = b.NewArray()
	case []int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		arr = b.NewArray()
	case []int32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		arr = b.NewArray()
	case []float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		arr = b.NewArray()
	case []float32:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		arr = b.NewArray()
	case []bool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		arr = b.NewArray()
	case []time.Time:
		b := array.NewTimestampBuilder(mem, TimestampType.(*arrow.TimestampType))
		defer b.Release()
		for i, t := range v {
			if valid != nil && !valid[i] {
				b.AppendNull()
				continue
			}
			b.Append(arrow.Timestamp(t.UTC().UnixNano()))
		}
		arr = b.NewArray()
	default:
		return nil, errors.NewUnsupportedTypeError("series creation", reflect.TypeOf(values).Elem().String())
	}

	return &Series[T]{name: name, array: arr}, nil
}

// FromArray wraps an existing Arrow array. The series takes ownership of arr.
func FromArray(name string, arr arrow.Array) *Series[any] {
	return &Series[any]{name: name, array: arr}
}

// NewNull creates a series of n nulls with the given type
func NewNull(name string, dtype arrow.DataType, n int, mem memory.Allocator) *Series[any] {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	b := array.NewBuilder(mem, dtype)
	defer b.Release()
	b.AppendNulls(n)
	return FromArray(name, b.NewArray())
}

// FromValues builds a series of the given type from loosely typed values.
// nil entries become nulls.
func FromValues(name string, dtype arrow.DataType, values []any, mem memory.Allocator) (*Series[any], error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	b := array.NewBuilder(mem, dtype)
	defer b.Release()
	for _, v := range values {
		if err := AppendValue(b, v); err != nil {
			return nil, errors.NewValidationError("series creation", name, err.Error())
		}
	}
	return FromArray(name, b.NewArray()), nil
}

// Name returns the column name
func (s *Series[T]) Name() string {
	return s.name
}

// Len returns the length of the series
func (s *Series[T]) Len() int {
	return s.array.Len()
}

// Values returns the data as a Go slice. Nulls are returned as zero values.
func (s *Series[T]) Values() []T {
	result := make([]T, s.array.Len())
	for i := range result {
		if v, ok := ValueAt(s.array, i).(T); ok {
			result[i] = v
		}
	}
	return result
}

// Value returns the value at the given index, or the zero value for nulls
// and out-of-range indices
func (s *Series[T]) Value(index int) T {
	var zero T
	if index < 0 || index >= s.array.Len() {
		return zero
	}
	if v, ok := ValueAt(s.array, index).(T); ok {
		return v
	}
	return zero
}

// DataType returns the Arrow data type
func (s *Series[T]) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull checks if the value at index is null
func (s *Series[T]) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// NullN returns the number of nulls
func (s *Series[T]) NullN() int {
	return s.array.NullN()
}

// GetAsString returns the value at index formatted as text; nulls are empty
func (s *Series[T]) GetAsString(index int) string {
	return FormatValue(ValueAt(s.array, index))
}

// Rename returns a series sharing the same data under a new name
func (s *Series[T]) Rename(name string) ISeries {
	s.array.Retain()
	return &Series[T]{name: name, array: s.array}
}

// String returns a string representation of the series
func (s *Series[T]) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)", s.array.DataType(), s.name, s.Len())
}

// Array returns the underlying Arrow array (retains a reference)
func (s *Series[T]) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Release releases the underlying Arrow memory
func (s *Series[T]) Release() {
	if s.array != nil {
		s.array.Release()
	}
}

// ValueAt returns row i of arr as a Go value, or nil when the row is null.
// Timestamps come back as UTC time.Time.
func ValueAt(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC()
	default:
		return a.ValueStr(i)
	}
}

// AppendValue appends v to b, converting between Go numeric kinds where the
// conversion is lossless. nil appends a null.
func AppendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch bb := b.(type) {
	case *array.Int64Builder:
		n, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("cannot store %T %v as int64", v, v)
		}
		bb.Append(n)
	case *array.Int32Builder:
		n, ok := toInt64(v)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return fmt.Errorf("cannot store %T %v as int32", v, v)
		}
		bb.Append(int32(n))
	case *array.Float64Builder:
		f, ok := ToFloat64(v)
		if !ok {
			return fmt.Errorf("cannot store %T %v as float64", v, v)
		}
		bb.Append(f)
	case *array.Float32Builder:
		f, ok := ToFloat64(v)
		if !ok {
			return fmt.Errorf("cannot store %T %v as float32", v, v)
		}
		bb.Append(float32(f))
	case *array.StringBuilder:
		if s, ok := v.(string); ok {
			bb.Append(s)
		} else {
			bb.Append(FormatValue(v))
		}
	case *array.BooleanBuilder:
		t, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot store %T %v as bool", v, v)
		}
		bb.Append(t)
	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("cannot store %T %v as timestamp", v, v)
		}
		bb.Append(arrow.Timestamp(t.UTC().UnixNano()))
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) && FitsInt64(n) {
			return int64(n), true
		}
	case float32:
		f := float64(n)
		if f == math.Trunc(f) && FitsInt64(f) {
			return int64(f), true
		}
	}
	return 0, false
}

// FitsInt64 reports whether f truncates to a value in the int64 range.
// NaN and infinities never fit.
func FitsInt64(f float64) bool {
	return f >= -(1 << 63) && f < 1<<63
}

// ToFloat64 widens any Go numeric value to float64
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// FormatValue renders a value the way it prints in tables and CSV output.
// Whole floats keep a trailing ".0" so they stay distinguishable from ints.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return FormatFloat(x)
	case float32:
		return FormatFloat(float64(x))
	case time.Time:
		return x.Format(timeLayout)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(x)
	}
}

// FormatFloat formats f in shortest form with at least one decimal place
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// IsNumeric reports whether dt is an integer or floating point type
func IsNumeric(dt arrow.DataType) bool {
	return IsInteger(dt) || IsFloating(dt)
}

// IsInteger reports whether dt is a signed integer type
func IsInteger(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT64, arrow.INT32:
		return true
	}
	return false
}

// IsFloating reports whether dt is a floating point type
func IsFloating(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.FLOAT64, arrow.FLOAT32:
		return true
	}
	return false
}
