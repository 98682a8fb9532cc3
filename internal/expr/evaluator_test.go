package expr

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/seekwell/internal/series"
)

func createTestColumns(t *testing.T, mem memory.Allocator) map[string]arrow.Array {
	t.Helper()

	intBuilder := array.NewInt64Builder(mem)
	defer intBuilder.Release()
	intBuilder.AppendValues([]int64{10, 20, 30, 40}, []bool{true, true, true, false})

	floatBuilder := array.NewFloat64Builder(mem)
	defer floatBuilder.Release()
	floatBuilder.AppendValues([]float64{1.5, 2.5, -3.5, 4.5}, nil)

	stringBuilder := array.NewStringBuilder(mem)
	defer stringBuilder.Release()
	stringBuilder.AppendValues([]string{"a", "b", "c", "dd"}, []bool{true, true, false, true})

	boolBuilder := array.NewBooleanBuilder(mem)
	defer boolBuilder.Release()
	boolBuilder.AppendValues([]bool{true, false, true, false}, nil)

	tsBuilder := array.NewTimestampBuilder(mem, series.TimestampType.(*arrow.TimestampType))
	defer tsBuilder.Release()
	for _, d := range []time.Time{
		time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
		time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC),
		time.Date(2022, 11, 12, 13, 14, 15, 0, time.UTC),
		time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
	} {
		tsBuilder.Append(arrow.Timestamp(d.UnixNano()))
	}

	return map[string]arrow.Array{
		"age":    intBuilder.NewArray(),
		"score":  floatBuilder.NewArray(),
		"name":   stringBuilder.NewArray(),
		"active": boolBuilder.NewArray(),
		"at":     tsBuilder.NewArray(),
	}
}

func evaluate(t *testing.T, input string) arrow.Array {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	columns := createTestColumns(t, mem)
	t.Cleanup(func() {
		for _, arr := range columns {
			arr.Release()
		}
	})

	e, err := Parse(input)
	require.NoError(t, err)
	result, err := NewEvaluator(mem).Evaluate(e, columns, 4)
	require.NoError(t, err)
	t.Cleanup(result.Release)
	return result
}

func values(arr arrow.Array) []any {
	out := make([]any, arr.Len())
	for i := range out {
		out[i] = series.ValueAt(arr, i)
	}
	return out
}

func TestNewEvaluator(t *testing.T) {
	mem := memory.NewGoAllocator()

	eval := NewEvaluator(mem)
	assert.NotNil(t, eval)
	assert.Equal(t, mem, eval.mem)

	eval2 := NewEvaluator(nil)
	assert.NotNil(t, eval2)
	assert.NotNil(t, eval2.mem)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		input    string
		dtype    arrow.DataType
		expected []any
	}{
		{"age", arrow.PrimitiveTypes.Int64, []any{int64(10), int64(20), int64(30), nil}},
		{"age + 1", arrow.PrimitiveTypes.Int64, []any{int64(11), int64(21), int64(31), nil}},
		{"age * score", arrow.PrimitiveTypes.Float64, []any{15.0, 50.0, -105.0, nil}},
		{"age / 4", arrow.PrimitiveTypes.Float64, []any{2.5, 5.0, 7.5, nil}},
		{"age % 7", arrow.PrimitiveTypes.Int64, []any{int64(3), int64(6), int64(2), nil}},
		{"age % 0", arrow.PrimitiveTypes.Int64, []any{nil, nil, nil, nil}},
		{"-score", arrow.PrimitiveTypes.Float64, []any{-1.5, -2.5, 3.5, -4.5}},
		{"name + '!'", arrow.BinaryTypes.String, []any{"a!", "b!", nil, "dd!"}},
		{"age >= 20", arrow.FixedWidthTypes.Boolean, []any{false, true, true, nil}},
		{"score > age", arrow.FixedWidthTypes.Boolean, []any{false, false, false, nil}},
		{"name == \"b\"", arrow.FixedWidthTypes.Boolean, []any{false, true, nil, false}},
		{"active and age > 15", arrow.FixedWidthTypes.Boolean, []any{false, false, true, false}},
		{"active or age > 15", arrow.FixedWidthTypes.Boolean, []any{true, true, true, nil}},
		{"not active", arrow.FixedWidthTypes.Boolean, []any{false, true, false, true}},
		{"at > '2021-12-31'", arrow.FixedWidthTypes.Boolean, []any{false, false, true, true}},
		{"year(at) * 100 + month(at)", arrow.PrimitiveTypes.Int64, []any{int64(202001), int64(202106), int64(202211), int64(202312)}},
		{"abs(score)", arrow.PrimitiveTypes.Float64, []any{1.5, 2.5, 3.5, 4.5}},
		{"round(score / 4, 2)", arrow.PrimitiveTypes.Float64, []any{0.38, 0.63, -0.88, 1.13}},
		{"floor(score)", arrow.PrimitiveTypes.Float64, []any{1.0, 2.0, -4.0, 4.0}},
		{"upper(name)", arrow.BinaryTypes.String, []any{"A", "B", nil, "DD"}},
		{"length(name)", arrow.PrimitiveTypes.Int64, []any{int64(1), int64(1), nil, int64(2)}},
		{"coalesce(age, score)", arrow.PrimitiveTypes.Float64, []any{10.0, 20.0, 30.0, 4.5}},
		{"coalesce(name, 'unknown')", arrow.BinaryTypes.String, []any{"a", "b", "unknown", "dd"}},
		{"42", arrow.PrimitiveTypes.Int64, []any{int64(42), int64(42), int64(42), int64(42)}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := evaluate(t, tt.input)
			assert.True(t, arrow.TypeEqual(tt.dtype, result.DataType()), "got %s", result.DataType())
			assert.Equal(t, tt.expected, values(result))
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := createTestColumns(t, mem)
	defer func() {
		for _, arr := range columns {
			arr.Release()
		}
	}()

	tests := []struct {
		input string
		err   string
	}{
		{"missing + 1", "column not found: missing"},
		{"missing", "column not found: missing"},
		{"name * 2", "unsupported operation string * int"},
		{"name > 3", "cannot compare string with int"},
		{"age and active", "and requires bool operands, got int"},
		{"not age", "not requires a bool operand, got int"},
		{"-name", "cannot negate string"},
		{"upper(age)", "function upper does not accept int"},
		{"sqrt(age, 2)", "function sqrt requires exactly 1 argument, got 2"},
		{"median(age)", "unsupported function: median"},
		{"coalesce(age, name)", "coalesce arguments mix int and string"},
		{"at > 'someday'", `invalid timestamp literal "someday"`},
	}

	eval := NewEvaluator(mem)
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := Parse(tt.input)
			require.NoError(t, err)
			_, err = eval.Evaluate(e, columns, 4)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestEvaluateWithTimeParser(t *testing.T) {
	mem := memory.NewGoAllocator()
	columns := createTestColumns(t, mem)
	defer func() {
		for _, arr := range columns {
			arr.Release()
		}
	}()

	eval := NewEvaluator(mem).WithTimeParser(func(s string) (time.Time, error) {
		return time.Parse("02/01/2006", s)
	})
	e, err := Parse("at < '01/01/2021'")
	require.NoError(t, err)
	result, err := eval.Evaluate(e, columns, 4)
	require.NoError(t, err)
	defer result.Release()
	assert.Equal(t, []any{true, false, false, false}, values(result))
}
