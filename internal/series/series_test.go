package series

import (
	"math"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dferrors "github.com/paveg/seekwell/internal/errors"
)

func TestNewSeries(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("string series", func(t *testing.T) {
		s := New("species", []string{"Adelie", "Gentoo"}, mem)
		defer s.Release()
		assert.Equal(t, "species", s.Name())
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, arrow.BinaryTypes.String, s.DataType())
		assert.Equal(t, []string{"Adelie", "Gentoo"}, s.Values())
	})

	t.Run("int64 series", func(t *testing.T) {
		s := New("mass", []int64{3750, 3800}, mem)
		defer s.Release()
		assert.Equal(t, int64(3800), s.Value(1))
		assert.Equal(t, int64(0), s.Value(5))
	})

	t.Run("float32 and int32 series", func(t *testing.T) {
		f := New("f", []float32{1.5}, mem)
		defer f.Release()
		assert.Equal(t, float32(1.5), f.Value(0))

		i := New("i", []int32{7}, mem)
		defer i.Release()
		assert.Equal(t, arrow.PrimitiveTypes.Int32, i.DataType())
	})

	t.Run("time series is stored as UTC nanoseconds", func(t *testing.T) {
		loc := time.FixedZone("UTC+9", 9*3600)
		ts := []time.Time{time.Date(2023, 1, 1, 12, 0, 0, 0, loc)}
		s := New("at", ts, mem)
		defer s.Release()

		assert.True(t, arrow.TypeEqual(TimestampType, s.DataType()))
		assert.Equal(t, ts[0].UTC(), s.Value(0))
	})

	t.Run("unsupported type", func(t *testing.T) {
		s, err := NewSafe("c", []complex128{1 + 2i}, mem)
		require.Error(t, err)
		assert.Nil(t, s)

		var dfErr *dferrors.DataFrameError
		require.ErrorAs(t, err, &dfErr)
		assert.Equal(t, "series creation", dfErr.Op)
		assert.Contains(t, dfErr.Message, "complex128")

		assert.Panics(t, func() { New("c", []complex128{1}, mem) })
	})
}

func TestNewNullable(t *testing.T) {
	mem := memory.NewGoAllocator()

	s, err := NewNullable("mass", []float64{3750, 0, 3250}, []bool{true, false, true}, mem)
	require.NoError(t, err)
	defer s.Release()

	assert.Equal(t, 1, s.NullN())
	assert.True(t, s.IsNull(1))
	assert.Nil(t, ValueAt(s.array, 1))
	assert.Equal(t, []float64{3750, 0, 3250}, s.Values())
	assert.Equal(t, "", s.GetAsString(1))
	assert.Equal(t, "3750.0", s.GetAsString(0))

	_, err = NewNullable("mass", []float64{1}, []bool{true, false}, mem)
	assert.Error(t, err)
}

func TestRenameSharesData(t *testing.T) {
	s := New("a", []int64{1, 2}, nil)
	renamed := s.Rename("b")
	s.Release()

	assert.Equal(t, "b", renamed.Name())
	assert.Equal(t, "2", renamed.GetAsString(1))
	renamed.Release()
}

func TestFromValues(t *testing.T) {
	s, err := FromValues("x", arrow.PrimitiveTypes.Int64, []any{int64(1), nil, 3.0, 4}, nil)
	require.NoError(t, err)
	defer s.Release()

	assert.Equal(t, []any{int64(1), nil, int64(3), int64(4)}, s.Values())

	_, err = FromValues("x", arrow.PrimitiveTypes.Int64, []any{2.5}, nil)
	assert.Error(t, err)

	_, err = FromValues("x", arrow.FixedWidthTypes.Boolean, []any{"yes"}, nil)
	assert.Error(t, err)
}

func TestNewNull(t *testing.T) {
	s := NewNull("gap", arrow.BinaryTypes.String, 3, nil)
	defer s.Release()
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 3, s.NullN())
}

func TestAppendValue(t *testing.T) {
	mem := memory.NewGoAllocator()

	sb := array.NewStringBuilder(mem)
	defer sb.Release()
	require.NoError(t, AppendValue(sb, 2.0))
	require.NoError(t, AppendValue(sb, true))
	arr := sb.NewArray()
	defer arr.Release()
	assert.Equal(t, "2.0", ValueAt(arr, 0))
	assert.Equal(t, "True", ValueAt(arr, 1))

	ib := array.NewInt32Builder(mem)
	defer ib.Release()
	assert.Error(t, AppendValue(ib, int64(math.MaxInt64)))

	lb := array.NewInt64Builder(mem)
	defer lb.Release()
	assert.Error(t, AppendValue(lb, 1e20))
	assert.Error(t, AppendValue(lb, float32(-1e19)))
	assert.Error(t, AppendValue(lb, math.Inf(1)))
	require.NoError(t, AppendValue(lb, -9223372036854775808.0))
}

func TestFitsInt64(t *testing.T) {
	assert.True(t, FitsInt64(0))
	assert.True(t, FitsInt64(-9223372036854775808.0))
	assert.True(t, FitsInt64(9.2e18))
	assert.False(t, FitsInt64(9223372036854775808.0))
	assert.False(t, FitsInt64(-1e19))
	assert.False(t, FitsInt64(math.NaN()))
	assert.False(t, FitsInt64(math.Inf(-1)))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{int64(3), "3"},
		{3.0, "3.0"},
		{39.1, "39.1"},
		{float32(0.5), "0.5"},
		{math.NaN(), "nan"},
		{math.Inf(-1), "-inf"},
		{false, "False"},
		{time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), "2020-05-01 00:00:00"},
		{time.Date(2020, 5, 1, 8, 30, 0, 500, time.UTC), "2020-05-01 08:30:00.0000005"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsNumeric(arrow.PrimitiveTypes.Int32))
	assert.True(t, IsFloating(arrow.PrimitiveTypes.Float32))
	assert.False(t, IsInteger(arrow.PrimitiveTypes.Float64))
	assert.False(t, IsNumeric(arrow.BinaryTypes.String))
}
