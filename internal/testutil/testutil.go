// Package testutil provides fixture frames and assertions shared by the
// seekwell test suites.
package testutil

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/seekwell/internal/dataframe"
	"github.com/paveg/seekwell/internal/series"
)

// TestMemoryContext provides a memory allocator for tests.
type TestMemoryContext struct {
	Allocator memory.Allocator
}

// SetupMemoryTest creates a checked allocator and asserts at cleanup that
// every Arrow buffer allocated through it was released.
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	checked := memory.NewCheckedAllocator(memory.NewGoAllocator())
	tb.Cleanup(func() { checked.AssertSize(tb, 0) })
	return &TestMemoryContext{Allocator: checked}
}

// MustFrame builds a frame from columns, failing the test on error.
func MustFrame(tb testing.TB, cols ...dataframe.ISeries) *dataframe.DataFrame {
	tb.Helper()
	df, err := dataframe.New(cols...)
	require.NoError(tb, err)
	return df
}

// Nullable builds a nullable series, failing the test on error.
func Nullable[T any](tb testing.TB, name string, values []T, valid []bool) dataframe.ISeries {
	tb.Helper()
	s, err := series.NewNullable(name, values, valid, nil)
	require.NoError(tb, err)
	return s
}

// Penguins returns a small penguins table:
//
//	species (string), island (string), bill_length (float64, one null),
//	mass (int64, one null), male (bool)
func Penguins(tb testing.TB) *dataframe.DataFrame {
	tb.Helper()
	return MustFrame(tb,
		series.New("species", []string{"Adelie", "Adelie", "Gentoo", "Chinstrap", "Gentoo", "Adelie"}, nil),
		series.New("island", []string{"Torgersen", "Biscoe", "Biscoe", "Dream", "Biscoe", "Dream"}, nil),
		Nullable(tb, "bill_length", []float64{39.1, 39.5, 46.1, 0, 50.0, 37.8}, []bool{true, true, true, false, true, true}),
		Nullable(tb, "mass", []int64{3750, 3800, 4500, 3500, 0, 3250}, []bool{true, true, true, true, false, true}),
		series.New("male", []bool{true, false, false, true, true, false}, nil),
	)
}

// Employees returns a small employee table with a timestamp column:
//
//	name (string), dept (string), age (int64), salary (float64), hired (timestamp)
func Employees(tb testing.TB) *dataframe.DataFrame {
	tb.Helper()
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	return MustFrame(tb,
		series.New("name", []string{"Alice", "Bob", "Charlie", "David"}, nil),
		series.New("dept", []string{"Engineering", "Sales", "Engineering", "Marketing"}, nil),
		series.New("age", []int64{25, 30, 35, 28}, nil),
		series.New("salary", []float64{100000, 80000, 120000, 75000}, nil),
		series.New("hired", []time.Time{day(2019, 3, 1), day(2020, 7, 15), day(2018, 1, 10), day(2021, 11, 30)}, nil),
	)
}

// Column returns every value of a column as Go values; nulls are nil.
func Column(tb testing.TB, df *dataframe.DataFrame, name string) []any {
	tb.Helper()
	s, ok := df.Column(name)
	require.True(tb, ok, "column %q missing", name)
	arr := s.Array()
	defer arr.Release()
	out := make([]any, arr.Len())
	for i := range out {
		out[i] = series.ValueAt(arr, i)
	}
	return out
}

// AssertColumn checks the values of a column.
func AssertColumn(tb testing.TB, df *dataframe.DataFrame, name string, expected ...any) {
	tb.Helper()
	assert.Equal(tb, expected, Column(tb, df, name), "column %q", name)
}

// AssertDataFrameHasColumns checks column names and order.
func AssertDataFrameHasColumns(tb testing.TB, df *dataframe.DataFrame, expected ...string) {
	tb.Helper()
	assert.Equal(tb, expected, df.Columns())
}
