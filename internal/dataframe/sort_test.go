package dataframe_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dferrors "github.com/paveg/seekwell/internal/errors"
	"github.com/paveg/seekwell/internal/series"
	"github.com/paveg/seekwell/internal/testutil"
)

func TestSortBy(t *testing.T) {
	df := testutil.Penguins(t)
	defer df.Release()

	t.Run("single column ascending puts nulls last", func(t *testing.T) {
		sorted, err := df.SortBy([]string{"mass"}, nil)
		require.NoError(t, err)
		defer sorted.Release()
		testutil.AssertColumn(t, sorted, "mass", int64(3250), int64(3500), int64(3750), int64(3800), int64(4500), nil)
	})

	t.Run("descending keeps nulls last", func(t *testing.T) {
		sorted, err := df.SortBy([]string{"bill_length"}, []bool{false})
		require.NoError(t, err)
		defer sorted.Release()
		testutil.AssertColumn(t, sorted, "bill_length", 50.0, 46.1, 39.5, 39.1, 37.8, nil)
	})

	t.Run("mixed directions", func(t *testing.T) {
		sorted, err := df.SortBy([]string{"species", "mass"}, []bool{true, false})
		require.NoError(t, err)
		defer sorted.Release()
		testutil.AssertColumn(t, sorted, "species", "Adelie", "Adelie", "Adelie", "Chinstrap", "Gentoo", "Gentoo")
		testutil.AssertColumn(t, sorted, "mass", int64(3800), int64(3750), int64(3250), int64(3500), int64(4500), nil)
	})

	t.Run("stable on ties", func(t *testing.T) {
		sorted, err := df.SortBy([]string{"island"}, []bool{true})
		require.NoError(t, err)
		defer sorted.Release()
		testutil.AssertColumn(t, sorted, "bill_length", 39.5, 46.1, 50.0, nil, 37.8, 39.1)
	})

	t.Run("bool and timestamp columns", func(t *testing.T) {
		emp := testutil.Employees(t)
		defer emp.Release()

		sorted, err := emp.SortBy([]string{"hired"}, nil)
		require.NoError(t, err)
		defer sorted.Release()
		testutil.AssertColumn(t, sorted, "name", "Charlie", "Alice", "Bob", "David")

		byMale, err := df.SortBy([]string{"male"}, nil)
		require.NoError(t, err)
		defer byMale.Release()
		testutil.AssertColumn(t, byMale, "male", false, false, false, true, true, true)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := df.SortBy([]string{"mass", "species"}, []bool{true, false, true})
		assert.Error(t, err)

		_, err = df.SortBy([]string{"flipper"}, nil)
		assert.ErrorIs(t, err, dferrors.ErrColumnNotFound)
	})
}

func TestSortByNaNSortsLast(t *testing.T) {
	df := testutil.MustFrame(t, series.New("x", []float64{2, math.NaN(), 1}, nil))
	defer df.Release()

	sorted, err := df.SortBy([]string{"x"}, nil)
	require.NoError(t, err)
	defer sorted.Release()

	values := testutil.Column(t, sorted, "x")
	assert.Equal(t, 1.0, values[0])
	assert.Equal(t, 2.0, values[1])
	assert.True(t, math.IsNaN(values[2].(float64)))
}
