package dataframe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/seekwell/internal/dataframe"
	dferrors "github.com/paveg/seekwell/internal/errors"
	"github.com/paveg/seekwell/internal/series"
	"github.com/paveg/seekwell/internal/testutil"
)

func departments(t *testing.T) *dataframe.DataFrame {
	t.Helper()
	return testutil.MustFrame(t,
		series.New("dept", []string{"Engineering", "Sales", "Legal"}, nil),
		series.New("name", []string{"Grace", "Heidi", "Ivan"}, nil),
		series.New("floor", []int64{3, 1, 7}, nil),
	)
}

func TestJoin(t *testing.T) {
	emp := testutil.Employees(t)
	defer emp.Release()
	depts := departments(t)
	defer depts.Release()

	t.Run("inner follows left order", func(t *testing.T) {
		out, err := emp.Join(depts, &dataframe.JoinOptions{Type: dataframe.InnerJoin, On: []string{"dept"}})
		require.NoError(t, err)
		defer out.Release()

		testutil.AssertDataFrameHasColumns(t, out, "name_x", "dept", "age", "salary", "hired", "name_y", "floor")
		testutil.AssertColumn(t, out, "name_x", "Alice", "Bob", "Charlie")
		testutil.AssertColumn(t, out, "name_y", "Grace", "Heidi", "Grace")
		testutil.AssertColumn(t, out, "floor", int64(3), int64(1), int64(3))
	})

	t.Run("left fills missing right rows with nulls", func(t *testing.T) {
		out, err := emp.Join(depts, &dataframe.JoinOptions{Type: dataframe.LeftJoin, On: []string{"dept"}})
		require.NoError(t, err)
		defer out.Release()

		testutil.AssertColumn(t, out, "dept", "Engineering", "Sales", "Engineering", "Marketing")
		testutil.AssertColumn(t, out, "floor", int64(3), int64(1), int64(3), nil)
	})

	t.Run("right follows right order and coalesces keys", func(t *testing.T) {
		out, err := emp.Join(depts, &dataframe.JoinOptions{Type: dataframe.RightJoin, On: []string{"dept"}})
		require.NoError(t, err)
		defer out.Release()

		testutil.AssertColumn(t, out, "dept", "Engineering", "Engineering", "Sales", "Legal")
		testutil.AssertColumn(t, out, "name_x", "Alice", "Charlie", "Bob", nil)
		testutil.AssertColumn(t, out, "age", int64(25), int64(35), int64(30), nil)
	})

	t.Run("outer appends unmatched right rows", func(t *testing.T) {
		out, err := emp.Join(depts, &dataframe.JoinOptions{Type: dataframe.FullOuterJoin, On: []string{"dept"}})
		require.NoError(t, err)
		defer out.Release()

		testutil.AssertColumn(t, out, "dept", "Engineering", "Sales", "Engineering", "Marketing", "Legal")
		testutil.AssertColumn(t, out, "floor", int64(3), int64(1), int64(3), nil, int64(7))
	})

	t.Run("cross suffixes every overlapping column", func(t *testing.T) {
		out, err := emp.Join(depts, &dataframe.JoinOptions{Type: dataframe.CrossJoin, RightSuffix: "_dept"})
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, 12, out.Len())
		testutil.AssertDataFrameHasColumns(t, out,
			"name_x", "dept_x", "age", "salary", "hired", "name_dept", "dept_dept", "floor")
	})
}

func TestJoinNumericKeysOfDifferentWidth(t *testing.T) {
	left := testutil.MustFrame(t,
		series.New("k", []int64{1, 2}, nil),
		series.New("l", []string{"a", "b"}, nil),
	)
	defer left.Release()
	right := testutil.MustFrame(t,
		series.New("k", []float64{1.0, 3.5}, nil),
		series.New("r", []string{"x", "y"}, nil),
	)
	defer right.Release()

	out, err := left.Join(right, &dataframe.JoinOptions{Type: dataframe.FullOuterJoin, On: []string{"k"}})
	require.NoError(t, err)
	defer out.Release()

	testutil.AssertColumn(t, out, "k", 1.0, 2.0, 3.5)
	testutil.AssertColumn(t, out, "r", "x", nil, "y")
}

func TestJoinErrors(t *testing.T) {
	emp := testutil.Employees(t)
	defer emp.Release()
	depts := departments(t)
	defer depts.Release()

	_, err := emp.Join(depts, &dataframe.JoinOptions{On: []string{"floor"}})
	assert.ErrorIs(t, err, dferrors.ErrColumnNotFound)

	_, err = emp.Join(depts, &dataframe.JoinOptions{})
	assert.Error(t, err)

	_, err = emp.Join(depts, &dataframe.JoinOptions{Type: dataframe.CrossJoin, On: []string{"dept"}})
	assert.Error(t, err)

	mixed := testutil.MustFrame(t, series.New("age", []string{"25"}, nil))
	defer mixed.Release()
	_, err = emp.Join(mixed, &dataframe.JoinOptions{On: []string{"age"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key types differ")
}

func TestParseJoinType(t *testing.T) {
	for text, want := range map[string]dataframe.JoinType{
		"inner": dataframe.InnerJoin,
		"LEFT":  dataframe.LeftJoin,
		"right": dataframe.RightJoin,
		"outer": dataframe.FullOuterJoin,
		"full":  dataframe.FullOuterJoin,
		"cross": dataframe.CrossJoin,
	} {
		got, err := dataframe.ParseJoinType(text)
		require.NoError(t, err)
		assert.Equal(t, want, got, text)
	}

	_, err := dataframe.ParseJoinType("sideways")
	assert.Error(t, err)
	assert.Equal(t, "outer", dataframe.FullOuterJoin.String())
}
