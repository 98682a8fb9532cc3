package dataframe

import (
	"math"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"golang.org/x/exp/constraints"

	"github.com/paveg/seekwell/internal/errors"
	"github.com/paveg/seekwell/internal/validation"
)

func compareOrderedValues[T constraints.Ordered](left, right T) int {
	switch {
	case left < right:
		return -1
	case left > right:
		return 1
	default:
		return 0
	}
}

// comparator compares two non-null rows of one column
type comparator func(i, j int) int

func orderedComparator[T constraints.Ordered](a valueArray[T]) comparator {
	return func(i, j int) int { return compareOrderedValues(a.Value(i), a.Value(j)) }
}

func newComparator(arr arrow.Array) comparator {
	switch a := arr.(type) {
	case *array.Int64:
		return orderedComparator[int64](a)
	case *array.Int32:
		return orderedComparator[int32](a)
	case *array.Float64:
		return orderedComparator[float64](a)
	case *array.Float32:
		return orderedComparator[float32](a)
	case *array.String:
		return orderedComparator[string](a)
	case *array.Timestamp:
		return orderedComparator[arrow.Timestamp](a)
	case *array.Boolean:
		return func(i, j int) int {
			l, r := a.Value(i), a.Value(j)
			switch {
			case l == r:
				return 0
			case !l:
				return -1
			default:
				return 1
			}
		}
	default:
		return func(i, j int) int { return compareOrderedValues(arr.ValueStr(i), arr.ValueStr(j)) }
	}
}

// isMissing treats NaN like null for ordering
func isMissing(arr arrow.Array, i int) bool {
	if arr.IsNull(i) {
		return true
	}
	switch a := arr.(type) {
	case *array.Float64:
		return math.IsNaN(a.Value(i))
	case *array.Float32:
		return math.IsNaN(float64(a.Value(i)))
	}
	return false
}

// SortBy returns the rows ordered by the named columns. ascending may be
// empty (all ascending), a single flag applied to every column, or one flag
// per column. The sort is stable and missing values always sort last.
func (df *DataFrame) SortBy(names []string, ascending []bool) (*DataFrame, error) {
	if err := validation.ValidateColumns(df, "OrderBy", names...); err != nil {
		return nil, err
	}
	asc, err := expandAscending(names, ascending)
	if err != nil {
		return nil, err
	}

	arrs := df.arrays(names)
	defer releaseArrays(arrs)
	cmps := make([]comparator, len(arrs))
	for i, a := range arrs {
		cmps[i] = newComparator(a)
	}

	idx := make([]int, df.Len())
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(i, j int) int {
		for c, a := range arrs {
			mi, mj := isMissing(a, i), isMissing(a, j)
			switch {
			case mi && mj:
				continue
			case mi:
				return 1
			case mj:
				return -1
			}
			if r := cmps[c](i, j); r != 0 {
				if !asc[c] {
					return -r
				}
				return r
			}
		}
		return 0
	})

	return df.Take(idx), nil
}

func expandAscending(names []string, ascending []bool) ([]bool, error) {
	asc := make([]bool, len(names))
	switch len(ascending) {
	case 0:
		for i := range asc {
			asc[i] = true
		}
	case 1:
		for i := range asc {
			asc[i] = ascending[0]
		}
	case len(names):
		copy(asc, ascending)
	default:
		return nil, errors.NewInvalidInputError("OrderBy",
			"ascending must have one flag or one flag per column")
	}
	return asc, nil
}
