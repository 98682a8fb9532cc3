package dataframe

import (
	"github.com/paveg/seekwell/internal/errors"
)

// Distinct drops rows equal to an earlier row, keeping first occurrences in
// their original order. Nulls compare equal to each other.
func (df *DataFrame) Distinct() *DataFrame {
	arrs := df.arrays(df.order)
	defer releaseArrays(arrs)

	groups := groupRows(arrs, df.Len())
	firsts := make([]int, len(groups))
	for i, rows := range groups {
		firsts[i] = rows[0]
	}
	return df.Take(firsts)
}

// Difference returns the rows of df whose values, matched by column name,
// do not appear as a row of other. If other lacks any of df's columns no
// row can match and every row is kept.
func (df *DataFrame) Difference(other *DataFrame) *DataFrame {
	for _, name := range df.order {
		if !other.HasColumn(name) {
			return df.Clone()
		}
	}

	leftArrs, rightArrs := df.arrays(df.order), other.arrays(df.order)
	defer releaseArrays(leftArrs)
	defer releaseArrays(rightArrs)

	ix := indexRows(rightArrs, other.Len())
	keep := make([]int, 0, df.Len())
	for i := 0; i < df.Len(); i++ {
		if ix.lookup(leftArrs, i) == nil {
			keep = append(keep, i)
		}
	}
	return df.Take(keep)
}

// SharedColumns returns the columns of df that other also has, in df order
func (df *DataFrame) SharedColumns(other *DataFrame) []string {
	var shared []string
	for _, name := range df.order {
		if other.HasColumn(name) {
			shared = append(shared, name)
		}
	}
	return shared
}

// Intersect inner-joins df and other on every shared column. Rows are not
// deduplicated.
func (df *DataFrame) Intersect(other *DataFrame) (*DataFrame, error) {
	shared := df.SharedColumns(other)
	if len(shared) == 0 {
		return nil, errors.NewInvalidInputError("Intersect", "frames have no columns in common")
	}
	return df.Join(other, &JoinOptions{Type: InnerJoin, On: shared})
}
