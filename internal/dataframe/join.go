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

// JoinType represents the type of join operation
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullOuterJoin
	CrossJoin
)

func (t JoinType) String() string {
	switch t {
	case InnerJoin:
		return "inner"
	case LeftJoin:
		return "left"
	case RightJoin:
		return "right"
	case FullOuterJoin:
		return "outer"
	case CrossJoin:
		return "cross"
	default:
		return fmt.Sprintf("JoinType(%d)", int(t))
	}
}

// ParseJoinType maps "inner", "left", "right", "outer" (or "full") and
// "cross" to a JoinType
func ParseJoinType(s string) (JoinType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inner", "":
		return InnerJoin, nil
	case "left":
		return LeftJoin, nil
	case "right":
		return RightJoin, nil
	case "outer", "full", "full_outer":
		return FullOuterJoin, nil
	case "cross":
		return CrossJoin, nil
	default:
		return InnerJoin, errors.NewInvalidInputError("Join", fmt.Sprintf("unknown join type %q", s))
	}
}

// JoinOptions specifies parameters for join operations
type JoinOptions struct {
	Type        JoinType
	On          []string // key columns present in both frames
	LeftSuffix  string   // appended to overlapping left columns, default "_x"
	RightSuffix string   // appended to overlapping right columns, default "_y"
}

// Join combines df and right on the key columns. Key columns appear once,
// taking the right value for rows that exist only on the right side.
//
// Row order: inner and left joins follow the left frame, right joins follow
// the right frame, outer joins emit the left join followed by the unmatched
// right rows, cross joins are left-major.
func (df *DataFrame) Join(right *DataFrame, options *JoinOptions) (*DataFrame, error) {
	opts := *options
	if opts.LeftSuffix == "" {
		opts.LeftSuffix = "_x"
	}
	if opts.RightSuffix == "" {
		opts.RightSuffix = "_y"
	}

	if err := validateJoinKeys(df, right, opts); err != nil {
		return nil, err
	}

	var leftIdx, rightIdx []int
	if opts.Type == CrossJoin {
		leftIdx, rightIdx = crossIndices(df.Len(), right.Len())
	} else {
		leftArrs, rightArrs := df.arrays(opts.On), right.arrays(opts.On)
		defer releaseArrays(leftArrs)
		defer releaseArrays(rightArrs)

		switch opts.Type {
		case InnerJoin:
			leftIdx, rightIdx = performInnerJoin(leftArrs, rightArrs, df.Len(), right.Len())
		case LeftJoin:
			leftIdx, rightIdx = performLeftJoin(leftArrs, rightArrs, df.Len(), right.Len())
		case RightJoin:
			rightIdx, leftIdx = performLeftJoin(rightArrs, leftArrs, right.Len(), df.Len())
		case FullOuterJoin:
			leftIdx, rightIdx = performFullOuterJoin(leftArrs, rightArrs, df.Len(), right.Len())
		default:
			return nil, errors.NewInvalidInputError("Join", fmt.Sprintf("unsupported join type: %v", opts.Type))
		}
	}

	return df.buildJoinResult(right, opts, leftIdx, rightIdx)
}

// validateJoinKeys ensures all join keys exist in both frames with comparable types
func validateJoinKeys(left, right *DataFrame, opts JoinOptions) error {
	if opts.Type == CrossJoin {
		if len(opts.On) > 0 {
			return errors.NewInvalidInputError("Join", "cross join does not take key columns")
		}
		return nil
	}
	if len(opts.On) == 0 {
		return errors.NewInvalidInputError("Join", "at least one key column is required")
	}
	if err := validation.NewCompoundValidator(
		validation.NewUniqueValidator("Join", opts.On...),
		validation.NewColumnValidator(left, "Join", opts.On...),
		validation.NewColumnValidator(right, "Join", opts.On...),
	).Validate(); err != nil {
		return err
	}
	for _, key := range opts.On {
		lt := left.columns[key].DataType()
		rt := right.columns[key].DataType()
		if !arrow.TypeEqual(lt, rt) && !(series.IsNumeric(lt) && series.IsNumeric(rt)) {
			return errors.NewValidationError("Join", key,
				fmt.Sprintf("key types differ: %s vs %s", lt, rt))
		}
	}
	return nil
}

func crossIndices(nLeft, nRight int) ([]int, []int) {
	leftIdx := make([]int, 0, nLeft*nRight)
	rightIdx := make([]int, 0, nLeft*nRight)
	for i := 0; i < nLeft; i++ {
		for j := 0; j < nRight; j++ {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, j)
		}
	}
	return leftIdx, rightIdx
}

// performInnerJoin returns matching indices for inner join
func performInnerJoin(leftArrs, rightArrs []arrow.Array, nLeft, nRight int) ([]int, []int) {
	ix := indexRows(rightArrs, nRight)
	var leftIdx, rightIdx []int
	for i := 0; i < nLeft; i++ {
		for _, r := range ix.lookup(leftArrs, i) {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, r)
		}
	}
	return leftIdx, rightIdx
}

// performLeftJoin returns indices for left join (all left rows, matched right rows)
func performLeftJoin(leftArrs, rightArrs []arrow.Array, nLeft, nRight int) ([]int, []int) {
	ix := indexRows(rightArrs, nRight)
	var leftIdx, rightIdx []int
	for i := 0; i < nLeft; i++ {
		matches := ix.lookup(leftArrs, i)
		if len(matches) == 0 {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, nullRow)
			continue
		}
		for _, r := range matches {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, r)
		}
	}
	return leftIdx, rightIdx
}

// performFullOuterJoin returns indices for full outer join (all rows from both sides)
func performFullOuterJoin(leftArrs, rightArrs []arrow.Array, nLeft, nRight int) ([]int, []int) {
	leftIdx, rightIdx := performLeftJoin(leftArrs, rightArrs, nLeft, nRight)
	matched := make([]bool, nRight)
	for _, r := range rightIdx {
		if r != nullRow {
			matched[r] = true
		}
	}
	for r, ok := range matched {
		if !ok {
			leftIdx = append(leftIdx, nullRow)
			rightIdx = append(rightIdx, r)
		}
	}
	return leftIdx, rightIdx
}

// buildJoinResult constructs the final DataFrame from join indices
func (df *DataFrame) buildJoinResult(right *DataFrame, opts JoinOptions, leftIdx, rightIdx []int) (*DataFrame, error) {
	isKey := make(map[string]bool, len(opts.On))
	for _, k := range opts.On {
		isKey[k] = true
	}

	mem := memory.NewGoAllocator()
	var cols []ISeries
	for _, name := range df.order {
		arr := df.columns[name].Array()
		switch {
		case isKey[name]:
			other := right.columns[name].Array()
			cols = append(cols, series.FromArray(name, coalesceTake(arr, other, leftIdx, rightIdx, mem)))
			other.Release()
		case right.HasColumn(name):
			cols = append(cols, series.FromArray(name+opts.LeftSuffix, takeArray(arr, leftIdx, mem)))
		default:
			cols = append(cols, series.FromArray(name, takeArray(arr, leftIdx, mem)))
		}
		arr.Release()
	}
	for _, name := range right.order {
		if isKey[name] {
			continue
		}
		outName := name
		if df.HasColumn(name) {
			outName = name + opts.RightSuffix
		}
		arr := right.columns[name].Array()
		cols = append(cols, series.FromArray(outName, takeArray(arr, rightIdx, mem)))
		arr.Release()
	}

	out, err := New(cols...)
	if err != nil {
		releaseAll(cols)
		return nil, err
	}
	return out, nil
}

// coalesceTake picks left[li] when li is a real row and right[ri] otherwise.
// Keys of different numeric types merge into float64.
func coalesceTake(left, right arrow.Array, leftIdx, rightIdx []int, mem memory.Allocator) arrow.Array {
	dtype := left.DataType()
	if !arrow.TypeEqual(dtype, right.DataType()) {
		dtype = arrow.PrimitiveTypes.Float64
	}
	b := array.NewBuilder(mem, dtype)
	defer b.Release()
	for i, li := range leftIdx {
		var v any
		switch {
		case li != nullRow:
			v = series.ValueAt(left, li)
		case rightIdx[i] != nullRow:
			v = series.ValueAt(right, rightIdx[i])
		}
		_ = series.AppendValue(b, v)
	}
	return b.NewArray()
}
