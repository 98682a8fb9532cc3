package dataframe

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/seekwell/internal/series"
)

// nullRow in a take index produces a null in every column
const nullRow = -1

type valueArray[T any] interface {
	arrow.Array
	Value(i int) T
}

type valueBuilder[T any] interface {
	array.Builder
	Append(v T)
}

func takeTyped[T any, A valueArray[T], B valueBuilder[T]](a A, b B, idx []int) arrow.Array {
	defer b.Release()
	b.Reserve(len(idx))
	for _, i := range idx {
		if i == nullRow || a.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(a.Value(i))
	}
	return b.NewArray()
}

// takeArray gathers rows of arr by index into a new array
func takeArray(arr arrow.Array, idx []int, mem memory.Allocator) arrow.Array {
	switch a := arr.(type) {
	case *array.Int64:
		return takeTyped[int64](a, array.NewInt64Builder(mem), idx)
	case *array.Int32:
		return takeTyped[int32](a, array.NewInt32Builder(mem), idx)
	case *array.Float64:
		return takeTyped[float64](a, array.NewFloat64Builder(mem), idx)
	case *array.Float32:
		return takeTyped[float32](a, array.NewFloat32Builder(mem), idx)
	case *array.String:
		return takeTyped[string](a, array.NewStringBuilder(mem), idx)
	case *array.Boolean:
		return takeTyped[bool](a, array.NewBooleanBuilder(mem), idx)
	case *array.Timestamp:
		return takeTyped[arrow.Timestamp](a, array.NewTimestampBuilder(mem, a.DataType().(*arrow.TimestampType)), idx)
	default:
		b := array.NewBuilder(mem, arr.DataType())
		defer b.Release()
		for _, i := range idx {
			if i == nullRow || arr.IsNull(i) {
				b.AppendNull()
				continue
			}
			_ = b.AppendValueFromString(arr.ValueStr(i))
		}
		return b.NewArray()
	}
}

// Take returns a new frame made of the rows at idx, in that order.
// An index of -1 yields a row of nulls.
func (df *DataFrame) Take(idx []int) *DataFrame {
	mem := memory.NewGoAllocator()
	cols := make([]ISeries, len(df.order))
	for i, name := range df.order {
		arr := df.columns[name].Array()
		cols[i] = series.FromArray(name, takeArray(arr, idx, mem))
		arr.Release()
	}
	return newFrame(cols)
}

// Filter returns the rows where mask is true
func (df *DataFrame) Filter(mask []bool) (*DataFrame, error) {
	if err := validateMask(df, mask, "Filter"); err != nil {
		return nil, err
	}
	return df.Take(maskIndices(mask)), nil
}

func maskIndices(mask []bool) []int {
	idx := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			idx = append(idx, i)
		}
	}
	return idx
}
