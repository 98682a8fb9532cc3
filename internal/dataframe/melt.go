package dataframe

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/seekwell/internal/errors"
	"github.com/paveg/seekwell/internal/series"
	"github.com/paveg/seekwell/internal/validation"
)

// Default column names produced by Melt
const (
	DefaultVarName   = "variable"
	DefaultValueName = "value"
)

// MeltOptions configures Melt
type MeltOptions struct {
	IDVars    []string
	ValueVars []string // empty means every column not in IDVars
	VarName   string
	ValueName string
}

// Melt reshapes value columns into (variable, value) rows. For each value
// column in turn, every input row emits its id columns, the value column's
// name and the cell.
func (df *DataFrame) Melt(opts MeltOptions) (*DataFrame, error) {
	if opts.VarName == "" {
		opts.VarName = DefaultVarName
	}
	if opts.ValueName == "" {
		opts.ValueName = DefaultValueName
	}
	if err := validation.ValidateColumns(df, "Unpivot", opts.IDVars...); err != nil {
		return nil, err
	}
	if err := validation.ValidateColumns(df, "Unpivot", opts.ValueVars...); err != nil {
		return nil, err
	}

	valueVars := opts.ValueVars
	if len(valueVars) == 0 {
		isID := make(map[string]bool, len(opts.IDVars))
		for _, id := range opts.IDVars {
			isID[id] = true
		}
		for _, name := range df.order {
			if !isID[name] {
				valueVars = append(valueVars, name)
			}
		}
	}
	if len(valueVars) == 0 {
		return nil, errors.NewInvalidInputError("Unpivot", "no value columns to unpivot")
	}

	names := append(append([]string(nil), opts.IDVars...), opts.VarName, opts.ValueName)
	if err := validation.ValidateUnique("Unpivot", names...); err != nil {
		return nil, err
	}

	n := df.Len()
	mem := memory.NewGoAllocator()

	repeated := make([]int, 0, n*len(valueVars))
	for range valueVars {
		for i := 0; i < n; i++ {
			repeated = append(repeated, i)
		}
	}

	cols := make([]ISeries, 0, len(opts.IDVars)+2)
	for _, id := range opts.IDVars {
		arr := df.columns[id].Array()
		cols = append(cols, series.FromArray(id, takeArray(arr, repeated, mem)))
		arr.Release()
	}

	vb := array.NewStringBuilder(mem)
	for _, name := range valueVars {
		for i := 0; i < n; i++ {
			vb.Append(name)
		}
	}
	cols = append(cols, series.FromArray(opts.VarName, vb.NewArray()))
	vb.Release()

	valueCol, err := df.meltValues(opts.ValueName, valueVars, mem)
	if err != nil {
		releaseAll(cols)
		return nil, err
	}
	cols = append(cols, valueCol)
	return newFrame(cols), nil
}

// meltValues stacks the value columns into one. Columns of one type keep it;
// mixed numeric columns widen to float64; anything else becomes string.
func (df *DataFrame) meltValues(name string, valueVars []string, mem memory.Allocator) (ISeries, error) {
	arrs := df.arrays(valueVars)
	defer releaseArrays(arrs)

	target := arrs[0].DataType()
	for _, a := range arrs[1:] {
		if arrow.TypeEqual(target, a.DataType()) {
			continue
		}
		if series.IsNumeric(target) && series.IsNumeric(a.DataType()) {
			target = arrow.PrimitiveTypes.Float64
		} else {
			target = arrow.BinaryTypes.String
			break
		}
	}

	sameType := true
	for _, a := range arrs {
		sameType = sameType && arrow.TypeEqual(target, a.DataType())
	}
	if sameType {
		merged, err := array.Concatenate(arrs, mem)
		if err != nil {
			return nil, errors.NewInternalError("Unpivot", err)
		}
		return series.FromArray(name, merged), nil
	}

	b := array.NewBuilder(mem, target)
	defer b.Release()
	for _, a := range arrs {
		for i := 0; i < a.Len(); i++ {
			if err := series.AppendValue(b, series.ValueAt(a, i)); err != nil {
				return nil, errors.NewInternalError("Unpivot", err)
			}
		}
	}
	return series.FromArray(name, b.NewArray()), nil
}
