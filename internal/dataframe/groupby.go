package dataframe

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/seekwell/internal/errors"
	"github.com/paveg/seekwell/internal/series"
	"github.com/paveg/seekwell/internal/validation"
)

// AggFunc names an aggregate function
type AggFunc string

// Supported aggregate functions
const (
	AggCount AggFunc = "count"
	AggSum   AggFunc = "sum"
	AggMean  AggFunc = "mean"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
)

// Aggregation describes one aggregate output column. An empty Column with
// AggCount counts rows, nulls included.
type Aggregation struct {
	Func   AggFunc
	Column string
	Alias  string
}

// Name returns the output column name
func (a Aggregation) Name() string {
	if a.Alias != "" {
		return a.Alias
	}
	col := a.Column
	if col == "" {
		col = "*"
	}
	return fmt.Sprintf("%s(%s)", a.Func, col)
}

var aggPattern = regexp.MustCompile(`(?i)^(count|sum|mean|avg|min|max)\s*\(\s*(.+?)\s*\)$`)

// ParseAggregation parses text such as "count(*)", "sum(mass)" or
// "AVG(bill_length)". The aggregation keeps text as its output name.
func ParseAggregation(text string) (Aggregation, bool) {
	m := aggPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Aggregation{}, false
	}
	fn := AggFunc(strings.ToLower(m[1]))
	if fn == "avg" {
		fn = AggMean
	}
	col := strings.Trim(m[2], "`")
	if col == "*" {
		if fn != AggCount {
			return Aggregation{}, false
		}
		col = ""
	}
	return Aggregation{Func: fn, Column: col, Alias: strings.TrimSpace(text)}, true
}

// GroupBy holds a frame partitioned by the values of its key columns
type GroupBy struct {
	df     *DataFrame
	keys   []string
	groups [][]int
}

// GroupBy partitions rows by equality of the key tuple. Null keys form their
// own group. Groups are ordered by first appearance.
func (df *DataFrame) GroupBy(keys ...string) (*GroupBy, error) {
	if len(keys) == 0 {
		return nil, errors.NewInvalidInputError("GroupBy", "at least one key column is required")
	}
	if err := validation.NewCompoundValidator(
		validation.NewColumnValidator(df, "GroupBy", keys...),
		validation.NewUniqueValidator("GroupBy", keys...),
	).Validate(); err != nil {
		return nil, err
	}

	arrs := df.arrays(keys)
	defer releaseArrays(arrs)
	return &GroupBy{df: df, keys: append([]string(nil), keys...), groups: groupRows(arrs, df.Len())}, nil
}

// Keys returns the grouping columns
func (g *GroupBy) Keys() []string {
	return append([]string(nil), g.keys...)
}

// Source returns the grouped frame
func (g *GroupBy) Source() *DataFrame {
	return g.df
}

// NGroups returns the number of groups
func (g *GroupBy) NGroups() int {
	return len(g.groups)
}

// Frame returns the rows of group i
func (g *GroupBy) Frame(i int) *DataFrame {
	return g.df.Take(g.groups[i])
}

// FilterGroups keeps the rows of every group whose mask entry is true, in
// the original row order
func (g *GroupBy) FilterGroups(keep []bool) (*DataFrame, error) {
	if len(keep) != len(g.groups) {
		return nil, errors.NewValidationError("Having", "",
			fmt.Sprintf("expected %d group flags, got %d", len(g.groups), len(keep)))
	}
	rowMask := make([]bool, g.df.Len())
	for gi, rows := range g.groups {
		if !keep[gi] {
			continue
		}
		for _, r := range rows {
			rowMask[r] = true
		}
	}
	return g.df.Take(maskIndices(rowMask)), nil
}

// Aggregate returns one row per group holding the key columns followed by
// one column per aggregation
func (g *GroupBy) Aggregate(aggs ...Aggregation) (*DataFrame, error) {
	for _, a := range aggs {
		if a.Column != "" && !g.df.HasColumn(a.Column) {
			return nil, errors.NewColumnNotFoundError("Aggregate", a.Column)
		}
	}

	firsts := make([]int, len(g.groups))
	for i, rows := range g.groups {
		firsts[i] = rows[0]
	}
	out := g.df.Take(firsts)
	keyFrame, err := out.Select(g.keys...)
	out.Release()
	if err != nil {
		return nil, err
	}

	mem := memory.NewGoAllocator()
	for _, a := range aggs {
		s, err := g.aggregate(a, mem)
		if err == nil {
			err = keyFrame.SetColumn(s)
		}
		if err != nil {
			keyFrame.Release()
			return nil, err
		}
	}
	return keyFrame, nil
}

func (g *GroupBy) aggregate(a Aggregation, mem memory.Allocator) (ISeries, error) {
	name := a.Name()
	if a.Column == "" {
		if a.Func != AggCount {
			return nil, errors.NewInvalidInputError("Aggregate", fmt.Sprintf("%s requires a column", a.Func))
		}
		counts := make([]int64, len(g.groups))
		for i, rows := range g.groups {
			counts[i] = int64(len(rows))
		}
		return series.New(name, counts, mem), nil
	}

	arr := g.df.columns[a.Column].Array()
	defer arr.Release()

	switch a.Func {
	case AggCount:
		counts := make([]int64, len(g.groups))
		for i, rows := range g.groups {
			for _, r := range rows {
				if !arr.IsNull(r) {
					counts[i]++
				}
			}
		}
		return series.New(name, counts, mem), nil
	case AggSum:
		return g.sum(name, arr, mem)
	case AggMean:
		return g.mean(name, arr, mem)
	case AggMin, AggMax:
		return g.extreme(name, arr, a.Func == AggMax, mem)
	default:
		return nil, errors.NewInvalidInputError("Aggregate", fmt.Sprintf("unknown aggregate %q", a.Func))
	}
}

// sum keeps integer columns integral; an empty or all-null group sums to 0
func (g *GroupBy) sum(name string, arr arrow.Array, mem memory.Allocator) (ISeries, error) {
	if !series.IsNumeric(arr.DataType()) {
		return nil, errors.NewUnsupportedTypeError("Aggregate", fmt.Sprintf("sum over %s", arr.DataType()))
	}
	if series.IsInteger(arr.DataType()) {
		sums := make([]int64, len(g.groups))
		for i, rows := range g.groups {
			for _, r := range rows {
				switch n := series.ValueAt(arr, r).(type) {
				case int64:
					sums[i] += n
				case int32:
					sums[i] += int64(n)
				}
			}
		}
		return series.New(name, sums, mem), nil
	}
	sums := make([]float64, len(g.groups))
	for i, rows := range g.groups {
		for _, r := range rows {
			if v := series.ValueAt(arr, r); v != nil {
				f, _ := series.ToFloat64(v)
				sums[i] += f
			}
		}
	}
	return series.New(name, sums, mem), nil
}

func (g *GroupBy) mean(name string, arr arrow.Array, mem memory.Allocator) (ISeries, error) {
	if !series.IsNumeric(arr.DataType()) {
		return nil, errors.NewUnsupportedTypeError("Aggregate", fmt.Sprintf("mean over %s", arr.DataType()))
	}
	means := make([]float64, len(g.groups))
	valid := make([]bool, len(g.groups))
	for i, rows := range g.groups {
		var total float64
		var n int
		for _, r := range rows {
			if v := series.ValueAt(arr, r); v != nil {
				f, _ := series.ToFloat64(v)
				if math.IsNaN(f) {
					continue
				}
				total += f
				n++
			}
		}
		if n > 0 {
			means[i], valid[i] = total/float64(n), true
		}
	}
	return series.NewNullable(name, means, valid, mem)
}

// extreme picks the min or max non-null value of each group, keeping the
// column type
func (g *GroupBy) extreme(name string, arr arrow.Array, wantMax bool, mem memory.Allocator) (ISeries, error) {
	if arr.DataType().ID() == arrow.BOOL {
		return nil, errors.NewUnsupportedTypeError("Aggregate", "min/max over bool")
	}
	cmp := newComparator(arr)
	idx := make([]int, len(g.groups))
	for i, rows := range g.groups {
		best := nullRow
		for _, r := range rows {
			if isMissing(arr, r) {
				continue
			}
			if best == nullRow {
				best = r
				continue
			}
			c := cmp(r, best)
			if (wantMax && c > 0) || (!wantMax && c < 0) {
				best = r
			}
		}
		idx[i] = best
	}
	return series.FromArray(name, takeArray(arr, idx, mem)), nil
}

// validateMask checks that a row mask lines up with the frame
func validateMask(df *DataFrame, mask []bool, op string) error {
	return validation.ValidateLength(df.Len(), len(mask), op, "mask")
}
