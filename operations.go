package seekwell

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/seekwell/internal/condition"
	"github.com/paveg/seekwell/internal/dataframe"
	"github.com/paveg/seekwell/internal/errors"
	"github.com/paveg/seekwell/internal/expr"
	"github.com/paveg/seekwell/internal/parallel"
	"github.com/paveg/seekwell/internal/series"
	"github.com/paveg/seekwell/internal/validation"
)

// Select keeps the columns named by specs. With inclusions the output
// follows their first-mention order; with only exclusions it keeps every
// other column in frame order. No specs keeps everything.
func (d *DataFrame) Select(specs ...ColumnSpec) (*DataFrame, error) {
	return d.derive("Select", func() (*dataframe.DataFrame, error) {
		return d.df.Select(resolveSelection(d.df.Columns(), specs)...)
	})
}

// Where keeps the rows matching cond, in their original order. See Mask
// for the condition syntax.
func (d *DataFrame) Where(cond string) (*DataFrame, error) {
	return d.WhereAll(cond)
}

// WhereAll keeps the rows matching every condition
func (d *DataFrame) WhereAll(conds ...string) (*DataFrame, error) {
	return d.derive("Where", func() (*dataframe.DataFrame, error) {
		mask, err := d.mask("Where", conds)
		if err != nil {
			return nil, err
		}
		return d.df.Filter(mask)
	})
}

// Mask evaluates cond to one flag per row.
//
// A condition is a list of clauses joined by " and " / " or ", folded left
// to right without precedence. A clause is either
//
//	column <op> value       op is one of == != >= <= > <
//	column [not] in v1, v2  membership
//
// Values are parsed by the column type. A value that does not parse makes
// the clause match nothing, or fails when StrictLiterals is set. Null cells
// never match. An empty condition matches every row.
func (d *DataFrame) Mask(cond string) ([]bool, error) {
	return d.mask("Where", []string{cond})
}

func (d *DataFrame) mask(op string, conds []string) ([]bool, error) {
	opts := d.conditionOptions(op)
	masks, err := d.conditionMasks(conds, opts)
	if err != nil {
		return nil, err
	}

	result := make([]bool, d.Len())
	for i := range result {
		result[i] = true
	}
	for _, m := range masks {
		for i := range result {
			result[i] = result[i] && m[i]
		}
	}
	return result, nil
}

// conditionMasks evaluates each condition on its own; large frames spread
// the conditions over a worker pool
func (d *DataFrame) conditionMasks(conds []string, opts condition.Options) ([][]bool, error) {
	if !parallel.ShouldParallelize(d.Len(), len(conds)) {
		masks := make([][]bool, len(conds))
		for i, text := range conds {
			m, err := condition.EvaluateString(d.df, text, opts)
			if err != nil {
				return nil, err
			}
			masks[i] = m
		}
		return masks, nil
	}
	return parallel.Map(context.Background(), parallel.NewWorkerPool(len(conds)), conds,
		func(_ context.Context, _ int, text string) ([]bool, error) {
			return condition.EvaluateString(d.df, text, opts)
		})
}

func (d *DataFrame) conditionOptions(op string) condition.Options {
	cfg := d.config()
	return condition.Options{Op: op, Strict: cfg.StrictLiterals, DateLayouts: cfg.DateLayouts}
}

// Having always fails: filter groups with GroupBy(...).Having instead
func (d *DataFrame) Having(string) (*DataFrame, error) {
	return nil, errors.NewNotGroupedError("Having")
}

// OrderBy sorts by the columns of spec. No flag sorts ascending, one flag
// applies to every column, otherwise there must be one flag per column. The
// sort is stable and nulls come last. Repeated columns keep their own flag.
func (d *DataFrame) OrderBy(spec ColumnSpec, ascending ...bool) (*DataFrame, error) {
	return d.derive("OrderBy", func() (*dataframe.DataFrame, error) {
		if spec.IsExclude() {
			_, err := keyColumns("OrderBy", []ColumnSpec{spec})
			return nil, err
		}
		return d.df.SortBy(spec.Names(), ascending)
	})
}

// Limit returns the first n rows. n <= 0 gives an empty frame with the same
// columns.
func (d *DataFrame) Limit(n int) *DataFrame {
	out, _ := d.derive("Limit", func() (*dataframe.DataFrame, error) {
		return d.df.Head(n), nil
	})
	return out
}

// Join combines d with other on the key columns of on. how is "inner",
// "left", "right", "outer" or "cross"; a cross join takes no keys. Key
// columns appear once and overlapping columns get the configured suffixes.
func (d *DataFrame) Join(other *DataFrame, on ColumnSpec, how string) (*DataFrame, error) {
	return d.derive("Join", func() (*dataframe.DataFrame, error) {
		joinType, err := dataframe.ParseJoinType(how)
		if err != nil {
			return nil, err
		}
		keys, err := keyColumns("Join", []ColumnSpec{on})
		if err != nil {
			return nil, err
		}
		cfg := d.config()
		return d.df.Join(other.df, &dataframe.JoinOptions{
			Type:        joinType,
			On:          keys,
			LeftSuffix:  cfg.LeftSuffix,
			RightSuffix: cfg.RightSuffix,
		})
	})
}

// Union appends the rows of other. Both frames need the same column names,
// order and types.
func (d *DataFrame) Union(other *DataFrame) (*DataFrame, error) {
	return d.derive("Union", func() (*dataframe.DataFrame, error) {
		return d.df.Concat(other.df)
	})
}

// Distinct drops rows equal to an earlier row
func (d *DataFrame) Distinct() *DataFrame {
	out, _ := d.derive("Distinct", func() (*dataframe.DataFrame, error) {
		return d.df.Distinct(), nil
	})
	return out
}

// Intersect inner-joins d and other on every column they share. Rows are
// not deduplicated.
func (d *DataFrame) Intersect(other *DataFrame) (*DataFrame, error) {
	return d.derive("Intersect", func() (*dataframe.DataFrame, error) {
		return d.df.Intersect(other.df)
	})
}

// Difference keeps the rows of d that do not occur in other, matching
// columns by name
func (d *DataFrame) Difference(other *DataFrame) *DataFrame {
	out, _ := d.derive("Difference", func() (*dataframe.DataFrame, error) {
		return d.df.Difference(other.df), nil
	})
	return out
}

// WithColumn evaluates expression and stores it as column name, replacing
// an existing column in place or appending a new one. It modifies d and
// returns it.
//
// Expressions support arithmetic (+ - * / %), comparisons, and/or/not,
// parentheses, string and number literals, `quoted` column names and the
// functions abs, round, floor, ceil, sqrt, length, upper, lower, trim,
// coalesce, year, month, day, hour, minute and second.
func (d *DataFrame) WithColumn(name, expression string) (*DataFrame, error) {
	err := d.record("WithColumn", func() error {
		e, err := expr.Parse(expression)
		if err != nil {
			return errors.NewParseError("WithColumn", name, err)
		}
		refs := expr.Columns(e)
		if err := validation.ValidateColumns(d.df, "WithColumn", refs...); err != nil {
			return err
		}

		columns := make(map[string]arrow.Array, len(refs))
		for _, ref := range refs {
			s, _ := d.df.Column(ref)
			columns[ref] = s.Array()
		}
		defer func() {
			for _, arr := range columns {
				arr.Release()
			}
		}()

		layouts := d.config().DateLayouts
		evaluator := expr.NewEvaluator(memory.NewGoAllocator()).WithTimeParser(func(s string) (time.Time, error) {
			return dataframe.ParseTime(s, layouts)
		})
		arr, err := evaluator.Evaluate(e, columns, d.Len())
		if err != nil {
			return errors.NewValidationError("WithColumn", name, err.Error())
		}
		s := series.FromArray(name, arr)
		if err := d.df.SetColumn(s); err != nil {
			s.Release()
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// RenameColumn returns a frame with column old called name
func (d *DataFrame) RenameColumn(old, name string) (*DataFrame, error) {
	return d.derive("RenameColumn", func() (*dataframe.DataFrame, error) {
		return d.df.Rename(old, name)
	})
}

// Cast converts a column in place to "int64", "int32", "float64",
// "float32", "string", "bool" or "timestamp" (aliases such as "int",
// "float", "str" and "datetime" are accepted). It modifies d and returns it.
func (d *DataFrame) Cast(column, dtype string) (*DataFrame, error) {
	err := d.record("Cast", func() error {
		dt, err := dataframe.ParseDType(dtype)
		if err != nil {
			return err
		}
		return d.df.Cast(column, dt, d.config().DateLayouts)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DropColumn returns a frame without the named columns
func (d *DataFrame) DropColumn(names ...string) (*DataFrame, error) {
	return d.derive("DropColumn", func() (*dataframe.DataFrame, error) {
		return d.df.Drop(names...)
	})
}

// Unpivot turns value columns into rows. For each value column in turn,
// every row emits its id columns, the column name under varName and the
// cell under valueName. Empty valueVars means every non-id column; empty
// names default to "variable" and "value".
func (d *DataFrame) Unpivot(idVars, valueVars []string, varName, valueName string) (*DataFrame, error) {
	return d.derive("Unpivot", func() (*dataframe.DataFrame, error) {
		return d.df.Melt(dataframe.MeltOptions{
			IDVars:    idVars,
			ValueVars: valueVars,
			VarName:   varName,
			ValueName: valueName,
		})
	})
}

// GroupHaving groups by spec and keeps the groups matching cond
func (d *DataFrame) GroupHaving(spec ColumnSpec, cond string) (*DataFrame, error) {
	g, err := d.GroupBy(spec)
	if err != nil {
		return nil, err
	}
	return g.Having(cond)
}
