package seekwell

import (
	"fmt"
	"strconv"
	"strings"
)

// Operation is one deferred step of a Query
type Operation interface {
	Apply(df *DataFrame) (*DataFrame, error)
	String() string
}

type operation struct {
	desc  string
	apply func(*DataFrame) (*DataFrame, error)
}

func (o operation) Apply(df *DataFrame) (*DataFrame, error) {
	return o.apply(df)
}

func (o operation) String() string {
	return o.desc
}

// Query records operations against a source frame and runs them on Collect.
// Each builder method returns a new Query; the receiver is unchanged.
//
//	out, err := df.Query().
//		Where("mass > 3500").
//		Select(seekwell.Col("species"), seekwell.Col("mass")).
//		OrderBy(seekwell.Col("mass"), false).
//		Limit(3).
//		Collect()
type Query struct {
	source     *DataFrame
	operations []Operation
}

// Query starts a query over d. d is never modified by Collect.
func (d *DataFrame) Query() *Query {
	return &Query{source: d}
}

func (q *Query) then(desc string, apply func(*DataFrame) (*DataFrame, error)) *Query {
	ops := make([]Operation, len(q.operations)+1)
	copy(ops, q.operations)
	ops[len(q.operations)] = operation{desc: desc, apply: apply}
	return &Query{source: q.source, operations: ops}
}

// Then appends a custom operation
func (q *Query) Then(op Operation) *Query {
	return q.then(op.String(), op.Apply)
}

// Select adds a column selection
func (q *Query) Select(specs ...ColumnSpec) *Query {
	return q.then("select("+specList(specs)+")", func(df *DataFrame) (*DataFrame, error) {
		return df.Select(specs...)
	})
}

// Where adds a row filter
func (q *Query) Where(cond string) *Query {
	return q.then("where("+cond+")", func(df *DataFrame) (*DataFrame, error) {
		return df.Where(cond)
	})
}

// GroupHaving adds a grouped filter
func (q *Query) GroupHaving(spec ColumnSpec, cond string) *Query {
	return q.then(fmt.Sprintf("group_having(%s, %s)", spec, cond), func(df *DataFrame) (*DataFrame, error) {
		return df.GroupHaving(spec, cond)
	})
}

// OrderBy adds a sort
func (q *Query) OrderBy(spec ColumnSpec, ascending ...bool) *Query {
	flags := make([]string, len(ascending))
	for i, asc := range ascending {
		flags[i] = strconv.FormatBool(asc)
	}
	desc := fmt.Sprintf("order_by(%s, ascending=[%s])", spec, strings.Join(flags, ", "))
	return q.then(desc, func(df *DataFrame) (*DataFrame, error) {
		return df.OrderBy(spec, ascending...)
	})
}

// Limit adds a row limit
func (q *Query) Limit(n int) *Query {
	return q.then(fmt.Sprintf("limit(%d)", n), func(df *DataFrame) (*DataFrame, error) {
		return df.Limit(n), nil
	})
}

// Distinct adds duplicate removal
func (q *Query) Distinct() *Query {
	return q.then("distinct()", func(df *DataFrame) (*DataFrame, error) {
		return df.Distinct(), nil
	})
}

// Join adds a join with other
func (q *Query) Join(other *DataFrame, on ColumnSpec, how string) *Query {
	return q.then(fmt.Sprintf("join(%s, %s)", on, how), func(df *DataFrame) (*DataFrame, error) {
		return df.Join(other, on, how)
	})
}

// WithColumn adds a computed column
func (q *Query) WithColumn(name, expression string) *Query {
	return q.then(fmt.Sprintf("with_column(%s = %s)", name, expression), func(df *DataFrame) (*DataFrame, error) {
		return df.WithColumn(name, expression)
	})
}

// Cast adds a column conversion
func (q *Query) Cast(column, dtype string) *Query {
	return q.then(fmt.Sprintf("cast(%s, %s)", column, dtype), func(df *DataFrame) (*DataFrame, error) {
		return df.Cast(column, dtype)
	})
}

// RenameColumn adds a rename
func (q *Query) RenameColumn(old, name string) *Query {
	return q.then(fmt.Sprintf("rename(%s -> %s)", old, name), func(df *DataFrame) (*DataFrame, error) {
		return df.RenameColumn(old, name)
	})
}

// DropColumn adds a column removal
func (q *Query) DropColumn(names ...string) *Query {
	return q.then("drop("+strings.Join(names, ", ")+")", func(df *DataFrame) (*DataFrame, error) {
		return df.DropColumn(names...)
	})
}

// Collect runs the operations in order and returns the result. Every
// intermediate frame is released.
func (q *Query) Collect() (*DataFrame, error) {
	var result *DataFrame
	err := WithMemoryManager(func(m *MemoryManager) error {
		// WithColumn and Cast mutate their receiver
		current := q.source.wrap(q.source.df.Clone())
		for i, op := range q.operations {
			next, err := op.Apply(current)
			if err != nil {
				m.Track(current)
				return fmt.Errorf("query step %d %s: %w", i+1, op, err)
			}
			if next != current {
				m.Track(current)
			}
			current = next
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// String lists the pending operations
func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString("Query:\n")
	fmt.Fprintf(&sb, "  source: %s\n", strings.ReplaceAll(q.source.String(), "\n", "\n  "))
	sb.WriteString("  operations:\n")
	for i, op := range q.operations {
		fmt.Fprintf(&sb, "    %d. %s\n", i+1, op)
	}
	return sb.String()
}

func specList(specs []ColumnSpec) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}
