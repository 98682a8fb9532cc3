package seekwell

import (
	"fmt"
	"slices"
	"strings"

	"github.com/paveg/seekwell/internal/errors"
	sqlparse "github.com/paveg/seekwell/internal/sql"
)

// Execute runs a SELECT statement over the registered views:
//
//	SELECT [DISTINCT] items FROM view [[INNER|LEFT|RIGHT|FULL|CROSS] JOIN view USING (cols) | ON a.x = b.x]
//	  [WHERE predicate] [GROUP BY cols] [HAVING predicate]
//	  [ORDER BY col [ASC|DESC], ...] [LIMIT n [OFFSET m]]
//
// Items are columns, * or the aggregates count, sum, avg, min and max, each
// with an optional alias. Predicates follow the Where rules: clauses fold
// left to right and parentheses are not allowed. Without GROUP BY the rows
// keep their order unless ORDER BY is given.
func (r *Registry) Execute(statement string) (*DataFrame, error) {
	q, err := r.Plan(statement)
	if err != nil {
		return nil, err
	}
	return q.Collect()
}

// Plan translates statement into a Query without running it
func (r *Registry) Plan(statement string) (*Query, error) {
	stmt, err := sqlparse.Parse(statement)
	if err != nil {
		return nil, errors.NewInvalidInputError("Execute", err.Error())
	}

	q, err := r.Query(stmt.From)
	if err != nil {
		return nil, err
	}
	for _, j := range stmt.Joins {
		other, err := r.View(j.Table)
		if err != nil {
			return nil, err
		}
		q = q.Join(other, Cols(j.Using...), j.Type)
	}
	if stmt.Where != "" {
		q = q.Where(stmt.Where)
	}

	if stmt.Grouped() {
		op, err := newGroupOperation(stmt)
		if err != nil {
			return nil, err
		}
		q = q.Then(op)
	} else if stmt.Having != "" {
		return nil, errors.NewNotGroupedError("Having")
	}

	if len(stmt.OrderBy) > 0 {
		names := make([]string, len(stmt.OrderBy))
		ascending := make([]bool, len(stmt.OrderBy))
		for i, o := range stmt.OrderBy {
			names[i] = orderColumn(stmt, o.Column)
			ascending[i] = !o.Desc
		}
		q = q.OrderBy(Cols(names...), ascending...)
	}

	if !stmt.Grouped() && !stmt.Wildcard() {
		sources := make([]string, len(stmt.Items))
		for i, item := range stmt.Items {
			sources[i] = item.Column
		}
		q = q.Select(Cols(sources...))
		for _, item := range stmt.Items {
			if item.Alias != "" && item.Alias != item.Column {
				q = q.RenameColumn(item.Column, item.Alias)
			}
		}
	}

	if stmt.Distinct {
		q = q.Distinct()
	}
	if stmt.Offset > 0 {
		offset := stmt.Offset
		q = q.then(fmt.Sprintf("offset(%d)", offset), func(df *DataFrame) (*DataFrame, error) {
			return df.wrap(df.df.Slice(offset, df.Len())), nil
		})
	}
	if stmt.Limit >= 0 {
		q = q.Limit(stmt.Limit)
	}
	return q, nil
}

// orderColumn maps an ORDER BY key to the column holding it at sort time.
// Grouped output already carries aliases; plain selects rename after the
// sort, so aliases resolve back to their source.
func orderColumn(stmt *sqlparse.SelectStatement, key string) string {
	for _, item := range stmt.Items {
		if item.Alias == "" {
			continue
		}
		if stmt.Grouped() && item.Source() == key {
			return item.Alias
		}
		if !stmt.Grouped() && item.Alias == key {
			return item.Column
		}
	}
	return key
}

// groupOperation turns the rows left by WHERE into one row per group
type groupOperation struct {
	keys       []string
	having     string
	aggregates []string
	items      []sqlparse.SelectItem
}

func newGroupOperation(stmt *sqlparse.SelectStatement) (*groupOperation, error) {
	if len(stmt.GroupBy) == 0 {
		return nil, errors.NewInvalidInputError("Execute", "aggregates need a GROUP BY clause")
	}
	op := &groupOperation{keys: stmt.GroupBy, having: stmt.Having}
	if stmt.Wildcard() {
		return nil, errors.NewInvalidInputError("Execute", "SELECT * cannot be grouped, name the keys and aggregates")
	}
	for _, item := range stmt.Items {
		if item.Aggregate == "" && !slices.Contains(stmt.GroupBy, item.Column) {
			return nil, errors.NewInvalidInputError("Execute",
				fmt.Sprintf("column %q must appear in GROUP BY or inside an aggregate", item.Column))
		}
		if item.Aggregate != "" && !slices.Contains(op.aggregates, item.Aggregate) {
			op.aggregates = append(op.aggregates, item.Aggregate)
		}
	}
	op.items = stmt.Items
	return op, nil
}

func (g *groupOperation) Apply(df *DataFrame) (*DataFrame, error) {
	keys := Cols(g.keys...)
	grouped, err := df.GroupBy(keys)
	if err != nil {
		return nil, err
	}

	if g.having != "" {
		kept, err := grouped.Having(g.having)
		if err != nil {
			return nil, err
		}
		defer kept.Release()
		if grouped, err = kept.GroupBy(keys); err != nil {
			return nil, err
		}
	}

	out, err := grouped.Aggregate(g.aggregates...)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(g.items))
	for i, item := range g.items {
		names[i] = item.Source()
	}
	projected, err := out.Select(Cols(names...))
	out.Release()
	if err != nil {
		return nil, err
	}

	for _, item := range g.items {
		if item.Alias == "" || item.Alias == item.Source() {
			continue
		}
		renamed, err := projected.RenameColumn(item.Source(), item.Alias)
		projected.Release()
		if err != nil {
			return nil, err
		}
		projected = renamed
	}
	return projected, nil
}

func (g *groupOperation) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "group_by(%s)", strings.Join(g.keys, ", "))
	if g.having != "" {
		fmt.Fprintf(&sb, ".having(%s)", g.having)
	}
	items := make([]string, len(g.items))
	for i, item := range g.items {
		items[i] = item.String()
	}
	fmt.Fprintf(&sb, ".aggregate(%s)", strings.Join(items, ", "))
	return sb.String()
}
