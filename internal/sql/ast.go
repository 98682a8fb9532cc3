// Package sql parses the SELECT statements run by Registry.Execute.
//
// Predicates in WHERE and HAVING are rewritten into the condition syntax
// used by Where, so a parsed statement holds plain strings rather than an
// expression tree. Only what maps onto a frame operation is accepted:
//
//	SELECT [DISTINCT] items FROM view [joins]
//	  [WHERE predicate] [GROUP BY columns] [HAVING predicate]
//	  [ORDER BY column [ASC|DESC], ...] [LIMIT n [OFFSET m]]
package sql

import (
	"fmt"
	"strings"
)

// SelectItem is one entry of the SELECT list
type SelectItem struct {
	Column    string // column name, or "*" for every column
	Aggregate string // canonical aggregate such as "count(*)" or "avg(mass)"
	Alias     string
}

// Source returns the column or aggregate the item reads
func (s SelectItem) Source() string {
	if s.Aggregate != "" {
		return s.Aggregate
	}
	return s.Column
}

// Name returns the output column name
func (s SelectItem) Name() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Source()
}

func (s SelectItem) String() string {
	if s.Alias != "" {
		return s.Source() + " AS " + s.Alias
	}
	return s.Source()
}

// JoinClause joins another view on columns both sides share
type JoinClause struct {
	Table string
	Type  string // inner, left, right, outer or cross
	Using []string
}

func (j JoinClause) String() string {
	if j.Type == "cross" {
		return "CROSS JOIN " + j.Table
	}
	kind := strings.ToUpper(j.Type)
	if j.Type == "outer" {
		kind = "FULL OUTER"
	}
	return fmt.Sprintf("%s JOIN %s USING (%s)", kind, j.Table, strings.Join(j.Using, ", "))
}

// OrderItem is one ORDER BY key
type OrderItem struct {
	Column string
	Desc   bool
}

// SelectStatement is a parsed SELECT
type SelectStatement struct {
	Distinct bool
	Items    []SelectItem
	From     string
	Joins    []JoinClause
	Where    string // condition syntax
	GroupBy  []string
	Having   string // condition syntax
	OrderBy  []OrderItem
	Limit    int // -1 without LIMIT
	Offset   int
}

// Wildcard reports whether the statement selects every column
func (s *SelectStatement) Wildcard() bool {
	return len(s.Items) == 1 && s.Items[0].Column == "*"
}

// Aggregates returns the SELECT items that are aggregates
func (s *SelectStatement) Aggregates() []SelectItem {
	var out []SelectItem
	for _, item := range s.Items {
		if item.Aggregate != "" {
			out = append(out, item)
		}
	}
	return out
}

// Grouped reports whether the statement aggregates
func (s *SelectStatement) Grouped() bool {
	return len(s.GroupBy) > 0 || len(s.Aggregates()) > 0
}

// String renders the statement back as SQL, with predicates in condition
// syntax
func (s *SelectStatement) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	}
	items := make([]string, len(s.Items))
	for i, item := range s.Items {
		items[i] = item.String()
	}
	sb.WriteString(strings.Join(items, ", "))
	sb.WriteString(" FROM " + s.From)
	for _, j := range s.Joins {
		sb.WriteString(" " + j.String())
	}
	if s.Where != "" {
		sb.WriteString(" WHERE " + s.Where)
	}
	if len(s.GroupBy) > 0 {
		sb.WriteString(" GROUP BY " + strings.Join(s.GroupBy, ", "))
	}
	if s.Having != "" {
		sb.WriteString(" HAVING " + s.Having)
	}
	if len(s.OrderBy) > 0 {
		keys := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			keys[i] = o.Column
			if o.Desc {
				keys[i] += " DESC"
			}
		}
		sb.WriteString(" ORDER BY " + strings.Join(keys, ", "))
	}
	if s.Limit >= 0 {
		fmt.Fprintf(&sb, " LIMIT %d", s.Limit)
	}
	if s.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", s.Offset)
	}
	return sb.String()
}
