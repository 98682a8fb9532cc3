package seekwell

import (
	"go.uber.org/zap"

	"github.com/paveg/seekwell/internal/condition"
	"github.com/paveg/seekwell/internal/dataframe"
	"github.com/paveg/seekwell/internal/errors"
	"github.com/paveg/seekwell/internal/logging"
)

// GroupedFrame is a frame partitioned by key columns. It reads the frame it
// was created from, which must outlive it.
type GroupedFrame struct {
	parent *DataFrame
	gb     *dataframe.GroupBy
}

// GroupBy partitions rows by equality of the key columns named by specs.
// Null keys group together; groups are ordered by first appearance.
func (d *DataFrame) GroupBy(specs ...ColumnSpec) (*GroupedFrame, error) {
	var g *GroupedFrame
	err := d.record("GroupBy", func() error {
		keys, err := keyColumns("GroupBy", specs)
		if err != nil {
			return err
		}
		gb, err := d.df.GroupBy(keys...)
		if err != nil {
			return err
		}
		g = &GroupedFrame{parent: d, gb: gb}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Keys returns the grouping columns
func (g *GroupedFrame) Keys() []string {
	return g.gb.Keys()
}

// NGroups returns the number of groups
func (g *GroupedFrame) NGroups() int {
	return g.gb.NGroups()
}

// Group returns the rows of group i
func (g *GroupedFrame) Group(i int) *DataFrame {
	return g.parent.wrap(g.gb.Frame(i))
}

// Aggregate returns one row per group: the key columns followed by one
// column per aggregate. Aggregates are written as count(*), count(col),
// sum(col), mean(col) or avg(col), min(col) and max(col); each output
// column is named by its text.
func (g *GroupedFrame) Aggregate(aggs ...string) (*DataFrame, error) {
	return g.parent.derive("Aggregate", func() (*dataframe.DataFrame, error) {
		parsed := make([]dataframe.Aggregation, len(aggs))
		for i, text := range aggs {
			a, ok := dataframe.ParseAggregation(text)
			if !ok {
				return nil, errors.NewInvalidInputError("Aggregate", "unknown aggregate "+text)
			}
			parsed[i] = a
		}
		return g.gb.Aggregate(parsed...)
	})
}

// Having keeps every row of the groups matching cond, in original row
// order. Clauses refer to key columns or aggregates:
//
//	count(*) > 1 and mean(mass) >= 3600
func (g *GroupedFrame) Having(cond string) (*DataFrame, error) {
	return g.parent.derive("Having", func() (*dataframe.DataFrame, error) {
		parsed := condition.Parse(cond)

		var aggs []dataframe.Aggregation
		for _, col := range parsed.Columns() {
			if a, ok := dataframe.ParseAggregation(col); ok {
				aggs = append(aggs, a)
			}
		}
		summary, err := g.gb.Aggregate(aggs...)
		if err != nil {
			return nil, err
		}
		defer summary.Release()

		keep, err := condition.Evaluate(summary, parsed, g.parent.conditionOptions("Having"))
		if err != nil {
			return nil, err
		}
		logging.L().Debug("having", zap.String("condition", parsed.String()),
			zap.Int("groups", len(keep)), zap.Int("kept", count(keep)))
		return g.gb.FilterGroups(keep)
	})
}

// HavingFunc keeps every row of the groups for which keep returns true.
// The group frame passed to keep is released afterwards.
func (g *GroupedFrame) HavingFunc(keep func(group *DataFrame) bool) (*DataFrame, error) {
	return g.parent.derive("Having", func() (*dataframe.DataFrame, error) {
		flags := make([]bool, g.gb.NGroups())
		for i := range flags {
			group := g.Group(i)
			flags[i] = keep(group)
			group.Release()
		}
		return g.gb.FilterGroups(flags)
	})
}

func count(mask []bool) int {
	n := 0
	for _, b := range mask {
		if b {
			n++
		}
	}
	return n
}
