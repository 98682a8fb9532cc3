package seekwell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/paveg/seekwell/internal/testutil"
)

func penguins(t *testing.T) *DataFrame {
	t.Helper()
	df := &DataFrame{df: testutil.Penguins(t)}
	t.Cleanup(df.Release)
	return df
}

func employees(t *testing.T) *DataFrame {
	t.Helper()
	df := &DataFrame{df: testutil.Employees(t)}
	t.Cleanup(df.Release)
	return df
}

func column(t *testing.T, df *DataFrame, name string) []any {
	t.Helper()
	return testutil.Column(t, df.df, name)
}

func TestSelect(t *testing.T) {
	df := penguins(t)

	tests := []struct {
		name  string
		specs []ColumnSpec
		want  []string
	}{
		{"inclusions keep mention order", []ColumnSpec{Col("mass"), Col("species")}, []string{"mass", "species"}},
		{"only exclusions keep frame order", ParseSpecs("-island", "-male"), []string{"species", "bill_length", "mass"}},
		{"inclusions minus exclusions", []ColumnSpec{Cols("species", "mass"), Exclude("mass")}, []string{"species"}},
		{"repeated names collapse", []ColumnSpec{Col("species"), Cols("species", "male")}, []string{"species", "male"}},
		{"no specs keeps everything", nil, []string{"species", "island", "bill_length", "mass", "male"}},
		{"unknown exclusion is ignored", []ColumnSpec{Exclude("wings")}, []string{"species", "island", "bill_length", "mass", "male"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := df.Select(tt.specs...)
			require.NoError(t, err)
			defer out.Release()
			assert.Equal(t, tt.want, out.Columns())
			assert.Equal(t, df.Len(), out.Len())
		})
	}

	t.Run("unknown inclusion fails", func(t *testing.T) {
		_, err := df.Select(Col("wings"))
		assert.ErrorIs(t, err, ErrColumnNotFound)
	})
}

func TestSelectAmbiguousExclusionWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	df, err := NewDataFrame(
		NewSeries("foo", []int64{1, 2}, nil),
		NewSeries("-foo", []int64{3, 4}, nil),
		NewSeries("bar", []int64{5, 6}, nil),
	)
	require.NoError(t, err)
	defer df.Release()

	out, err := df.Select(ParseSpec("-foo"))
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"-foo", "bar"}, out.Columns())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "-foo", logs.All()[0].ContextMap()["spec"])
}

func TestWhere(t *testing.T) {
	df := penguins(t)

	tests := []struct {
		cond string
		mass []any
	}{
		{"species == Adelie", []any{int64(3750), int64(3800), int64(3250)}},
		{"mass > 3600 or species == Chinstrap", []any{int64(3750), int64(3800), int64(4500), int64(3500)}},
		{"species in Adelie, Gentoo and island != Biscoe", []any{int64(3750), int64(3250)}},
		{"mass != 3750", []any{int64(3800), int64(4500), int64(3500), int64(3250)}},
		{"mass not in 3750, 3800", []any{int64(4500), int64(3500), int64(3250)}},
		{"male == true and bill_length < 40", []any{int64(3750)}},
		{"species == 'Gentoo'", []any{int64(4500), nil}},
		{"mass > heavy", []any{}},
		{"   ", []any{int64(3750), int64(3800), int64(4500), int64(3500), nil, int64(3250)}},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			out, err := df.Where(tt.cond)
			require.NoError(t, err)
			defer out.Release()
			assert.Equal(t, tt.mass, column(t, out, "mass"))
			assert.Equal(t, df.Columns(), out.Columns())
		})
	}
}

func TestWhereAllEvaluatesConditionsSeparately(t *testing.T) {
	df := penguins(t)

	out, err := df.WhereAll("species == Adelie", "mass > 3760 or island == Dream")
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []any{int64(3800), int64(3250)}, column(t, out, "mass"))
}

func TestWhereErrors(t *testing.T) {
	df := penguins(t)

	_, err := df.Where("wings > 2")
	assert.ErrorIs(t, err, ErrColumnNotFound)
	var dfErr *DataFrameError
	require.ErrorAs(t, err, &dfErr)
	assert.Equal(t, "Where", dfErr.Op)

	cfg := DefaultConfig()
	cfg.StrictLiterals = true
	strict, err := df.WithConfig(cfg)
	require.NoError(t, err)
	defer strict.Release()

	_, err = strict.Where("mass > heavy")
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	df := penguins(t)

	mask, err := df.Mask("mass >= 3750")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, false, false, false}, mask)
}

func TestGroupBy(t *testing.T) {
	df := penguins(t)

	g, err := df.GroupBy(Col("species"))
	require.NoError(t, err)
	assert.Equal(t, 3, g.NGroups())
	assert.Equal(t, []string{"species"}, g.Keys())

	group := g.Group(1)
	defer group.Release()
	assert.Equal(t, []any{"Gentoo", "Gentoo"}, column(t, group, "species"))

	summary, err := g.Aggregate("count(*)", "avg(mass)", "max(bill_length)")
	require.NoError(t, err)
	defer summary.Release()
	assert.Equal(t, []string{"species", "count(*)", "avg(mass)", "max(bill_length)"}, summary.Columns())
	assert.Equal(t, []any{int64(3), int64(2), int64(1)}, column(t, summary, "count(*)"))
	assert.Equal(t, []any{3600.0, 4500.0, 3500.0}, column(t, summary, "avg(mass)"))
	assert.Equal(t, []any{39.5, 50.0, nil}, column(t, summary, "max(bill_length)"))

	_, err = g.Aggregate("median(mass)")
	assert.Error(t, err)

	_, err = df.GroupBy(Exclude("species"))
	assert.Error(t, err)
	_, err = df.GroupBy(Col("wings"))
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestHaving(t *testing.T) {
	df := penguins(t)
	g, err := df.GroupBy(Col("species"))
	require.NoError(t, err)

	tests := []struct {
		cond    string
		species []any
	}{
		{"count(*) > 1", []any{"Adelie", "Adelie", "Gentoo", "Gentoo", "Adelie"}},
		{"mean(mass) > 3600", []any{"Gentoo", "Gentoo"}},
		{"count(*) > 1 and species != Gentoo", []any{"Adelie", "Adelie", "Adelie"}},
		{"species == Chinstrap", []any{"Chinstrap"}},
		{"COUNT(mass) == 1", []any{"Gentoo", "Chinstrap", "Gentoo"}},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			out, err := g.Having(tt.cond)
			require.NoError(t, err)
			defer out.Release()
			assert.Equal(t, tt.species, column(t, out, "species"))
		})
	}

	t.Run("unknown aggregate column", func(t *testing.T) {
		_, err := g.Having("sum(wings) > 1")
		assert.ErrorIs(t, err, ErrColumnNotFound)
	})

	t.Run("non-key column", func(t *testing.T) {
		_, err := g.Having("island == Dream")
		var dfErr *DataFrameError
		require.ErrorAs(t, err, &dfErr)
		assert.Equal(t, "Having", dfErr.Op)
	})
}

func TestHavingFunc(t *testing.T) {
	df := penguins(t)
	g, err := df.GroupBy(Col("species"))
	require.NoError(t, err)

	out, err := g.HavingFunc(func(group *DataFrame) bool { return group.Len() == 1 })
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []any{"Chinstrap"}, column(t, out, "species"))
}

func TestHavingRequiresGroupBy(t *testing.T) {
	df := penguins(t)
	_, err := df.Having("count(*) > 1")
	assert.ErrorIs(t, err, ErrNotGrouped)
}

func TestGroupHaving(t *testing.T) {
	df := penguins(t)

	out, err := df.GroupHaving(Col("island"), "max(mass) >= 4500")
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []any{"Adelie", "Gentoo", "Gentoo"}, column(t, out, "species"))
	assert.Equal(t, []any{"Biscoe", "Biscoe", "Biscoe"}, column(t, out, "island"))
}

func TestOrderBy(t *testing.T) {
	df := penguins(t)

	tests := []struct {
		name      string
		spec      ColumnSpec
		ascending []bool
		mass      []any
	}{
		{"descending puts nulls last", Col("mass"), []bool{false},
			[]any{int64(4500), int64(3800), int64(3750), int64(3500), int64(3250), nil}},
		{"all ascending by default", Cols("species", "mass"), nil,
			[]any{int64(3250), int64(3750), int64(3800), int64(3500), int64(4500), nil}},
		{"one flag per column", Cols("species", "mass"), []bool{true, false},
			[]any{int64(3800), int64(3750), int64(3250), int64(3500), int64(4500), nil}},
		{"repeated column keeps its flags", Cols("mass", "species", "mass"), []bool{true, false, false},
			[]any{int64(3250), int64(3500), int64(3750), int64(3800), int64(4500), nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := df.OrderBy(tt.spec, tt.ascending...)
			require.NoError(t, err)
			defer out.Release()
			assert.Equal(t, tt.mass, column(t, out, "mass"))
		})
	}

	_, err := df.OrderBy(Cols("species", "mass"), true, false, true)
	assert.Error(t, err)
	_, err = df.OrderBy(Exclude("mass"))
	assert.Error(t, err)
}

func TestLimit(t *testing.T) {
	df := penguins(t)

	for n, want := range map[int]int{2: 2, 6: 6, 100: 6, 0: 0, -3: 0} {
		out := df.Limit(n)
		assert.Equal(t, want, out.Len(), "limit %d", n)
		assert.Equal(t, df.Columns(), out.Columns())
		out.Release()
	}
}

func TestJoin(t *testing.T) {
	df := penguins(t)
	islands, err := NewDataFrame(
		NewSeries("island", []string{"Biscoe", "Dream", "Anvers"}, nil),
		NewSeries("region", []int64{1, 2, 3}, nil),
	)
	require.NoError(t, err)
	defer islands.Release()

	tests := []struct {
		how    string
		rows   int
		region []any
	}{
		{"inner", 5, []any{int64(1), int64(1), int64(2), int64(1), int64(2)}},
		{"left", 6, []any{nil, int64(1), int64(1), int64(2), int64(1), int64(2)}},
		{"right", 6, []any{int64(1), int64(1), int64(1), int64(2), int64(2), int64(3)}},
		{"outer", 7, []any{nil, int64(1), int64(1), int64(2), int64(1), int64(2), int64(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.how, func(t *testing.T) {
			out, err := df.Join(islands, Col("island"), tt.how)
			require.NoError(t, err)
			defer out.Release()
			assert.Equal(t, tt.rows, out.Len())
			assert.Equal(t, tt.region, column(t, out, "region"))
			assert.Equal(t, []string{"species", "island", "bill_length", "mass", "male", "region"}, out.Columns())
		})
	}

	t.Run("cross", func(t *testing.T) {
		out, err := df.Join(islands, Cols(), "cross")
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, 18, out.Len())
		assert.Contains(t, out.Columns(), "island_x")
		assert.Contains(t, out.Columns(), "island_y")
	})

	t.Run("configured suffixes", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LeftSuffix, cfg.RightSuffix = "_left", "_right"
		configured, err := df.WithConfig(cfg)
		require.NoError(t, err)
		defer configured.Release()

		masses, err := df.Select(Col("species"), Col("mass"))
		require.NoError(t, err)
		defer masses.Release()
		top := masses.Limit(1)
		defer top.Release()

		out, err := configured.Join(top, Col("species"), "inner")
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, []string{"species", "island", "bill_length", "mass_left", "male", "mass_right"}, out.Columns())
		assert.Equal(t, []any{int64(3750), int64(3750), int64(3750)}, column(t, out, "mass_right"))
	})

	t.Run("bad join type", func(t *testing.T) {
		_, err := df.Join(islands, Col("island"), "sideways")
		assert.Error(t, err)
	})
}

func TestSetOperations(t *testing.T) {
	df := penguins(t)
	adelie, err := df.Where("species == Adelie")
	require.NoError(t, err)
	defer adelie.Release()

	union, err := df.Union(adelie)
	require.NoError(t, err)
	defer union.Release()
	assert.Equal(t, 9, union.Len())

	distinct := union.Distinct()
	defer distinct.Release()
	assert.Equal(t, column(t, df, "mass"), column(t, distinct, "mass"))

	intersect, err := df.Intersect(adelie)
	require.NoError(t, err)
	defer intersect.Release()
	assert.Equal(t, []any{"Adelie", "Adelie", "Adelie"}, column(t, intersect, "species"))

	difference := df.Difference(adelie)
	defer difference.Release()
	assert.Equal(t, []any{"Gentoo", "Chinstrap", "Gentoo"}, column(t, difference, "species"))

	narrow, err := adelie.Select(Col("species"))
	require.NoError(t, err)
	defer narrow.Release()
	_, err = df.Union(narrow)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	other, err := NewDataFrame(NewSeries("x", []int64{1}, nil))
	require.NoError(t, err)
	defer other.Release()
	_, err = df.Intersect(other)
	assert.Error(t, err)
}

func TestWithColumn(t *testing.T) {
	t.Run("adds a column in place", func(t *testing.T) {
		df := penguins(t)
		out, err := df.WithColumn("kg", "mass / 1000")
		require.NoError(t, err)
		assert.Same(t, df, out)
		assert.Equal(t, []any{3.75, 3.8, 4.5, 3.5, nil, 3.25}, column(t, df, "kg"))
		assert.Equal(t, "kg", df.Columns()[5])
	})

	t.Run("replaces keeping position", func(t *testing.T) {
		df := penguins(t)
		_, err := df.WithColumn("mass", "coalesce(mass, 0) + 1")
		require.NoError(t, err)
		assert.Equal(t, "mass", df.Columns()[3])
		assert.Equal(t, []any{int64(3751), int64(3801), int64(4501), int64(3501), int64(1), int64(3251)}, column(t, df, "mass"))
	})

	t.Run("timestamp literals use configured layouts", func(t *testing.T) {
		df := employees(t)
		_, err := df.WithColumn("recent", "hired >= '2020-01-01'")
		require.NoError(t, err)
		assert.Equal(t, []any{false, true, false, true}, column(t, df, "recent"))
	})

	t.Run("errors", func(t *testing.T) {
		df := penguins(t)
		_, err := df.WithColumn("x", "mass +")
		assert.Error(t, err)
		_, err = df.WithColumn("x", "wings * 2")
		assert.ErrorIs(t, err, ErrColumnNotFound)
		_, err = df.WithColumn("x", "species * 2")
		assert.Error(t, err)
		assert.False(t, df.HasColumn("x"))
	})
}

func TestCast(t *testing.T) {
	df := penguins(t)

	out, err := df.Cast("mass", "str")
	require.NoError(t, err)
	assert.Same(t, df, out)
	typ, _ := df.TypeOf("mass")
	assert.Equal(t, "utf8", typ)
	assert.Equal(t, []any{"3750", "3800", "4500", "3500", nil, "3250"}, column(t, df, "mass"))

	_, err = df.Cast("mass", "decimal")
	assert.Error(t, err)

	_, err = df.Cast("species", "int")
	assert.Error(t, err)
	typ, _ = df.TypeOf("species")
	assert.Equal(t, "utf8", typ)
}

func TestRenameAndDropColumn(t *testing.T) {
	df := penguins(t)

	renamed, err := df.RenameColumn("mass", "weight")
	require.NoError(t, err)
	defer renamed.Release()
	assert.Equal(t, []string{"species", "island", "bill_length", "weight", "male"}, renamed.Columns())
	assert.True(t, df.HasColumn("mass"))

	dropped, err := df.DropColumn("island", "male")
	require.NoError(t, err)
	defer dropped.Release()
	assert.Equal(t, []string{"species", "bill_length", "mass"}, dropped.Columns())

	_, err = df.DropColumn("wings")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestUnpivot(t *testing.T) {
	df := penguins(t)

	out, err := df.Unpivot([]string{"species"}, []string{"bill_length", "mass"}, "measure", "v")
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"species", "measure", "v"}, out.Columns())
	assert.Equal(t, 12, out.Len())
	assert.Equal(t, []any{
		39.1, 39.5, 46.1, nil, 50.0, 37.8,
		3750.0, 3800.0, 4500.0, 3500.0, nil, 3250.0,
	}, column(t, out, "v"))
	assert.Equal(t, "bill_length", column(t, out, "measure")[0])
	assert.Equal(t, "mass", column(t, out, "measure")[6])

	_, err = df.Unpivot([]string{"wings"}, nil, "", "")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestMetrics(t *testing.T) {
	ResetMetrics()
	defer ResetMetrics()

	cfg := DefaultConfig()
	cfg.MetricsCollection = true
	df, err := penguins(t).WithConfig(cfg)
	require.NoError(t, err)
	defer df.Release()

	out, err := df.Where("mass > 3600")
	require.NoError(t, err)
	defer out.Release()
	_, err = out.Where("wings > 1")
	require.Error(t, err)

	recorded := Metrics()
	require.Len(t, recorded, 2)
	assert.Equal(t, "Where", recorded[0].Operation)
	assert.Equal(t, 6, recorded[0].RowsIn)
	assert.Equal(t, 3, recorded[0].RowsOut)
	assert.False(t, recorded[0].Failed())
	assert.True(t, recorded[1].Failed())
	assert.Contains(t, recorded[1].Error, "wings")
	assert.NotEmpty(t, recorded[0].ID)

	summary := MetricsReport()
	assert.Equal(t, 2, summary.Operations)
	assert.Equal(t, 1, summary.Failures)
	assert.Equal(t, 2, summary.ByOperation["Where"].Calls)
	assert.InDelta(t, 0.5, summary.ByOperation["Where"].Selectivity(), 1e-9)
}

func TestWithConfigValidates(t *testing.T) {
	df := penguins(t)
	cfg := DefaultConfig()
	cfg.LeftSuffix, cfg.RightSuffix = "_same", "_same"
	_, err := df.WithConfig(cfg)
	assert.Error(t, err)
}

func TestWhereAllLargeFrame(t *testing.T) {
	n := 2500
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i)
	}
	df, err := NewDataFrame(NewSeries("id", ids, nil))
	require.NoError(t, err)
	defer df.Release()

	out, err := df.WhereAll("id >= 500", "id < 510", "id != 505")
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []any{int64(500), int64(501), int64(502), int64(503), int64(504),
		int64(506), int64(507), int64(508), int64(509)}, column(t, out, "id"))

	_, err = df.WhereAll("id > 1", "missing > 1")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}
