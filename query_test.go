package seekwell

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	df := penguins(t)

	q := df.Query().
		Where("mass > 3500").
		WithColumn("kg", "mass / 1000").
		Select(Col("species"), Col("kg")).
		OrderBy(Col("kg"), false).
		Limit(2)

	out, err := q.Collect()
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"species", "kg"}, out.Columns())
	assert.Equal(t, []any{"Gentoo", "Adelie"}, column(t, out, "species"))
	assert.Equal(t, []any{4.5, 3.8}, column(t, out, "kg"))

	assert.False(t, df.HasColumn("kg"), "source must not change")
	assert.Equal(t, 6, df.Len())

	plan := q.String()
	assert.Contains(t, plan, "1. where(mass > 3500)")
	assert.Contains(t, plan, "2. with_column(kg = mass / 1000)")
	assert.Contains(t, plan, "5. limit(2)")
}

func TestQueryIsImmutable(t *testing.T) {
	df := penguins(t)

	base := df.Query().Where("species == Adelie")
	narrowed := base.Limit(1)

	all, err := base.Collect()
	require.NoError(t, err)
	defer all.Release()
	one, err := narrowed.Collect()
	require.NoError(t, err)
	defer one.Release()

	assert.Equal(t, 3, all.Len())
	assert.Equal(t, 1, one.Len())
}

func TestQueryEmptyReturnsCopy(t *testing.T) {
	df := penguins(t)

	out, err := df.Query().Collect()
	require.NoError(t, err)
	defer out.Release()

	assert.NotSame(t, df, out)
	assert.Equal(t, df.Columns(), out.Columns())
}

func TestQueryErrorNamesStep(t *testing.T) {
	df := penguins(t)

	_, err := df.Query().Distinct().Where("wings > 1").Collect()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrColumnNotFound)
	assert.Contains(t, err.Error(), "query step 2 where(wings > 1)")
}

type renameOp struct{ from, to string }

func (r renameOp) Apply(df *DataFrame) (*DataFrame, error) { return df.RenameColumn(r.from, r.to) }
func (r renameOp) String() string                          { return "custom rename" }

func TestQueryThen(t *testing.T) {
	df := penguins(t)

	q := df.Query().Then(renameOp{"mass", "weight"}).GroupHaving(Col("species"), "count(weight) > 1")
	out, err := q.Collect()
	require.NoError(t, err)
	defer out.Release()

	assert.True(t, out.HasColumn("weight"))
	assert.Equal(t, []any{"Adelie", "Adelie", "Adelie"}, column(t, out, "species"))
	assert.Contains(t, q.String(), "1. custom rename")
}

func TestRegistry(t *testing.T) {
	df := penguins(t)
	emp := employees(t)

	r := NewRegistry()
	require.NoError(t, r.CreateView("penguins", df))
	require.NoError(t, r.CreateView("employees", emp))
	assert.Equal(t, []string{"employees", "penguins"}, r.Names())

	got, err := r.View("penguins")
	require.NoError(t, err)
	assert.Same(t, df, got)

	require.NoError(t, r.CreateView("penguins", emp))
	got, err = r.View("penguins")
	require.NoError(t, err)
	assert.Same(t, emp, got)

	q, err := r.Query("employees")
	require.NoError(t, err)
	out, err := q.Where("age >= 30").Collect()
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []any{"Bob", "Charlie"}, column(t, out, "name"))

	assert.True(t, r.DropView("penguins"))
	assert.False(t, r.DropView("penguins"))
	_, err = r.View("penguins")
	assert.Error(t, err)
	_, err = r.Query("penguins")
	assert.Error(t, err)

	assert.Error(t, r.CreateView("", df))
	assert.Error(t, r.CreateView("nothing", nil))
}

type countingResource struct {
	mu       *sync.Mutex
	released *int
}

func (c countingResource) Release() {
	c.mu.Lock()
	*c.released++
	c.mu.Unlock()
}

func TestMemoryManager(t *testing.T) {
	t.Run("releases everything once", func(t *testing.T) {
		var mu sync.Mutex
		released := 0
		m := NewMemoryManager()
		m.Track(countingResource{&mu, &released})
		m.Track(countingResource{&mu, &released})
		m.Track(nil)
		assert.Equal(t, 2, m.Count())

		m.ReleaseAll()
		m.ReleaseAll()
		assert.Equal(t, 2, released)
		assert.Equal(t, 0, m.Count())
	})

	t.Run("concurrent tracking", func(t *testing.T) {
		var mu sync.Mutex
		released := 0
		m := NewMemoryManager()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 5; j++ {
					m.Track(countingResource{&mu, &released})
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, m.Count())
		m.ReleaseAll()
		assert.Equal(t, 50, released)
	})

	t.Run("with memory manager releases frames", func(t *testing.T) {
		df := penguins(t)
		var kept *DataFrame
		err := WithMemoryManager(func(m *MemoryManager) error {
			adelie, err := df.Where("species == Adelie")
			if err != nil {
				return err
			}
			m.Track(adelie)
			kept = adelie.Limit(1)
			return nil
		})
		require.NoError(t, err)
		defer kept.Release()
		assert.Equal(t, []any{"Adelie"}, column(t, kept, "species"))
	})
}
