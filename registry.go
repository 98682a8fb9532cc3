package seekwell

import (
	"fmt"
	"sort"

	"github.com/paveg/seekwell/internal/errors"
)

// Registry maps view names to frames. It does not own the frames: releasing
// them stays with the caller.
type Registry struct {
	views map[string]*DataFrame
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{views: make(map[string]*DataFrame)}
}

// CreateView registers df under name, replacing any previous view
func (r *Registry) CreateView(name string, df *DataFrame) error {
	if name == "" {
		return errors.NewInvalidInputError("CreateView", "view name must not be empty")
	}
	if df == nil {
		return errors.NewInvalidInputError("CreateView", fmt.Sprintf("view %q has no frame", name))
	}
	r.views[name] = df
	return nil
}

// View returns the frame registered under name
func (r *Registry) View(name string) (*DataFrame, error) {
	df, ok := r.views[name]
	if !ok {
		return nil, errors.NewInvalidInputError("View", fmt.Sprintf("view %q does not exist", name))
	}
	return df, nil
}

// DropView removes a view and reports whether it existed
func (r *Registry) DropView(name string) bool {
	_, ok := r.views[name]
	delete(r.views, name)
	return ok
}

// Names returns the registered view names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.views))
	for name := range r.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Query starts a query over the named view
func (r *Registry) Query(name string) (*Query, error) {
	df, err := r.View(name)
	if err != nil {
		return nil, err
	}
	return df.Query(), nil
}
