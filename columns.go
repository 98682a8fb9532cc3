package seekwell

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/paveg/seekwell/internal/errors"
	"github.com/paveg/seekwell/internal/logging"
)

type specKind int

const (
	specColumn specKind = iota
	specColumns
	specExclude
)

// ColumnSpec names columns for Select, GroupBy, OrderBy and Join. Build one
// with Col, Cols, Exclude or ParseSpec.
type ColumnSpec struct {
	kind  specKind
	names []string
}

// Col selects a single column
func Col(name string) ColumnSpec {
	return ColumnSpec{kind: specColumn, names: []string{name}}
}

// Cols selects several columns in order
func Cols(names ...string) ColumnSpec {
	return ColumnSpec{kind: specColumns, names: append([]string(nil), names...)}
}

// Exclude removes a column; only Select accepts it
func Exclude(name string) ColumnSpec {
	return ColumnSpec{kind: specExclude, names: []string{name}}
}

// ParseSpec reads a plain column name. A leading "-" means Exclude.
func ParseSpec(s string) ColumnSpec {
	if name, ok := strings.CutPrefix(s, "-"); ok && name != "" {
		return Exclude(name)
	}
	return Col(s)
}

// ParseSpecs applies ParseSpec to every name
func ParseSpecs(names ...string) []ColumnSpec {
	specs := make([]ColumnSpec, len(names))
	for i, name := range names {
		specs[i] = ParseSpec(name)
	}
	return specs
}

// Names returns the columns the spec mentions
func (s ColumnSpec) Names() []string {
	return append([]string(nil), s.names...)
}

// IsExclude reports whether the spec removes its column
func (s ColumnSpec) IsExclude() bool {
	return s.kind == specExclude
}

func (s ColumnSpec) String() string {
	switch {
	case s.kind == specExclude:
		return "-" + s.names[0]
	case s.kind == specColumn && len(s.names) == 1:
		return s.names[0]
	default:
		return "[" + strings.Join(s.names, ", ") + "]"
	}
}

// flatten splits specs into included names in first-mention order and
// excluded names
func flatten(specs []ColumnSpec) (include, exclude []string) {
	seen := make(map[string]bool)
	for _, s := range specs {
		if s.kind == specExclude {
			exclude = append(exclude, s.names[0])
			continue
		}
		for _, name := range s.names {
			if !seen[name] {
				seen[name] = true
				include = append(include, name)
			}
		}
	}
	return include, exclude
}

// keyColumns flattens specs that may not contain exclusions
func keyColumns(op string, specs []ColumnSpec) ([]string, error) {
	include, exclude := flatten(specs)
	if len(exclude) > 0 {
		return nil, errors.NewInvalidInputError(op,
			fmt.Sprintf("exclusion %q is only valid in Select", "-"+exclude[0]))
	}
	return include, nil
}

// resolveSelection returns the output columns of Select: the inclusions
// minus the exclusions, or every column minus the exclusions when nothing
// is included
func resolveSelection(columns []string, specs []ColumnSpec) []string {
	include, exclude := flatten(specs)

	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
		if slices.Contains(columns, "-"+name) {
			logging.L().Warn("ambiguous column spec, treating it as an exclusion",
				zap.String("spec", "-"+name), zap.String("excluded", name))
		}
	}

	base := include
	if len(base) == 0 {
		base = columns
	}
	out := make([]string, 0, len(base))
	for _, name := range base {
		if !excluded[name] {
			out = append(out, name)
		}
	}
	return out
}
