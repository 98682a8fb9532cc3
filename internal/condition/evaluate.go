package condition

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/paveg/seekwell/internal/config"
	"github.com/paveg/seekwell/internal/dataframe"
	"github.com/paveg/seekwell/internal/errors"
	"github.com/paveg/seekwell/internal/logging"
	"github.com/paveg/seekwell/internal/series"
)

// Options controls literal coercion during evaluation
type Options struct {
	Op          string   // operation name used in errors, "Where" when empty
	Strict      bool     // unparsable literals fail instead of matching nothing
	DateLayouts []string // layouts for timestamp literals, config defaults when empty
}

func (o Options) withDefaults() Options {
	if o.Op == "" {
		o.Op = "Where"
	}
	if len(o.DateLayouts) == 0 {
		o.DateLayouts = config.DefaultDateLayouts
	}
	return o
}

// Evaluate returns the row mask selected by cond. An empty condition selects
// every row. Null cells never satisfy a clause.
func Evaluate(df *dataframe.DataFrame, cond *Condition, opts Options) ([]bool, error) {
	opts = opts.withDefaults()
	n := df.Len()
	if cond.Empty() {
		return filled(n, true), nil
	}

	result, err := evaluateClause(df, cond.Clauses[0], opts)
	if err != nil {
		return nil, err
	}
	for i, conn := range cond.Connectives {
		next, err := evaluateClause(df, cond.Clauses[i+1], opts)
		if err != nil {
			return nil, err
		}
		for row := range result {
			if conn == Or {
				result[row] = result[row] || next[row]
			} else {
				result[row] = result[row] && next[row]
			}
		}
	}
	return result, nil
}

// EvaluateString parses text and evaluates it against df
func EvaluateString(df *dataframe.DataFrame, text string, opts Options) ([]bool, error) {
	return Evaluate(df, Parse(text), opts)
}

func evaluateClause(df *dataframe.DataFrame, cl Clause, opts Options) ([]bool, error) {
	n := df.Len()
	if cl.Kind == Opaque {
		logging.L().Warn("clause has no comparison operator, matching every row",
			zap.String("op", opts.Op), zap.String("clause", cl.Raw))
		return filled(n, true), nil
	}

	col, ok := df.Column(cl.Column)
	if !ok {
		return nil, errors.NewColumnNotFoundError(opts.Op, cl.Column)
	}
	arr := col.Array()
	defer arr.Release()

	if cl.Kind == Membership {
		return evaluateMembership(arr, cl, opts)
	}

	lit, err := coerce(cl.Literal, arr.DataType(), opts.DateLayouts)
	if err != nil {
		if opts.Strict {
			return nil, errors.NewParseError(opts.Op, cl.Column, err)
		}
		logging.L().Debug("literal does not match column type, clause selects no rows",
			zap.String("column", cl.Column), zap.String("literal", cl.Literal), zap.Error(err))
		return filled(n, false), nil
	}

	mask := make([]bool, n)
	for i := range mask {
		c, ok := compareCell(arr, i, lit)
		mask[i] = ok && holds(cl.Op, c)
	}
	return mask, nil
}

func evaluateMembership(arr arrow.Array, cl Clause, opts Options) ([]bool, error) {
	values := make([]any, 0, len(cl.Values))
	for _, raw := range cl.Values {
		v, err := coerce(raw, arr.DataType(), opts.DateLayouts)
		if err != nil {
			if opts.Strict {
				return nil, errors.NewParseError(opts.Op, cl.Column, err)
			}
			continue
		}
		values = append(values, v)
	}

	mask := make([]bool, arr.Len())
	for i := range mask {
		if missing(arr, i) {
			continue
		}
		found := false
		for _, v := range values {
			if c, ok := compareCell(arr, i, v); ok && c == 0 {
				found = true
				break
			}
		}
		mask[i] = found != cl.Negate
	}
	return mask, nil
}

// coerce types a literal by the column it is compared with. Integer columns
// accept fractional literals, which are then compared as floats.
func coerce(raw string, dt arrow.DataType, layouts []string) (any, error) {
	text, _ := Unquote(raw)
	switch {
	case series.IsInteger(dt):
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			return v, nil
		}
		return parseNumber(text)
	case series.IsFloating(dt):
		return parseNumber(text)
	case dt.ID() == arrow.BOOL:
		return strconv.ParseBool(text)
	case dt.ID() == arrow.TIMESTAMP:
		return dataframe.ParseTime(text, layouts)
	case dt.ID() == arrow.STRING:
		return text, nil
	}
	return nil, fmt.Errorf("cannot compare %s column with %q", dt, raw)
}

// parseNumber parses a float literal. NaN compares with nothing, so it is
// rejected like any other unusable literal.
func parseNumber(text string) (any, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) {
		return nil, fmt.Errorf("%q is not a comparable number", text)
	}
	return f, nil
}

// compareCell compares row i with a coerced literal. ok is false for null
// or NaN cells.
func compareCell(arr arrow.Array, i int, lit any) (int, bool) {
	if missing(arr, i) {
		return 0, false
	}
	cell := series.ValueAt(arr, i)

	switch l := lit.(type) {
	case int64:
		switch c := cell.(type) {
		case int64:
			return cmp.Compare(c, l), true
		case int32:
			return cmp.Compare(int64(c), l), true
		}
	case float64:
		if f, ok := series.ToFloat64(cell); ok {
			return cmp.Compare(f, l), true
		}
	case string:
		if s, ok := cell.(string); ok {
			return strings.Compare(s, l), true
		}
	case bool:
		if b, ok := cell.(bool); ok {
			return cmp.Compare(boolRank(b), boolRank(l)), true
		}
	case time.Time:
		if t, ok := cell.(time.Time); ok {
			return t.Compare(l), true
		}
	}
	return 0, false
}

func missing(arr arrow.Array, i int) bool {
	if arr.IsNull(i) {
		return true
	}
	switch f := series.ValueAt(arr, i).(type) {
	case float64:
		return math.IsNaN(f)
	case float32:
		return math.IsNaN(float64(f))
	}
	return false
}

func holds(op string, c int) bool {
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case ">=":
		return c >= 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case "<":
		return c < 0
	}
	return false
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func filled(n int, v bool) []bool {
	mask := make([]bool, n)
	if v {
		for i := range mask {
			mask[i] = true
		}
	}
	return mask
}
