package expr

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/seekwell/internal/series"
)

// kind is the static result type of an expression
type kind int

const (
	kindNull kind = iota
	kindInt
	kindFloat
	kindString
	kindBool
	kindTime
)

func (k kind) String() string {
	return [...]string{"null", "int", "float", "string", "bool", "timestamp"}[k]
}

func (k kind) numeric() bool {
	return k == kindInt || k == kindFloat
}

func (k kind) dataType() arrow.DataType {
	switch k {
	case kindInt:
		return arrow.PrimitiveTypes.Int64
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	case kindTime:
		return series.TimestampType
	default:
		return arrow.BinaryTypes.String
	}
}

func kindOf(dt arrow.DataType) (kind, error) {
	switch {
	case series.IsInteger(dt):
		return kindInt, nil
	case series.IsFloating(dt):
		return kindFloat, nil
	case dt.ID() == arrow.STRING:
		return kindString, nil
	case dt.ID() == arrow.BOOL:
		return kindBool, nil
	case dt.ID() == arrow.TIMESTAMP:
		return kindTime, nil
	case dt.ID() == arrow.NULL:
		return kindNull, nil
	}
	return kindNull, fmt.Errorf("unsupported column type %s", dt)
}

// TimeParser converts text to a timestamp. Comparisons between a timestamp
// and a string literal parse the literal with it.
type TimeParser func(string) (time.Time, error)

// Evaluator evaluates expressions against Arrow arrays
type Evaluator struct {
	mem       memory.Allocator
	parseTime TimeParser
}

// NewEvaluator creates a new expression evaluator
func NewEvaluator(mem memory.Allocator) *Evaluator {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Evaluator{mem: mem, parseTime: func(s string) (time.Time, error) {
		return time.Parse(time.DateOnly, s)
	}}
}

// WithTimeParser sets the parser used for timestamp literals
func (e *Evaluator) WithTimeParser(parse TimeParser) *Evaluator {
	e.parseTime = parse
	return e
}

// Evaluate computes expr for n rows. Integer arithmetic yields int64 except
// division, which yields float64; nulls propagate through arithmetic and
// comparisons. A bare column reference returns the column unchanged.
func (e *Evaluator) Evaluate(expr Expr, columns map[string]arrow.Array, n int) (arrow.Array, error) {
	if c, ok := expr.(*ColumnExpr); ok {
		arr, exists := columns[c.name]
		if !exists {
			return nil, fmt.Errorf("column not found: %s", c.name)
		}
		arr.Retain()
		return arr, nil
	}

	c := &compiler{columns: columns, parseTime: e.parseTime}
	fn, k, err := c.compile(expr)
	if err != nil {
		return nil, err
	}

	builder := array.NewBuilder(e.mem, k.dataType())
	defer builder.Release()
	builder.Reserve(n)
	for i := 0; i < n; i++ {
		v, err := fn(i)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if err := series.AppendValue(builder, v); err != nil {
			return nil, err
		}
	}
	return builder.NewArray(), nil
}

// rowFunc produces the value of an expression at one row: int64, float64,
// string, bool, time.Time or nil
type rowFunc func(i int) (any, error)

type compiler struct {
	columns   map[string]arrow.Array
	parseTime TimeParser
}

func (c *compiler) compile(expr Expr) (rowFunc, kind, error) {
	switch x := expr.(type) {
	case *ColumnExpr:
		return c.compileColumn(x)
	case *LiteralExpr:
		return compileLiteral(x.value)
	case *UnaryExpr:
		return c.compileUnary(x)
	case *BinaryExpr:
		return c.compileBinary(x)
	case *FunctionExpr:
		return c.compileFunction(x)
	}
	return nil, kindNull, fmt.Errorf("unsupported expression %s", expr)
}

func (c *compiler) compileColumn(x *ColumnExpr) (rowFunc, kind, error) {
	arr, exists := c.columns[x.name]
	if !exists {
		return nil, kindNull, fmt.Errorf("column not found: %s", x.name)
	}
	k, err := kindOf(arr.DataType())
	if err != nil {
		return nil, kindNull, err
	}
	return func(i int) (any, error) {
		switch v := series.ValueAt(arr, i).(type) {
		case int32:
			return int64(v), nil
		case float32:
			return float64(v), nil
		default:
			return v, nil
		}
	}, k, nil
}

func compileLiteral(value any) (rowFunc, kind, error) {
	var k kind
	switch value.(type) {
	case nil:
		k = kindNull
	case int64:
		k = kindInt
	case float64:
		k = kindFloat
	case string:
		k = kindString
	case bool:
		k = kindBool
	case time.Time:
		k = kindTime
	default:
		return nil, kindNull, fmt.Errorf("unsupported literal %v (%T)", value, value)
	}
	return func(int) (any, error) { return value, nil }, k, nil
}

func (c *compiler) compileUnary(x *UnaryExpr) (rowFunc, kind, error) {
	operand, k, err := c.compile(x.operand)
	if err != nil {
		return nil, kindNull, err
	}
	switch x.op {
	case UnaryNot:
		if k != kindBool && k != kindNull {
			return nil, kindNull, fmt.Errorf("not requires a bool operand, got %s", k)
		}
		return func(i int) (any, error) {
			v, err := operand(i)
			if err != nil || v == nil {
				return nil, err
			}
			return !v.(bool), nil
		}, kindBool, nil
	default:
		if !k.numeric() && k != kindNull {
			return nil, kindNull, fmt.Errorf("cannot negate %s", k)
		}
		return func(i int) (any, error) {
			v, err := operand(i)
			if err != nil {
				return nil, err
			}
			switch n := v.(type) {
			case int64:
				return -n, nil
			case float64:
				return -n, nil
			}
			return nil, nil
		}, k, nil
	}
}

func (c *compiler) compileBinary(x *BinaryExpr) (rowFunc, kind, error) {
	left, lk, err := c.compile(x.left)
	if err != nil {
		return nil, kindNull, err
	}
	right, rk, err := c.compile(x.right)
	if err != nil {
		return nil, kindNull, err
	}

	switch {
	case x.op.isLogical():
		return compileLogical(x.op, left, lk, right, rk)
	case x.op.isComparison():
		left, lk, err = c.timeLiteral(x.left, left, lk, rk)
		if err != nil {
			return nil, kindNull, err
		}
		right, rk, err = c.timeLiteral(x.right, right, rk, lk)
		if err != nil {
			return nil, kindNull, err
		}
		return compileComparison(x.op, left, lk, right, rk)
	default:
		return compileArithmetic(x.op, left, lk, right, rk)
	}
}

// timeLiteral parses a string literal compared against a timestamp
func (c *compiler) timeLiteral(e Expr, fn rowFunc, k, other kind) (rowFunc, kind, error) {
	lit, ok := e.(*LiteralExpr)
	if !ok || k != kindString || other != kindTime {
		return fn, k, nil
	}
	t, err := c.parseTime(lit.value.(string))
	if err != nil {
		return nil, kindNull, fmt.Errorf("invalid timestamp literal %q: %w", lit.value, err)
	}
	return func(int) (any, error) { return t, nil }, kindTime, nil
}

func compileLogical(op BinaryOp, left rowFunc, lk kind, right rowFunc, rk kind) (rowFunc, kind, error) {
	for _, k := range []kind{lk, rk} {
		if k != kindBool && k != kindNull {
			return nil, kindNull, fmt.Errorf("%s requires bool operands, got %s", op, k)
		}
	}
	// Kleene logic: a known result wins over a null operand
	return func(i int) (any, error) {
		l, err := left(i)
		if err != nil {
			return nil, err
		}
		r, err := right(i)
		if err != nil {
			return nil, err
		}
		lb, lok := l.(bool)
		rb, rok := r.(bool)
		if op == OpAnd {
			if (lok && !lb) || (rok && !rb) {
				return false, nil
			}
			if lok && rok {
				return true, nil
			}
			return nil, nil
		}
		if (lok && lb) || (rok && rb) {
			return true, nil
		}
		if lok && rok {
			return false, nil
		}
		return nil, nil
	}, kindBool, nil
}

func compileComparison(op BinaryOp, left rowFunc, lk kind, right rowFunc, rk kind) (rowFunc, kind, error) {
	if lk != kindNull && rk != kindNull && lk != rk && !(lk.numeric() && rk.numeric()) {
		return nil, kindNull, fmt.Errorf("cannot compare %s with %s", lk, rk)
	}
	return func(i int) (any, error) {
		l, r, err := operands(left, right, i)
		if err != nil || l == nil || r == nil {
			return nil, err
		}
		c, err := compare(l, r)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpEq:
			return c == 0, nil
		case OpNe:
			return c != 0, nil
		case OpLt:
			return c < 0, nil
		case OpLe:
			return c <= 0, nil
		case OpGt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	}, kindBool, nil
}

func compare(l, r any) (int, error) {
	switch lv := l.(type) {
	case int64:
		if rv, ok := r.(int64); ok {
			return compareOrdered(lv, rv), nil
		}
	case string:
		return strings.Compare(lv, r.(string)), nil
	case bool:
		return compareOrdered(boolRank(lv), boolRank(r.(bool))), nil
	case time.Time:
		return lv.Compare(r.(time.Time)), nil
	}
	lf, _ := series.ToFloat64(l)
	rf, _ := series.ToFloat64(r)
	return compareOrdered(lf, rf), nil
}

func compareOrdered[T int | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compileArithmetic(op BinaryOp, left rowFunc, lk kind, right rowFunc, rk kind) (rowFunc, kind, error) {
	var result kind
	switch {
	case op == OpAdd && lk == kindString && (rk == kindString || rk == kindNull),
		op == OpAdd && lk == kindNull && rk == kindString:
		result = kindString
	case (lk.numeric() || lk == kindNull) && (rk.numeric() || rk == kindNull):
		result = kindInt
		if lk == kindFloat || rk == kindFloat || op == OpDiv {
			result = kindFloat
		}
	default:
		return nil, kindNull, fmt.Errorf("unsupported operation %s %s %s", lk, op, rk)
	}

	return func(i int) (any, error) {
		l, r, err := operands(left, right, i)
		if err != nil || l == nil || r == nil {
			return nil, err
		}
		if result == kindString {
			return l.(string) + r.(string), nil
		}
		if result == kindInt {
			return intArithmetic(op, l.(int64), r.(int64)), nil
		}
		lf, _ := series.ToFloat64(l)
		rf, _ := series.ToFloat64(r)
		return floatArithmetic(op, lf, rf), nil
	}, result, nil
}

// intArithmetic returns nil for modulo by zero
func intArithmetic(op BinaryOp, l, r int64) any {
	switch op {
	case OpAdd:
		return l + r
	case OpSub:
		return l - r
	case OpMul:
		return l * r
	default:
		if r == 0 {
			return nil
		}
		return l % r
	}
}

func floatArithmetic(op BinaryOp, l, r float64) any {
	switch op {
	case OpAdd:
		return l + r
	case OpSub:
		return l - r
	case OpMul:
		return l * r
	case OpDiv:
		return l / r
	default:
		return math.Mod(l, r)
	}
}

func operands(left, right rowFunc, i int) (any, any, error) {
	l, err := left(i)
	if err != nil {
		return nil, nil, err
	}
	r, err := right(i)
	return l, r, err
}
