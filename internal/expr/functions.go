package expr

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Date/time extraction function types
type dateTimeExtractor func(time.Time) int64

var dateTimeFunctions = map[string]dateTimeExtractor{
	"year":   func(t time.Time) int64 { return int64(t.Year()) },
	"month":  func(t time.Time) int64 { return int64(t.Month()) },
	"day":    func(t time.Time) int64 { return int64(t.Day()) },
	"hour":   func(t time.Time) int64 { return int64(t.Hour()) },
	"minute": func(t time.Time) int64 { return int64(t.Minute()) },
	"second": func(t time.Time) int64 { return int64(t.Second()) },
}

var floatFunctions = map[string]func(float64) float64{
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"sqrt":  math.Sqrt,
}

var stringFunctions = map[string]func(string) string{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"trim":  strings.TrimSpace,
}

func (c *compiler) compileFunction(x *FunctionExpr) (rowFunc, kind, error) {
	args := make([]rowFunc, len(x.args))
	kinds := make([]kind, len(x.args))
	for i, arg := range x.args {
		fn, k, err := c.compile(arg)
		if err != nil {
			return nil, kindNull, err
		}
		args[i], kinds[i] = fn, k
	}

	if x.name == "coalesce" {
		return compileCoalesce(args, kinds)
	}
	if x.name == "round" {
		return compileRound(args, kinds)
	}

	want, known := knownUnary(x.name)
	if !known {
		return nil, kindNull, fmt.Errorf("unsupported function: %s", x.name)
	}
	if len(args) != 1 {
		return nil, kindNull, fmt.Errorf("function %s requires exactly 1 argument, got %d", x.name, len(args))
	}
	arg, k := args[0], kinds[0]
	if k != kindNull && !want(k) {
		return nil, kindNull, fmt.Errorf("function %s does not accept %s", x.name, k)
	}

	switch {
	case x.name == "abs":
		return unaryApply(arg, func(v any) any {
			if n, ok := v.(int64); ok {
				if n < 0 {
					return -n
				}
				return n
			}
			return math.Abs(v.(float64))
		}), k, nil
	case x.name == "length":
		return unaryApply(arg, func(v any) any { return int64(utf8.RuneCountInString(v.(string))) }), kindInt, nil
	case floatFunctions[x.name] != nil:
		f := floatFunctions[x.name]
		return unaryApply(arg, func(v any) any {
			n, _ := toFloat(v)
			return f(n)
		}), kindFloat, nil
	case stringFunctions[x.name] != nil:
		f := stringFunctions[x.name]
		return unaryApply(arg, func(v any) any { return f(v.(string)) }), kindString, nil
	default:
		extract := dateTimeFunctions[x.name]
		return unaryApply(arg, func(v any) any { return extract(v.(time.Time)) }), kindInt, nil
	}
}

// knownUnary reports the argument kinds accepted by a one-argument function
func knownUnary(name string) (func(kind) bool, bool) {
	switch {
	case name == "abs", floatFunctions[name] != nil:
		return kind.numeric, true
	case name == "length", stringFunctions[name] != nil:
		return func(k kind) bool { return k == kindString }, true
	case dateTimeFunctions[name] != nil:
		return func(k kind) bool { return k == kindTime }, true
	}
	return nil, false
}

func unaryApply(arg rowFunc, f func(any) any) rowFunc {
	return func(i int) (any, error) {
		v, err := arg(i)
		if err != nil || v == nil {
			return nil, err
		}
		return f(v), nil
	}
}

// compileRound rounds half away from zero, to whole numbers or to the given
// number of decimal places
func compileRound(args []rowFunc, kinds []kind) (rowFunc, kind, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, kindNull, fmt.Errorf("function round requires 1 or 2 arguments, got %d", len(args))
	}
	if kinds[0] != kindNull && !kinds[0].numeric() {
		return nil, kindNull, fmt.Errorf("function round does not accept %s", kinds[0])
	}
	if len(args) == 2 && kinds[1] != kindInt {
		return nil, kindNull, fmt.Errorf("round precision must be an integer, got %s", kinds[1])
	}
	return func(i int) (any, error) {
		v, err := args[0](i)
		if err != nil || v == nil {
			return nil, err
		}
		n, _ := toFloat(v)
		if len(args) == 1 {
			return math.Round(n), nil
		}
		p, err := args[1](i)
		if err != nil || p == nil {
			return nil, err
		}
		scale := math.Pow(10, float64(p.(int64)))
		return math.Round(n*scale) / scale, nil
	}, kindFloat, nil
}

// compileCoalesce returns the first non-null argument. Arguments must share a
// kind; mixed int and float arguments produce float.
func compileCoalesce(args []rowFunc, kinds []kind) (rowFunc, kind, error) {
	if len(args) == 0 {
		return nil, kindNull, fmt.Errorf("function coalesce requires at least 1 argument")
	}
	result := kindNull
	for _, k := range kinds {
		switch {
		case k == kindNull || k == result:
		case result == kindNull:
			result = k
		case result.numeric() && k.numeric():
			result = kindFloat
		default:
			return nil, kindNull, fmt.Errorf("coalesce arguments mix %s and %s", result, k)
		}
	}
	return func(i int) (any, error) {
		for _, arg := range args {
			v, err := arg(i)
			if err != nil {
				return nil, err
			}
			if v != nil {
				if result == kindFloat {
					f, _ := toFloat(v)
					return f, nil
				}
				return v, nil
			}
		}
		return nil, nil
	}, result, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
