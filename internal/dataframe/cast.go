package dataframe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/seekwell/internal/errors"
	"github.com/paveg/seekwell/internal/series"
	"github.com/paveg/seekwell/internal/validation"
)

// ParseDType maps a type name to an Arrow type. Accepted names are int,
// int64, int32, float, float64, float32, string, str, bool, timestamp,
// datetime and date.
func ParseDType(name string) (arrow.DataType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int", "int64":
		return arrow.PrimitiveTypes.Int64, nil
	case "int32":
		return arrow.PrimitiveTypes.Int32, nil
	case "float", "float64":
		return arrow.PrimitiveTypes.Float64, nil
	case "float32":
		return arrow.PrimitiveTypes.Float32, nil
	case "string", "str":
		return arrow.BinaryTypes.String, nil
	case "bool", "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "timestamp", "datetime", "date":
		return series.TimestampType, nil
	default:
		return nil, errors.NewUnsupportedTypeError("Cast", name)
	}
}

// Cast converts one column to dtype in place. Nulls stay null. layouts are
// tried in order when parsing text into timestamps.
func (df *DataFrame) Cast(name string, dtype arrow.DataType, layouts []string) error {
	if err := validation.ValidateColumns(df, "Cast", name); err != nil {
		return err
	}
	src := df.columns[name].Array()
	defer src.Release()

	if arrow.TypeEqual(src.DataType(), dtype) {
		return nil
	}

	mem := memory.NewGoAllocator()
	b := array.NewBuilder(mem, dtype)
	defer b.Release()

	for i := 0; i < src.Len(); i++ {
		v := series.ValueAt(src, i)
		if v == nil {
			b.AppendNull()
			continue
		}
		converted, err := convertValue(v, dtype, layouts)
		if err == nil {
			err = series.AppendValue(b, converted)
		}
		if err != nil {
			return errors.NewParseError("Cast", name, err)
		}
	}

	return df.SetColumn(series.FromArray(name, b.NewArray()))
}

func convertValue(v any, dtype arrow.DataType, layouts []string) (any, error) {
	switch dtype.ID() {
	case arrow.INT64, arrow.INT32:
		return toInteger(v)
	case arrow.FLOAT64, arrow.FLOAT32:
		return toFloat(v)
	case arrow.STRING:
		return series.FormatValue(v), nil
	case arrow.BOOL:
		return toBool(v)
	case arrow.TIMESTAMP:
		return toTime(v, layouts)
	default:
		return nil, fmt.Errorf("unsupported target type %s", dtype)
	}
}

// toInteger truncates floats toward zero
func toInteger(v any) (any, error) {
	switch x := v.(type) {
	case int64, int32:
		return x, nil
	case float64, float32:
		f, _ := series.ToFloat64(x)
		if !series.FitsInt64(f) {
			return nil, fmt.Errorf("%v is outside the integer range", f)
		}
		return int64(math.Trunc(f)), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case time.Time:
		return x.UnixNano(), nil
	}
	return nil, fmt.Errorf("cannot convert %T to integer", v)
}

func toFloat(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case time.Time:
		return float64(x.UnixNano()), nil
	}
	if f, ok := series.ToFloat64(v); ok {
		return f, nil
	}
	return nil, fmt.Errorf("cannot convert %T to float", v)
}

// toBool treats non-zero numbers as true and parses text with strconv.ParseBool
func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	}
	if f, ok := series.ToFloat64(v); ok {
		return f != 0, nil
	}
	return nil, fmt.Errorf("cannot convert %T to bool", v)
}

func toTime(v any, layouts []string) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case int64:
		return time.Unix(0, x).UTC(), nil
	case int32:
		return time.Unix(0, int64(x)).UTC(), nil
	case string:
		return ParseTime(x, layouts)
	}
	return nil, fmt.Errorf("cannot convert %T to timestamp", v)
}

// ParseTime parses s with the first matching layout. Times without a zone
// are taken as UTC.
func ParseTime(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q does not match any date layout", s)
}
