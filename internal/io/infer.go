package io

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/seekwell/internal/dataframe"
	"github.com/paveg/seekwell/internal/series"
)

// inferType picks the narrowest type holding every non-nil value: int64,
// float64 for mixed numbers, bool, timestamp, otherwise string. A column of
// nulls is typed string.
func inferType(values []any) arrow.DataType {
	var ints, floats, bools, times, others, present int
	for _, v := range values {
		switch v.(type) {
		case nil:
			continue
		case int64:
			ints++
		case float64:
			floats++
		case bool:
			bools++
		case time.Time:
			times++
		default:
			others++
		}
		present++
	}

	switch {
	case present == 0 || others > 0:
		return arrow.BinaryTypes.String
	case ints == present:
		return arrow.PrimitiveTypes.Int64
	case ints+floats == present:
		return arrow.PrimitiveTypes.Float64
	case bools == present:
		return arrow.FixedWidthTypes.Boolean
	case times == present:
		return series.TimestampType
	}
	return arrow.BinaryTypes.String
}

// columnFromValues builds a series typed by inferType
func columnFromValues(name string, values []any, mem memory.Allocator) (dataframe.ISeries, error) {
	return series.FromValues(name, inferType(values), values, mem)
}

func releaseSeries(cols []dataframe.ISeries) {
	for _, s := range cols {
		s.Release()
	}
}
