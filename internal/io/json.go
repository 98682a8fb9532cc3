package io

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/paveg/seekwell/internal/dataframe"
	"github.com/paveg/seekwell/internal/series"
)

// record is one decoded JSON object with its keys in document order
type record struct {
	keys   []string
	values map[string]any
}

// Read reads JSON data and returns a DataFrame. Columns appear in the order
// their keys are first seen; keys missing from a record read as null.
func (r *JSONReader) Read() (*dataframe.DataFrame, error) {
	var records []record
	var err error
	switch r.options.Format {
	case JSONArray:
		records, err = r.readJSONArray()
	case JSONLines:
		records, err = r.readJSONLines()
	default:
		return nil, fmt.Errorf("unsupported JSON format: %d", r.options.Format)
	}
	if err != nil {
		return nil, err
	}
	return r.recordsToDataFrame(records)
}

// readJSONArray reads JSON array format.
func (r *JSONReader) readJSONArray() ([]record, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r.reader).Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshaling JSON array: %w", err)
	}
	if r.options.MaxRecords > 0 && len(raw) > r.options.MaxRecords {
		raw = raw[:r.options.MaxRecords]
	}

	records := make([]record, 0, len(raw))
	for i, msg := range raw {
		rec, err := decodeObject(msg)
		if err != nil {
			return nil, fmt.Errorf("unmarshaling JSON record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// readJSONLines reads JSON Lines format.
func (r *JSONReader) readJSONLines() ([]record, error) {
	scanner := bufio.NewScanner(r.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var records []record
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := decodeObject(line)
		if err != nil {
			return nil, fmt.Errorf("unmarshaling JSON line %d: %w", lineNum, err)
		}
		records = append(records, rec)
		if r.options.MaxRecords > 0 && len(records) >= r.options.MaxRecords {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning JSON lines: %w", err)
	}
	return records, nil
}

// decodeObject decodes one JSON object, keeping key order. Numbers become
// int64 when integral and float64 otherwise; nested values are kept as
// their JSON text.
func decodeObject(data []byte) (record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return record{}, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return record{}, fmt.Errorf("expected object, got %v", tok)
	}

	rec := record{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return record{}, err
		}
		key := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return record{}, err
		}
		value, err := decodeValue(raw)
		if err != nil {
			return record{}, fmt.Errorf("key %q: %w", key, err)
		}
		if _, dup := rec.values[key]; !dup {
			rec.keys = append(rec.keys, key)
		}
		rec.values[key] = value
	}
	return rec, nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		return x.Float64()
	case map[string]any, []any:
		return string(raw), nil
	}
	return v, nil
}

// recordsToDataFrame converts JSON records to a DataFrame.
func (r *JSONReader) recordsToDataFrame(records []record) (*dataframe.DataFrame, error) {
	var columns []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, key := range rec.keys {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}

	cols := make([]dataframe.ISeries, 0, len(columns))
	for _, name := range columns {
		values := make([]any, len(records))
		for i, rec := range records {
			values[i] = rec.values[name]
			if !r.options.TypeInference && values[i] != nil {
				values[i] = series.FormatValue(values[i])
			}
		}
		s, err := columnFromValues(name, values, r.mem)
		if err != nil {
			releaseSeries(cols)
			return nil, fmt.Errorf("creating series for column %s: %w", name, err)
		}
		cols = append(cols, s)
	}

	df, err := dataframe.New(cols...)
	if err != nil {
		releaseSeries(cols)
		return nil, err
	}
	return df, nil
}

// Write writes the DataFrame as JSON. Objects keep the frame's column order.
func (w *JSONWriter) Write(df *dataframe.DataFrame) error {
	switch w.options.Format {
	case JSONArray:
		return w.writeJSONArray(df)
	case JSONLines:
		return w.writeJSONLines(df)
	default:
		return fmt.Errorf("unsupported JSON format: %d", w.options.Format)
	}
}

// writeJSONArray writes DataFrame as JSON array.
func (w *JSONWriter) writeJSONArray(df *dataframe.DataFrame) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < df.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeRow(&buf, df, i); err != nil {
			return err
		}
	}
	buf.WriteString("]\n")
	_, err := w.writer.Write(buf.Bytes())
	return err
}

// writeJSONLines writes DataFrame as JSON Lines.
func (w *JSONWriter) writeJSONLines(df *dataframe.DataFrame) error {
	bw := bufio.NewWriter(w.writer)
	var buf bytes.Buffer
	for i := 0; i < df.Len(); i++ {
		buf.Reset()
		if err := encodeRow(&buf, df, i); err != nil {
			return err
		}
		buf.WriteByte('\n')
		if _, err := bw.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("writing JSON line %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}

func encodeRow(buf *bytes.Buffer, df *dataframe.DataFrame, i int) error {
	row := df.Row(i)
	buf.WriteByte('{')
	for j, name := range df.Columns() {
		if j > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(name)
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(jsonValue(row[j]))
		if err != nil {
			return fmt.Errorf("encoding row %d column %s: %w", i, name, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return nil
}

// jsonValue maps a cell to its JSON form; NaN and infinities become null
func jsonValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case float32:
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return v
}
