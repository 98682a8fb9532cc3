package io

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/paveg/seekwell/internal/dataframe"
	"github.com/paveg/seekwell/internal/series"
)

// Read reads CSV data and returns a DataFrame
func (r *CSVReader) Read() (*dataframe.DataFrame, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	if len(records) == 0 {
		return dataframe.New()
	}

	var headers []string
	dataRows := records
	if r.options.Header {
		headers, dataRows = records[0], records[1:]
	} else {
		headers = make([]string, len(records[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
	}

	cols := make([]dataframe.ISeries, 0, len(headers))
	for i, header := range headers {
		cells := make([]string, len(dataRows))
		for j, row := range dataRows {
			if i < len(row) {
				cells[j] = row[i]
			}
		}
		s, err := columnFromValues(header, r.typeCells(cells), r.mem)
		if err != nil {
			releaseSeries(cols)
			return nil, fmt.Errorf("creating series for column %s: %w", header, err)
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

// typeCells converts a column of cells to Go values of one inferred type.
// Candidates are tried from most to least specific: bool, int, float,
// timestamp; anything else stays text.
func (r *CSVReader) typeCells(cells []string) []any {
	values := make([]any, len(cells))
	parsers := []func(string) (any, bool){
		parseBool,
		parseInt,
		parseFloat,
		func(s string) (any, bool) {
			t, err := dataframe.ParseTime(s, r.options.DateLayouts)
			return t, err == nil
		},
	}

	for _, parse := range parsers {
		ok := true
		for i, cell := range cells {
			if r.isNull(cell) {
				values[i] = nil
				continue
			}
			if values[i], ok = parse(cell); !ok {
				break
			}
		}
		if ok {
			return values
		}
	}

	for i, cell := range cells {
		if r.isNull(cell) {
			values[i] = nil
		} else {
			values[i] = cell
		}
	}
	return values
}

func (r *CSVReader) isNull(cell string) bool {
	return cell == "" || (r.options.NullString != "" && cell == r.options.NullString)
}

func parseBool(s string) (any, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return nil, false
}

func parseInt(s string) (any, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

func parseFloat(s string) (any, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// Write writes the DataFrame to CSV format
func (w *CSVWriter) Write(df *dataframe.DataFrame) error {
	csvWriter := csv.NewWriter(w.writer)
	csvWriter.Comma = w.options.Delimiter

	if w.options.Header {
		if err := csvWriter.Write(df.Columns()); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
	}

	row := make([]string, df.Width())
	for i := 0; i < df.Len(); i++ {
		for j, v := range df.Row(i) {
			if v == nil {
				row[j] = w.options.NullString
			} else {
				row[j] = series.FormatValue(v)
			}
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
