package io

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/paveg/seekwell/internal/dataframe"
	"github.com/paveg/seekwell/internal/series"
)

// Read reads Parquet data and returns a DataFrame.
func (r *ParquetReader) Read() (*dataframe.DataFrame, error) {
	// Parquet needs random access, so the whole input is buffered
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	pqReader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}
	defer pqReader.Close()

	props := pqarrow.ArrowReadProperties{BatchSize: int64(r.options.BatchSize)}
	arrowReader, err := pqarrow.NewFileReader(pqReader, props, r.mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer table.Release()

	return r.arrowTableToDataFrame(table)
}

// arrowTableToDataFrame converts an Arrow table to a DataFrame.
func (r *ParquetReader) arrowTableToDataFrame(table arrow.Table) (*dataframe.DataFrame, error) {
	schema := table.Schema()
	cols := make([]dataframe.ISeries, 0, table.NumCols())
	for i := 0; i < int(table.NumCols()); i++ {
		field := schema.Field(i)
		arr, err := r.columnArray(table.Column(i))
		if err != nil {
			releaseSeries(cols)
			return nil, fmt.Errorf("converting column %s: %w", field.Name, err)
		}
		cols = append(cols, series.FromArray(field.Name, arr))
	}

	df, err := dataframe.New(cols...)
	if err != nil {
		releaseSeries(cols)
		return nil, err
	}
	return df, nil
}

// columnArray flattens a chunked column into one array of a supported type.
// Timestamps are normalised to nanoseconds in UTC; types without a frame
// equivalent are read as their string form.
func (r *ParquetReader) columnArray(column *arrow.Column) (arrow.Array, error) {
	dt := column.DataType()
	chunks := column.Data().Chunks()

	var arr arrow.Array
	switch len(chunks) {
	case 0:
		b := array.NewBuilder(r.mem, dt)
		arr = b.NewArray()
		b.Release()
	case 1:
		arr = chunks[0]
		arr.Retain()
	default:
		var err error
		if arr, err = array.Concatenate(chunks, r.mem); err != nil {
			return nil, err
		}
	}

	//nolint:exhaustive // Only handling supported types
	switch dt.ID() {
	case arrow.INT64, arrow.INT32, arrow.FLOAT64, arrow.FLOAT32, arrow.STRING, arrow.BOOL:
		return arr, nil
	case arrow.TIMESTAMP:
		if arrow.TypeEqual(dt, series.TimestampType) {
			return arr, nil
		}
		return r.rebuild(arr, series.TimestampType)
	default:
		return r.rebuild(arr, arrow.BinaryTypes.String)
	}
}

// rebuild converts arr to dtype row by row and releases arr
func (r *ParquetReader) rebuild(arr arrow.Array, dtype arrow.DataType) (arrow.Array, error) {
	defer arr.Release()
	b := array.NewBuilder(r.mem, dtype)
	defer b.Release()
	for i := 0; i < arr.Len(); i++ {
		if err := series.AppendValue(b, series.ValueAt(arr, i)); err != nil {
			return nil, err
		}
	}
	return b.NewArray(), nil
}

var compressionCodecs = map[string]compress.Compression{
	"snappy":       compress.Codecs.Snappy,
	"gzip":         compress.Codecs.Gzip,
	"lz4":          compress.Codecs.Lz4Raw,
	"zstd":         compress.Codecs.Zstd,
	"uncompressed": compress.Codecs.Uncompressed,
}

// Write writes the DataFrame to Parquet format. The Arrow schema is stored
// in the file so timestamps read back with their unit and zone.
func (w *ParquetWriter) Write(df *dataframe.DataFrame) error {
	compression, ok := compressionCodecs[w.options.Compression]
	if !ok {
		return fmt.Errorf("unsupported compression: %s", w.options.Compression)
	}
	batchSize := w.options.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compression),
		parquet.WithBatchSize(int64(batchSize)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(memory.NewGoAllocator()),
		pqarrow.WithStoreSchema(),
	)

	schema := df.Schema()
	cols := make([]arrow.Array, 0, df.Width())
	for _, name := range df.Columns() {
		s, _ := df.Column(name)
		cols = append(cols, s.Array())
	}
	defer func() {
		for _, arr := range cols {
			arr.Release()
		}
	}()

	record := array.NewRecord(schema, cols, int64(df.Len()))
	defer record.Release()

	writer, err := pqarrow.NewFileWriter(schema, w.writer, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing table: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing file writer: %w", err)
	}
	return nil
}
