package seekwell

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/paveg/seekwell/internal/config"
	dataio "github.com/paveg/seekwell/internal/io"
	"github.com/paveg/seekwell/internal/logging"
)

// JSONFormat selects between a JSON array of objects and JSON lines
type JSONFormat = dataio.JSONFormat

// JSON layouts
const (
	JSONArray = dataio.JSONArray
	JSONLines = dataio.JSONLines
)

// IfExists controls WriteSQL when the table already exists
type IfExists = dataio.IfExists

// WriteSQL table policies
const (
	IfExistsFail    = dataio.IfExistsFail
	IfExistsReplace = dataio.IfExistsReplace
	IfExistsAppend  = dataio.IfExistsAppend
)

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn
type Querier = dataio.Querier

// ReadCSV reads CSV with a header row using the global delimiter, null
// string and date layouts. Column types are inferred.
func ReadCSV(r io.Reader) (*DataFrame, error) {
	return read(dataio.NewCSVReader(r, dataio.CSVOptionsFromConfig(config.GetGlobalConfig()), nil))
}

// ReadJSON reads a JSON array of objects or JSON lines. Column order
// follows first appearance of each key.
func ReadJSON(r io.Reader, format JSONFormat) (*DataFrame, error) {
	opts := dataio.DefaultJSONOptions()
	opts.Format = format
	return read(dataio.NewJSONReader(r, opts, nil))
}

// ReadParquet reads a Parquet file
func ReadParquet(r io.Reader) (*DataFrame, error) {
	return read(dataio.NewParquetReader(r, dataio.DefaultParquetOptions(), nil))
}

// ReadSQL runs query and returns its result set
func ReadSQL(ctx context.Context, db Querier, query string, args ...any) (*DataFrame, error) {
	df, err := dataio.ReadSQL(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// ReadFile reads a file, choosing the format by extension: .csv, .tsv,
// .json, .jsonl, .ndjson or .parquet
func ReadFile(path string) (*DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	logging.L().Debug("reading file", zap.String("path", path))
	var df *DataFrame
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		df, err = ReadCSV(f)
	case ".tsv":
		opts := dataio.CSVOptionsFromConfig(config.GetGlobalConfig())
		opts.Delimiter = '\t'
		df, err = read(dataio.NewCSVReader(f, opts, nil))
	case ".json":
		df, err = ReadJSON(f, JSONArray)
	case ".jsonl", ".ndjson":
		df, err = ReadJSON(f, JSONLines)
	case ".parquet", ".pq":
		df, err = ReadParquet(f)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return df, nil
}

func read(r dataio.DataReader) (*DataFrame, error) {
	df, err := r.Read()
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// WriteCSV writes d as CSV with a header row
func (d *DataFrame) WriteCSV(w io.Writer) error {
	return d.write("WriteCSV", dataio.NewCSVWriter(w, dataio.CSVOptionsFromConfig(d.config())))
}

// WriteJSON writes d as a JSON array or as JSON lines
func (d *DataFrame) WriteJSON(w io.Writer, format JSONFormat) error {
	opts := dataio.DefaultJSONOptions()
	opts.Format = format
	return d.write("WriteJSON", dataio.NewJSONWriter(w, opts))
}

// WriteParquet writes d as snappy-compressed Parquet
func (d *DataFrame) WriteParquet(w io.Writer) error {
	return d.write("WriteParquet", dataio.NewParquetWriter(w, dataio.DefaultParquetOptions()))
}

// WriteSQL stores d in table in one transaction
func (d *DataFrame) WriteSQL(ctx context.Context, db *sql.DB, table string, ifExists IfExists) error {
	return d.record("WriteSQL", func() error {
		return dataio.WriteSQL(ctx, db, table, d.df, ifExists)
	})
}

func (d *DataFrame) write(op string, w dataio.DataWriter) error {
	return d.record(op, func() error {
		return w.Write(d.df)
	})
}
