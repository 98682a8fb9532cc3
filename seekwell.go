// Package seekwell layers a SQL vocabulary over an Arrow backed DataFrame:
// Select, Where, GroupBy/Having, OrderBy, Limit, Join, Union, Distinct,
// Intersect, Difference, WithColumn, Cast, Unpivot and friends.
//
// Every operation returns a new frame except WithColumn and Cast, which
// modify the receiver and return it. Frames own Arrow memory and must be
// released:
//
//	df, err := seekwell.ReadFile("penguins.csv")
//	if err != nil {
//		return err
//	}
//	defer df.Release()
//
//	heavy, err := df.Where("species == Adelie and mass > 3500")
//	if err != nil {
//		return err
//	}
//	defer heavy.Release()
package seekwell

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/paveg/seekwell/internal/config"
	"github.com/paveg/seekwell/internal/dataframe"
	"github.com/paveg/seekwell/internal/errors"
	"github.com/paveg/seekwell/internal/logging"
	"github.com/paveg/seekwell/internal/monitoring"
	"github.com/paveg/seekwell/internal/series"
)

// ISeries is a named, typed column
type ISeries = series.ISeries

// Config holds library-wide settings; see DefaultConfig
type Config = config.Config

// DataFrameError is the error type returned by frame operations
type DataFrameError = errors.DataFrameError

// OperationMetrics is one recorded operation
type OperationMetrics = monitoring.OperationMetrics

// MetricsSummary aggregates recorded operations
type MetricsSummary = monitoring.MetricsSummary

// Sentinels for errors.Is
var (
	ErrColumnNotFound   = errors.ErrColumnNotFound
	ErrNotGrouped       = errors.ErrNotGrouped
	ErrSchemaMismatch   = errors.ErrSchemaMismatch
	ErrMismatchedLength = errors.ErrMismatchedLength
)

var metrics = monitoring.NewMetricsCollector(0)

// DataFrame is an ordered set of named columns sharing one row order.
// It wraps the internal frame so the engine stays private.
type DataFrame struct {
	df  *dataframe.DataFrame
	cfg *config.Config // nil follows the global configuration
}

// NewDataFrame creates a frame from equal-length columns with distinct
// names. The frame takes ownership of the series.
func NewDataFrame(cols ...ISeries) (*DataFrame, error) {
	df, err := dataframe.New(cols...)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// NewSeries creates a column from values. Supported element types are
// string, int64, int32, float64, float32, bool and time.Time.
func NewSeries[T any](name string, values []T, mem memory.Allocator) ISeries {
	return series.New(name, values, mem)
}

// NewNullableSeries creates a column where valid[i] == false marks a null
func NewNullableSeries[T any](name string, values []T, valid []bool, mem memory.Allocator) (ISeries, error) {
	return series.NewNullable(name, values, valid, mem)
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() Config {
	return config.NewConfig()
}

// SetGlobalConfig validates cfg and makes it the default for every frame
// without its own configuration
func SetGlobalConfig(cfg Config) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	config.SetGlobalConfig(cfg)
	return nil
}

// GlobalConfig returns the current global configuration
func GlobalConfig() Config {
	return config.GetGlobalConfig()
}

// LoadConfig reads a .json, .yaml or .yml configuration file
func LoadConfig(path string) (Config, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetLogger routes library logging to l. The library is silent by default.
func SetLogger(l *zap.Logger) {
	logging.SetLogger(l)
}

// Metrics returns the operations recorded while MetricsCollection is on
func Metrics() []OperationMetrics {
	return metrics.Metrics()
}

// MetricsReport summarizes the recorded operations
func MetricsReport() MetricsSummary {
	return metrics.Summary()
}

// ResetMetrics discards recorded operations
func ResetMetrics() {
	metrics.Reset()
}

// WithConfig returns a frame sharing d's data that uses cfg instead of the
// global configuration. Frames derived from it inherit cfg.
func (d *DataFrame) WithConfig(cfg Config) (*DataFrame, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &DataFrame{df: d.df.Clone(), cfg: &cfg}, nil
}

// Columns returns the column names in order
func (d *DataFrame) Columns() []string {
	return d.df.Columns()
}

// Len returns the number of rows
func (d *DataFrame) Len() int {
	return d.df.Len()
}

// Width returns the number of columns
func (d *DataFrame) Width() int {
	return d.df.Width()
}

// Column returns the named column
func (d *DataFrame) Column(name string) (ISeries, bool) {
	return d.df.Column(name)
}

// HasColumn reports whether the frame has the named column
func (d *DataFrame) HasColumn(name string) bool {
	return d.df.HasColumn(name)
}

// TypeOf returns the type name of a column, e.g. "int64" or "utf8"
func (d *DataFrame) TypeOf(name string) (string, bool) {
	return d.df.TypeOf(name)
}

// Schema returns the Arrow schema
func (d *DataFrame) Schema() *arrow.Schema {
	return d.df.Schema()
}

// Row returns row i as Go values in column order; nulls are nil
func (d *DataFrame) Row(i int) []any {
	return d.df.Row(i)
}

// String describes the shape and column types
func (d *DataFrame) String() string {
	return d.df.String()
}

// Release frees the Arrow memory held by the frame
func (d *DataFrame) Release() {
	d.df.Release()
}

func (d *DataFrame) config() Config {
	if d.cfg != nil {
		return *d.cfg
	}
	return config.GetGlobalConfig()
}

func (d *DataFrame) wrap(df *dataframe.DataFrame) *DataFrame {
	return &DataFrame{df: df, cfg: d.cfg}
}

// record runs fn as one named operation that keeps d's row count
func (d *DataFrame) record(op string, fn func() error) error {
	return d.recordRows(op, func() (int, error) {
		if err := fn(); err != nil {
			return 0, err
		}
		return d.Len(), nil
	})
}

// recordRows runs fn as one named operation, logging failures and storing
// metrics when enabled. fn reports the rows it produced.
func (d *DataFrame) recordRows(op string, fn func() (int, error)) error {
	var err error
	if d.config().MetricsCollection {
		err = metrics.Record(op, d.Len(), fn)
	} else {
		_, err = fn()
	}
	if err != nil {
		logging.L().Debug("operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

// derive runs an operation producing a new frame
func (d *DataFrame) derive(op string, fn func() (*dataframe.DataFrame, error)) (*DataFrame, error) {
	var out *dataframe.DataFrame
	err := d.recordRows(op, func() (int, error) {
		var err error
		if out, err = fn(); err != nil {
			return 0, err
		}
		return out.Len(), nil
	})
	if err != nil {
		return nil, err
	}
	logging.L().Debug("operation",
		zap.String("op", op), zap.Int("rows_in", d.Len()), zap.Int("rows_out", out.Len()))
	return d.wrap(out), nil
}
