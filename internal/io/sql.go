package io

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/paveg/seekwell/internal/dataframe"
	"github.com/paveg/seekwell/internal/logging"
	"github.com/paveg/seekwell/internal/series"
)

// Querier abstracts *sql.DB, *sql.Tx and *sql.Conn for reads
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ReadSQL runs query and returns its result set as a DataFrame. Column
// types follow the scanned values; columns with no non-null value fall back
// to the declared database type.
func ReadSQL(ctx context.Context, db Querier, query string, args ...any) (*dataframe.DataFrame, error) {
	logging.L().Debug("executing SQL query", zap.String("sql", query), zap.Any("params", args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	return ReadRows(rows, nil)
}

// ReadRows drains rows into a DataFrame
func ReadRows(rows *sql.Rows, mem memory.Allocator) (*dataframe.DataFrame, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading column types: %w", err)
	}

	data := make([][]any, len(columnTypes))
	for rows.Next() {
		values := make([]any, len(columnTypes))
		scanArgs := make([]any, len(columnTypes))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			data[i] = append(data[i], normalizeSQLValue(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	cols := make([]dataframe.ISeries, 0, len(columnTypes))
	for i, ct := range columnTypes {
		dtype := inferType(data[i])
		if allNull(data[i]) {
			dtype = declaredType(ct.DatabaseTypeName())
		}
		s, err := series.FromValues(ct.Name(), dtype, data[i], mem)
		if err != nil {
			releaseSeries(cols)
			return nil, fmt.Errorf("creating series for column %s: %w", ct.Name(), err)
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

func normalizeSQLValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	}
	return v
}

func allNull(values []any) bool {
	for _, v := range values {
		if v != nil {
			return false
		}
	}
	return true
}

// declaredType maps a database column type name to a frame type
func declaredType(name string) arrow.DataType {
	name = strings.ToUpper(name)
	switch {
	case strings.Contains(name, "INT"):
		return arrow.PrimitiveTypes.Int64
	case strings.Contains(name, "REAL"), strings.Contains(name, "FLOA"), strings.Contains(name, "DOUB"),
		strings.Contains(name, "NUMERIC"), strings.Contains(name, "DECIMAL"):
		return arrow.PrimitiveTypes.Float64
	case strings.Contains(name, "BOOL"):
		return arrow.FixedWidthTypes.Boolean
	case strings.Contains(name, "DATE"), strings.Contains(name, "TIME"):
		return series.TimestampType
	}
	return arrow.BinaryTypes.String
}

// IfExists controls WriteSQL when the target table already exists
type IfExists int

const (
	// IfExistsFail returns the database error from CREATE TABLE
	IfExistsFail IfExists = iota
	// IfExistsReplace drops and recreates the table
	IfExistsReplace
	// IfExistsAppend inserts into the existing table
	IfExistsAppend
)

// WriteSQL stores df in table inside one transaction
func WriteSQL(ctx context.Context, db *sql.DB, table string, df *dataframe.DataFrame, ifExists IfExists) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	quoted := quoteIdent(table)
	if ifExists == IfExistsReplace {
		if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
			return fmt.Errorf("dropping table %s: %w", table, err)
		}
	}

	columns := df.Columns()
	defs := make([]string, len(columns))
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, name := range columns {
		s, _ := df.Column(name)
		names[i] = quoteIdent(name)
		defs[i] = names[i] + " " + sqlTypeName(s.DataType())
		marks[i] = "?"
	}

	create := "CREATE TABLE "
	if ifExists == IfExistsAppend {
		create += "IF NOT EXISTS "
	}
	createSQL := fmt.Sprintf("%s%s (%s)", create, quoted, strings.Join(defs, ", "))
	logging.L().Debug("executing SQL", zap.String("sql", createSQL))
	if _, err = tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoted, strings.Join(names, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < df.Len(); i++ {
		if _, err = stmt.ExecContext(ctx, df.Row(i)...); err != nil {
			return fmt.Errorf("inserting row %d: %w", i, err)
		}
	}
	logging.L().Debug("inserted rows", zap.String("table", table), zap.Int("rows", df.Len()))

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func sqlTypeName(dt arrow.DataType) string {
	switch {
	case series.IsInteger(dt):
		return "INTEGER"
	case series.IsFloating(dt):
		return "REAL"
	case dt.ID() == arrow.BOOL:
		return "BOOLEAN"
	case dt.ID() == arrow.TIMESTAMP:
		return "TIMESTAMP"
	}
	return "TEXT"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
