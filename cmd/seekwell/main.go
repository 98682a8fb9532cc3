package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/olekukonko/tablewriter"

	"github.com/paveg/seekwell"
	"github.com/paveg/seekwell/internal/logging"
	"github.com/paveg/seekwell/internal/version"
)

const usageText = `seekwell queries a table with SQL-style operations (version %s)

Usage: seekwell [options] <file>
       seekwell [options] -sqlite <db> -query <sql>

The file format is chosen by extension: .csv, .tsv, .json, .jsonl,
.ndjson, .parquet. A -sql statement runs first, against the input
registered as a view named by -view (the file name without extension, or
"result" for SQLite). The other operations then run in the order where,
order-by, select, distinct, limit.

Options:
`

type options struct {
	input    string
	sqlite   string
	query    string
	sql      string
	view     string
	selects  string
	where    multiFlag
	orderBy  string
	desc     bool
	distinct bool
	limit    int
	output   string
	config   string
	logLevel string
	version  bool
}

// multiFlag collects a repeatable string flag
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, " and ") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var opts options
	fs := flag.NewFlagSet("seekwell", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.input, "input", "", "Input file (may also be given as the first argument)")
	fs.StringVar(&opts.sqlite, "sqlite", "", "SQLite database to read with -query")
	fs.StringVar(&opts.query, "query", "", "SQL query run against -sqlite")
	fs.StringVar(&opts.sql, "sql", "", "SELECT statement run over the input view")
	fs.StringVar(&opts.view, "view", "", "View name of the input in -sql statements")
	fs.StringVar(&opts.selects, "select", "", "Comma separated columns; prefix a name with - to exclude it")
	fs.Var(&opts.where, "where", "Row condition, e.g. \"mass > 3500 and species == Adelie\" (repeatable)")
	fs.StringVar(&opts.orderBy, "order-by", "", "Comma separated sort columns")
	fs.BoolVar(&opts.desc, "desc", false, "Sort descending")
	fs.BoolVar(&opts.distinct, "distinct", false, "Drop duplicate rows")
	fs.IntVar(&opts.limit, "limit", 0, "Maximum rows to print (0 = unlimited)")
	fs.StringVar(&opts.output, "output", "table", "Output format: table, csv, json, jsonl")
	fs.StringVar(&opts.config, "config", "", "Configuration file (.json, .yaml)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVar(&opts.version, "v", false, "Print version and exit")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), usageText, version.Version)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.input == "" && fs.NArg() > 0 {
		opts.input = fs.Arg(0)
	}
	if opts.view == "" {
		opts.view = "result"
		if opts.input != "" {
			base := filepath.Base(opts.input)
			opts.view = strings.TrimSuffix(base, filepath.Ext(base))
		}
	}
	return &opts, nil
}

func (o *options) validate() error {
	if o.limit < 0 {
		return fmt.Errorf("-limit must be non-negative, got %d", o.limit)
	}
	switch {
	case o.input != "" && o.sqlite != "":
		return errors.New("-sqlite and a file input cannot be used together")
	case o.input == "" && o.sqlite == "":
		return errors.New("missing input: pass a file or -sqlite with -query")
	case o.sqlite != "" && o.query == "":
		return errors.New("-sqlite requires -query")
	case o.sqlite == "" && o.query != "":
		return errors.New("-query requires -sqlite")
	}
	switch o.output {
	case "table", "csv", "json", "jsonl":
	default:
		return fmt.Errorf("unsupported output format: %s", o.output)
	}
	return nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprint(stdout, version.Info().String())
		return nil
	}
	if err := opts.validate(); err != nil {
		return err
	}

	cfg := seekwell.GlobalConfig()
	if opts.config != "" {
		if cfg, err = seekwell.LoadConfig(opts.config); err != nil {
			return err
		}
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := seekwell.SetGlobalConfig(cfg); err != nil {
		return err
	}
	logger, err := logging.New(seekwell.GlobalConfig().LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	seekwell.SetLogger(logger)
	defer seekwell.SetLogger(nil)

	df, err := load(opts)
	if err != nil {
		return err
	}
	defer df.Release()

	if opts.sql != "" {
		registry := seekwell.NewRegistry()
		if err := registry.CreateView(opts.view, df); err != nil {
			return err
		}
		result, err := registry.Execute(opts.sql)
		if err != nil {
			return err
		}
		defer result.Release()
		df = result
	}

	out, err := buildQuery(df, opts).Collect()
	if err != nil {
		return err
	}
	defer out.Release()

	return render(stdout, out, opts.output)
}

func load(opts *options) (*seekwell.DataFrame, error) {
	if opts.input != "" {
		return seekwell.ReadFile(opts.input)
	}

	db, err := sql.Open("sqlite3", opts.sqlite)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", opts.sqlite, err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return seekwell.ReadSQL(ctx, db, opts.query)
}

func buildQuery(df *seekwell.DataFrame, opts *options) *seekwell.Query {
	q := df.Query()
	for _, cond := range opts.where {
		q = q.Where(cond)
	}
	if keys := splitList(opts.orderBy); len(keys) > 0 {
		q = q.OrderBy(seekwell.Cols(keys...), !opts.desc)
	}
	if names := splitList(opts.selects); len(names) > 0 {
		q = q.Select(seekwell.ParseSpecs(names...)...)
	}
	if opts.distinct {
		q = q.Distinct()
	}
	if opts.limit > 0 {
		q = q.Limit(opts.limit)
	}
	return q
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func render(w io.Writer, df *seekwell.DataFrame, format string) error {
	switch format {
	case "csv":
		return df.WriteCSV(w)
	case "json":
		return df.WriteJSON(w, seekwell.JSONArray)
	case "jsonl":
		return df.WriteJSON(w, seekwell.JSONLines)
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(df.Columns())
	table.SetAutoWrapText(false)
	for i := 0; i < df.Len(); i++ {
		row := df.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formatCell(v)
		}
		table.Append(cells)
	}
	table.Render()
	fmt.Fprintf(w, "(%d rows)\n", df.Len())
	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
