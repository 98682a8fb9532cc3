package main

import (
	"bytes"
	"context"
	"database/sql"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/seekwell"
)

const penguinsCSV = `species,island,mass
Adelie,Torgersen,3750
Gentoo,Biscoe,4500
Adelie,Dream,3250
Chinstrap,Dream,3500
Gentoo,Biscoe,4500
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRunCSVOutput(t *testing.T) {
	path := writeFile(t, "penguins.csv", penguinsCSV)

	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{
			name:     "where order select",
			args:     []string{"-where", "mass > 3400", "-order-by", "mass", "-desc", "-select", "species", "-output", "csv", path},
			expected: "species\nGentoo\nGentoo\nAdelie\nChinstrap\n",
		},
		{
			name:     "distinct and limit",
			args:     []string{"-select", "species,island", "-distinct", "-limit", "2", "-output", "csv", path},
			expected: "species,island\nAdelie,Torgersen\nGentoo,Biscoe\n",
		},
		{
			name:     "exclusion and repeated where",
			args:     []string{"-select", "-island", "-where", "island == Dream", "-where", "mass >= 3500", "-output", "csv", "-input", path},
			expected: "species,mass\nChinstrap,3500\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestRunTableOutput(t *testing.T) {
	path := writeFile(t, "penguins.csv", penguinsCSV)

	out, err := runCLI(t, "-where", "species == Gentoo", path)
	require.NoError(t, err)
	assert.Contains(t, out, "species")
	assert.Contains(t, out, "Biscoe")
	assert.NotContains(t, out, "Adelie")
	assert.True(t, strings.HasSuffix(out, "(2 rows)\n"))
}

func TestRunJSONOutput(t *testing.T) {
	path := writeFile(t, "penguins.csv", penguinsCSV)

	out, err := runCLI(t, "-where", "species == Chinstrap", "-output", "jsonl", path)
	require.NoError(t, err)
	assert.Equal(t, `{"species":"Chinstrap","island":"Dream","mass":3500}`+"\n", out)
}

func TestRunSQLStatement(t *testing.T) {
	path := writeFile(t, "penguins.csv", penguinsCSV)

	out, err := runCLI(t, "-sql", "SELECT island, COUNT(*) AS n FROM penguins GROUP BY island ORDER BY n DESC", "-output", "csv", path)
	require.NoError(t, err)
	assert.Equal(t, "island,n\nBiscoe,2\nDream,2\nTorgersen,1\n", out)

	out, err = runCLI(t, "-view", "birds", "-sql", "SELECT species FROM birds WHERE mass > 3600", "-distinct", "-output", "csv", path)
	require.NoError(t, err)
	assert.Equal(t, "species\nAdelie\nGentoo\n", out)

	_, err = runCLI(t, "-sql", "SELECT * FROM birds", path)
	assert.ErrorContains(t, err, `view "birds" does not exist`)
}

func TestRunSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "birds.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.ExecContext(context.Background(),
		`CREATE TABLE birds (species TEXT, mass INTEGER);
		 INSERT INTO birds VALUES ('Adelie', 3750), ('Gentoo', 4500), ('Chinstrap', 3500);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := runCLI(t, "-sqlite", dbPath, "-query", "SELECT * FROM birds", "-where", "mass < 4000", "-order-by", "mass", "-output", "csv")
	require.NoError(t, err)
	assert.Equal(t, "species,mass\nChinstrap,3500\nAdelie,3750\n", out)
}

func TestRunConfig(t *testing.T) {
	original := seekwell.GlobalConfig()
	t.Cleanup(func() { require.NoError(t, seekwell.SetGlobalConfig(original)) })

	data := writeFile(t, "penguins.csv", "species;mass\nAdelie;3750\nGentoo;NA\n")
	cfg := writeFile(t, "seekwell.yaml", "csv_delimiter: \";\"\nnull_string: NA\nstrict_literals: true\n")

	out, err := runCLI(t, "-config", cfg, "-where", "mass > 1000", "-output", "csv", data)
	require.NoError(t, err)
	assert.Equal(t, "species;mass\nAdelie;3750\n", out)

	_, err = runCLI(t, "-config", cfg, "-where", "mass > heavy", data)
	assert.Error(t, err)
}

func TestRunErrors(t *testing.T) {
	path := writeFile(t, "penguins.csv", penguinsCSV)

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"no input", nil, "missing input"},
		{"negative limit", []string{"-limit", "-1", path}, "-limit must be non-negative"},
		{"sqlite without query", []string{"-sqlite", "x.db"}, "-sqlite requires -query"},
		{"query without sqlite", []string{"-query", "SELECT 1", path}, "-query requires -sqlite"},
		{"both inputs", []string{"-sqlite", "x.db", "-query", "SELECT 1", path}, "cannot be used together"},
		{"bad output", []string{"-output", "xml", path}, "unsupported output format: xml"},
		{"bad extension", []string{writeFile(t, "data.txt", "a\n1\n")}, "unsupported file format: .txt"},
		{"unknown column", []string{"-where", "wings > 2", path}, "query step 1"},
		{"bad log level", []string{"-log-level", "loud", path}, "LogLevel must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRunVersionAndHelp(t *testing.T) {
	out, err := runCLI(t, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:")

	_, err = runCLI(t, "-h")
	assert.ErrorIs(t, err, flag.ErrHelp)
}
