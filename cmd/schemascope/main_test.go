package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemascope/internal/database"
	litedriver "github.com/koustreak/schemascope/internal/database/sqlite"
	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/inspector"
)

const fixture = `
CREATE TABLE authors (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE books (
	id        INTEGER PRIMARY KEY,
	author_id INTEGER REFERENCES authors(id),
	title     TEXT,
	pages     INTEGER
);
INSERT INTO authors (id, name) VALUES (1, 'Le Guin'), (2, 'Lem');
INSERT INTO books (author_id, title, pages) VALUES (1, 'The Dispossessed', 387), (2, 'Solaris', 204), (2, 'Fiasco', 322);
`

func fixtureDB(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "library.db")
	cfg := database.DefaultConfig(path)
	cfg.Driver = database.DriverSQLite
	db, err := litedriver.New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(ctx, fixture)
	require.NoError(t, err)
	return path
}

// execute runs the CLI against the fixture database and returns stdout.
func execute(t *testing.T, path string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--driver", "sqlite", "--dsn", path, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTablesCommand(t *testing.T) {
	path := fixtureDB(t)

	out, err := execute(t, path, "tables")
	require.NoError(t, err)

	var tables []inspector.Table
	require.NoError(t, json.Unmarshal([]byte(out), &tables))
	assert.Len(t, tables, 2)
}

func TestColumnsCommand(t *testing.T) {
	path := fixtureDB(t)

	out, err := execute(t, path, "columns", "books")
	require.NoError(t, err)
	var cols []inspector.Column
	require.NoError(t, json.Unmarshal([]byte(out), &cols))
	require.Len(t, cols, 4)
	assert.Equal(t, "author_id", cols[1].Name)
	require.NotNil(t, cols[1].ForeignKeyTable)
	assert.Equal(t, "authors", *cols[1].ForeignKeyTable)

	out, err = execute(t, path, "columns", "--names")
	require.NoError(t, err)
	var refs []inspector.ColumnRef
	require.NoError(t, json.Unmarshal([]byte(out), &refs))
	assert.Len(t, refs, 6)
}

func TestColumnAndExistsCommands(t *testing.T) {
	path := fixtureDB(t)

	out, err := execute(t, path, "column", "books", "title")
	require.NoError(t, err)
	var col inspector.Column
	require.NoError(t, json.Unmarshal([]byte(out), &col))
	assert.Equal(t, "text", col.DataType)

	_, err = execute(t, path, "column", "books", "isbn")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))

	out, err = execute(t, path, "exists", "books", "pages")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = execute(t, path, "exists", "magazines")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestKeyCommands(t *testing.T) {
	path := fixtureDB(t)

	out, err := execute(t, path, "primary-key", "authors")
	require.NoError(t, err)
	assert.Equal(t, "\"id\"\n", out)

	out, err = execute(t, path, "-o", "yaml", "foreign-keys", "books")
	require.NoError(t, err)
	assert.Contains(t, out, "foreign_key_table: authors")
}

func TestOverviewAndDescribeCommands(t *testing.T) {
	path := fixtureDB(t)

	out, err := execute(t, path, "overview")
	require.NoError(t, err)
	var ov inspector.Overview
	require.NoError(t, json.Unmarshal([]byte(out), &ov))
	assert.Equal(t, []string{"authors", "books"}, ov.Tables())

	out, err = execute(t, path, "describe")
	require.NoError(t, err)
	var d inspector.Description
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, "sqlite", d.Driver)
	assert.Len(t, d.ForeignKeys, 1)
}

func TestProvisionCommand_NoHelpers(t *testing.T) {
	path := fixtureDB(t)

	out, err := execute(t, path, "provision")
	require.NoError(t, err)
	assert.Contains(t, out, `"provisioned": false`)
}

func TestSampleCommand(t *testing.T) {
	path := fixtureDB(t)

	out, err := execute(t, path, "sample", "books",
		"--columns", "title,pages", "--where", "pages>=300", "--order-by", "pages", "--desc")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "The Dispossessed", rows[0]["title"])
	assert.Equal(t, "Fiasco", rows[1]["title"])
	assert.NotContains(t, rows[0], "id")

	_, err = execute(t, path, "sample", "books", "--where", "isbn=1")
	assert.True(t, errs.IsInvalidInput(err))

	_, err = execute(t, path, "sample", "magazines")
	assert.True(t, errs.IsNotFound(err))
}

func TestSnapshotCommand_RequiresEndpoint(t *testing.T) {
	path := fixtureDB(t)

	_, err := execute(t, path, "snapshot", "list", "library")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestInvalidFlags(t *testing.T) {
	path := fixtureDB(t)

	_, err := execute(t, path, "-o", "xml", "tables")
	assert.True(t, errs.IsInvalidInput(err))

	_, err = execute(t, path, "--log-level", "loud", "tables")
	assert.Error(t, err)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--driver", "oracle", "--dsn", "x", "tables"})
	assert.Error(t, cmd.Execute())
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		raw          string
		col, op, val string
		wantErr      bool
	}{
		{raw: "status=paid", col: "status", op: "=", val: "paid"},
		{raw: "pages>=300", col: "pages", op: ">=", val: "300"},
		{raw: "pages <= 10", col: "pages", op: "<=", val: "10"},
		{raw: "kind!=draft", col: "kind", op: "!=", val: "draft"},
		{raw: "note=a=b", col: "note", op: "=", val: "a=b"},
		{raw: "pages", wantErr: true},
		{raw: "=5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			col, op, val, err := parseFilter(tt.raw)
			if tt.wantErr {
				assert.True(t, errs.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{tt.col, tt.op, tt.val}, []string{col, op, val})
		})
	}
}

func TestDriversCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"drivers"})
	require.NoError(t, cmd.Execute())

	var drivers []string
	require.NoError(t, json.Unmarshal(out.Bytes(), &drivers))
	assert.ElementsMatch(t, []string{"informix", "mssql", "mysql", "postgres", "sqlite"}, drivers)
}
