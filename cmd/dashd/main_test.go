package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noiddea/dash/sqlproxy/value"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCLIRoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := []string{"--data-dir", dir, "--log-level", "error"}

	_, err := runCLI(t, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);", append(base, "exec")...)
	require.NoError(t, err)

	out, err := runCLI(t, "", append(base, "execute", "INSERT INTO t (name) VALUES (?)", "--params", `["ada"]`)...)
	require.NoError(t, err)
	assert.Equal(t, "changes: 1, last insert rowid: 1\n", out)

	out, err = runCLI(t, "", append(base, "query", "SELECT id, name FROM t", "--format", "json")...)
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "ada", rows[0]["name"])

	out, err = runCLI(t, "", append(base, "path")...)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "database.db")+"\n", out)
}

func TestCLIRequest(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, `{"command":"query","sql":"SELECT 1 AS one"}`,
		"--data-dir", dir, "--log-level", "error", "request")
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[{"one":1}],"error":null}`, out)
}

func TestCLIQueryErrorSurfaces(t *testing.T) {
	_, err := runCLI(t, "", "--data-dir", t.TempDir(), "--log-level", "error", "query", "SELEC nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SQL prepare error")
}

func TestCLIBadParams(t *testing.T) {
	_, err := runCLI(t, "", "--data-dir", t.TempDir(), "query", "SELECT ?", "--params", "{")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--params")
}

func TestRenderTable(t *testing.T) {
	obj := value.NewObject()
	obj.Set("id", value.Int(1))
	obj.Set("name", value.Null())

	var buf bytes.Buffer
	require.NoError(t, renderRows(&buf, []value.Value{value.ObjectOf(obj)}, "table"))
	out := buf.String()
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(1 rows)")
	assert.Less(t, strings.Index(out, "ID"), strings.Index(out, "NAME"))
}

func TestRenderEmptyAndUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRows(&buf, nil, "table"))
	assert.Equal(t, "(0 rows)\n", buf.String())

	assert.Error(t, renderRows(&buf, nil, "csv"))
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:4317", baseURL("127.0.0.1:4317"))
	assert.Equal(t, "http://127.0.0.1:4317", baseURL(":4317"))
	assert.Equal(t, "https://example.test", baseURL("https://example.test"))
}
