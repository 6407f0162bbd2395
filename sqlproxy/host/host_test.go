package host

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noiddea/dash/database"
	"github.com/noiddea/dash/sqlproxy/types"
	"github.com/noiddea/dash/sqlproxy/value"
)

type staticDir string

func (d staticDir) AppDataDir() (string, error) { return string(d), nil }

func newTestHost(t *testing.T) (*SQLHost, *database.Manager) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "com.example.app")
	m := database.NewManager(database.Config{}, staticDir(dir), nil)
	t.Cleanup(func() { _ = m.Close() })
	return NewSQLHost(m, nil), m
}

func mustExec(t *testing.T, h *SQLHost, sql string) {
	t.Helper()
	env := h.Exec(context.Background(), sql)
	require.True(t, env.Success, "exec %q: %v", sql, env.Err())
}

func field(t *testing.T, row value.Value, name string) value.Value {
	t.Helper()
	obj, ok := row.AsObject()
	require.True(t, ok, "row is %s", row.Kind())
	v, ok := obj.Get(name)
	require.True(t, ok, "row has no column %q", name)
	return v
}

func count(t *testing.T, h *SQLHost, table string) int64 {
	t.Helper()
	env := h.Query(context.Background(), "SELECT COUNT(*) AS n FROM "+table, nil)
	require.True(t, env.Success, "count: %v", env.Err())
	require.Len(t, *env.Data, 1)
	n, ok := field(t, (*env.Data)[0], "n").AsInt()
	require.True(t, ok)
	return n
}

func TestScalarRoundTrip(t *testing.T) {
	h, _ := newTestHost(t)
	mustExec(t, h, "CREATE TABLE t (v)")

	cases := []struct {
		name string
		in   value.Value
		want value.Value
	}{
		{"null", value.Null(), value.Null()},
		{"int", value.Int(42), value.Int(42)},
		{"negative int", value.Int(-9007199254740993), value.Int(-9007199254740993)},
		{"float", value.Float(1.5), value.Float(1.5)},
		{"string", value.String("héllo"), value.String("héllo")},
		{"empty string", value.String(""), value.String("")},
		// SQLite stores booleans as integers.
		{"bool", value.Bool(true), value.Int(1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mustExec(t, h, "DELETE FROM t")

			ins := h.Execute(context.Background(), "INSERT INTO t (v) VALUES (?)", []value.Value{tc.in})
			require.True(t, ins.Success, "insert: %v", ins.Err())

			env := h.Query(context.Background(), "SELECT v FROM t", nil)
			require.True(t, env.Success, "query: %v", env.Err())
			require.Len(t, *env.Data, 1)
			got := field(t, (*env.Data)[0], "v")
			assert.True(t, value.Equal(tc.want, got), "want %s, got %s", tc.want, got)
		})
	}
}

func TestCompositeParamsReadBackAsText(t *testing.T) {
	h, _ := newTestHost(t)
	mustExec(t, h, "CREATE TABLE t (a TEXT, o TEXT)")

	arr, err := value.Parse([]byte(`[1,"two",null]`))
	require.NoError(t, err)
	obj, err := value.Parse([]byte(`{"b":1,"a":[true]}`))
	require.NoError(t, err)

	ins := h.Execute(context.Background(), "INSERT INTO t (a, o) VALUES (?, ?)", []value.Value{arr, obj})
	require.True(t, ins.Success, "insert: %v", ins.Err())

	env := h.Query(context.Background(), "SELECT a, o FROM t", nil)
	require.True(t, env.Success)
	row := (*env.Data)[0]
	assert.Equal(t, value.String(`[1,"two",null]`), field(t, row, "a"))
	assert.Equal(t, value.String(`{"b":1,"a":[true]}`), field(t, row, "o"))
}

func TestQueryBlobPlaceholder(t *testing.T) {
	h, _ := newTestHost(t)

	env := h.Query(context.Background(), "SELECT X'DEADBEEF' AS b", nil)
	require.True(t, env.Success, "query: %v", env.Err())
	assert.Equal(t, value.String("[BLOB:4 bytes]"), field(t, (*env.Data)[0], "b"))
}

func TestQueryPreservesColumnOrder(t *testing.T) {
	h, _ := newTestHost(t)

	env := h.Query(context.Background(), "SELECT 1 AS z, 2 AS a, 3 AS m", nil)
	require.True(t, env.Success)
	obj, _ := (*env.Data)[0].AsObject()
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())
}

func TestQueryDuplicateColumnLastWins(t *testing.T) {
	h, _ := newTestHost(t)

	env := h.Query(context.Background(), "SELECT 1 AS x, 2 AS x", nil)
	require.True(t, env.Success)
	assert.Equal(t, value.Int(2), field(t, (*env.Data)[0], "x"))
}

func TestQueryEmptyResult(t *testing.T) {
	h, _ := newTestHost(t)
	mustExec(t, h, "CREATE TABLE t (v)")

	env := h.Query(context.Background(), "SELECT v FROM t", nil)
	require.True(t, env.Success)
	require.NotNil(t, env.Data)
	assert.Empty(t, *env.Data)

	out, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[],"error":null}`, string(out))
}

func TestQueryMalformedSQL(t *testing.T) {
	h, _ := newTestHost(t)

	env := h.Query(context.Background(), "SELEC nonsense FROM", nil)
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)
	assert.True(t, strings.HasPrefix(*env.Error, "SQL prepare error: "), *env.Error)
}

func TestQueryParamCountMismatch(t *testing.T) {
	h, _ := newTestHost(t)

	env := h.Query(context.Background(), "SELECT ? AS a, ? AS b", []value.Value{value.Int(1)})
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "parameter count mismatch: expected 2, got 1")
}

func TestExecuteReportsChangesAndRowid(t *testing.T) {
	h, _ := newTestHost(t)
	mustExec(t, h, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)")

	first := h.Execute(context.Background(), "INSERT INTO t (name) VALUES (?)", []value.Value{value.String("a")})
	require.True(t, first.Success)
	assert.Equal(t, types.ExecResult{Changes: 1, LastInsertRowid: 1}, *first.Data)

	second := h.Execute(context.Background(), "INSERT INTO t (name) VALUES (?), (?)",
		[]value.Value{value.String("b"), value.String("c")})
	require.True(t, second.Success)
	assert.Equal(t, types.ExecResult{Changes: 2, LastInsertRowid: 3}, *second.Data)

	upd := h.Execute(context.Background(), "UPDATE t SET name = upper(name)", nil)
	require.True(t, upd.Success)
	assert.Equal(t, int64(3), upd.Data.Changes)

	out, err := json.Marshal(first)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"changes":1,"lastInsertRowid":1},"error":null}`, string(out))
}

func TestExecuteConstraintViolation(t *testing.T) {
	h, _ := newTestHost(t)
	mustExec(t, h, `
		CREATE TABLE parent (id INTEGER PRIMARY KEY);
		CREATE TABLE child (id INTEGER PRIMARY KEY, parent_id INTEGER REFERENCES parent(id));
	`)

	env := h.Execute(context.Background(), "INSERT INTO child (parent_id) VALUES (?)", []value.Value{value.Int(99)})
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.True(t, strings.HasPrefix(*env.Error, "SQL execute error: "), *env.Error)
	assert.Contains(t, strings.ToUpper(*env.Error), "FOREIGN KEY")
}

func TestExecScript(t *testing.T) {
	h, _ := newTestHost(t)

	env := h.Exec(context.Background(), `
		CREATE TABLE t (v INTEGER);
		INSERT INTO t VALUES (1);
		INSERT INTO t VALUES (2);
	`)
	require.True(t, env.Success, "exec: %v", env.Err())
	assert.Nil(t, env.Data)
	assert.Equal(t, int64(2), count(t, h, "t"))

	bad := h.Exec(context.Background(), "CREATE TABLE broken (")
	assert.False(t, bad.Success)
	assert.True(t, strings.HasPrefix(*bad.Error, "SQL exec error: "), *bad.Error)
}

func TestTransactionEmpty(t *testing.T) {
	h, _ := newTestHost(t)

	env := h.Transaction(context.Background(), []types.QueryRequest{})
	require.True(t, env.Success, "transaction: %v", env.Err())
	require.NotNil(t, env.Data)
	assert.Empty(t, *env.Data)
}

func TestTransactionMixedStatements(t *testing.T) {
	h, _ := newTestHost(t)
	mustExec(t, h, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)")

	env := h.Transaction(context.Background(), []types.QueryRequest{
		{SQL: "INSERT INTO t (name) VALUES (?)", Params: []value.Value{value.String("ada")}},
		{SQL: "SELECT * FROM t", Params: []value.Value{}},
	})
	require.True(t, env.Success, "transaction: %v", env.Err())

	out, err := json.Marshal(env.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `[null, [{"id":1,"name":"ada"}]]`, string(out))
}

func TestTransactionClassifiesCTEAsRead(t *testing.T) {
	h, _ := newTestHost(t)

	env := h.Transaction(context.Background(), []types.QueryRequest{
		{SQL: "  with x(n) AS (SELECT 7) SELECT n FROM x"},
	})
	require.True(t, env.Success, "transaction: %v", env.Err())
	out, err := json.Marshal(env.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `[[{"n":7}]]`, string(out))
}

func TestTransactionCommentedReadReturnsRows(t *testing.T) {
	h, _ := newTestHost(t)

	env := h.Transaction(context.Background(), []types.QueryRequest{
		{SQL: "-- totals\n/* for the header */ SELECT 3 AS n"},
	})
	require.True(t, env.Success, "transaction: %v", env.Err())
	out, err := json.Marshal(env.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `[[{"n":3}]]`, string(out))
}

func TestTransactionRollsBackOnFailure(t *testing.T) {
	h, _ := newTestHost(t)
	mustExec(t, h, "CREATE TABLE t (v INTEGER NOT NULL)")
	mustExec(t, h, "INSERT INTO t VALUES (1)")

	env := h.Transaction(context.Background(), []types.QueryRequest{
		{SQL: "INSERT INTO t VALUES (?)", Params: []value.Value{value.Int(2)}},
		{SQL: "INSERT INTO t VALUES (?)", Params: []value.Value{value.Null()}},
		{SQL: "INSERT INTO t VALUES (?)", Params: []value.Value{value.Int(3)}},
	})
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "statement 1")
	assert.Contains(t, *env.Error, "SQL execute error")

	assert.Equal(t, int64(1), count(t, h, "t"))

	// The connection is usable after the rollback.
	ok := h.Transaction(context.Background(), []types.QueryRequest{
		{SQL: "INSERT INTO t VALUES (?)", Params: []value.Value{value.Int(4)}},
	})
	require.True(t, ok.Success, "transaction: %v", ok.Err())
	assert.Equal(t, int64(2), count(t, h, "t"))
}

func TestFirstAccessCreatesDatabase(t *testing.T) {
	h, m := newTestHost(t)

	exists, err := m.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	env := h.Query(context.Background(), "SELECT 1 AS one", nil)
	require.True(t, env.Success)

	exists, err = m.Exists()
	require.NoError(t, err)
	assert.True(t, exists)
}

type failingAcquirer struct{}

func (failingAcquirer) Acquire(context.Context) (*database.Handle, error) {
	return nil, &database.InitError{Stage: database.StageJournalMode, Err: database.ErrWALUnavailable}
}

func TestConnectionInitFailureIsEnvelope(t *testing.T) {
	h := NewSQLHost(failingAcquirer{}, nil)

	env := h.Query(context.Background(), "SELECT 1", nil)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.True(t, strings.HasPrefix(*env.Error, "could not set WAL mode"), *env.Error)

	tx := h.Transaction(context.Background(), nil)
	assert.False(t, tx.Success)
}

func TestConcurrentStatementsSerialize(t *testing.T) {
	h, _ := newTestHost(t)
	mustExec(t, h, "CREATE TABLE t (v INTEGER)")

	const perWriter = 20000
	insert := `WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM c WHERE x < ?)
		INSERT INTO t SELECT x FROM c`

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			env := h.Execute(context.Background(), insert, []value.Value{value.Int(perWriter)})
			errs[i] = env.Err()
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(2*perWriter), count(t, h, "t"))
}

func TestHandleRequest(t *testing.T) {
	h, _ := newTestHost(t)
	ctx := context.Background()

	out, err := h.HandleRequest(ctx, []byte(`{"command":"exec","sql":"CREATE TABLE t (id INTEGER PRIMARY KEY, n REAL)"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":null,"error":null}`, string(out))

	out, err = h.HandleRequest(ctx, []byte(`{"command":"execute","sql":"INSERT INTO t (n) VALUES (?)","params":[2.5]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"changes":1,"lastInsertRowid":1},"error":null}`, string(out))

	out, err = h.HandleRequest(ctx, []byte(`{"command":"query","sql":"SELECT id, n FROM t WHERE id = ?","params":[1]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[{"id":1,"n":2.5}],"error":null}`, string(out))

	out, err = h.HandleRequest(ctx, []byte(`{"command":"transaction","statements":[
		{"sql":"UPDATE t SET n = ?","params":[1]},
		{"sql":"SELECT n FROM t"}
	]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[null,[{"n":1.0}]],"error":null}`, string(out))
}

func TestHandleRequestErrors(t *testing.T) {
	h, _ := newTestHost(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		payload string
		want    string
	}{
		{"unknown command", `{"command":"vacuum"}`, "unknown command: vacuum"},
		{"bad json", `{"command":`, "failed to unmarshal request"},
		{"missing sql", `{"command":"transaction","statements":[{"params":[]}]}`, "missing 'sql' in query object"},
		{"integer overflow", `{"command":"query","sql":"SELECT ?","params":[9223372036854775808]}`, "failed to unmarshal request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := h.HandleRequest(ctx, []byte(tc.payload))
			require.NoError(t, err)

			var env types.Envelope[types.Unit]
			require.NoError(t, json.Unmarshal(out, &env))
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Contains(t, *env.Error, tc.want)
		})
	}
}

func TestErrorsWrapSentinels(t *testing.T) {
	err := wrap(ErrQuery, errors.New("sql: expected 3 arguments, got 1"))
	assert.True(t, errors.Is(err, ErrQuery))
	assert.True(t, errors.Is(err, ErrParamCount))
	assert.Equal(t, "SQL query error: parameter count mismatch: expected 3, got 1", err.Error())

	err = wrap(ErrPrepare, errors.New("near \"SELEC\": syntax error"))
	assert.True(t, errors.Is(err, ErrPrepare))
	assert.False(t, errors.Is(err, ErrParamCount))
}
