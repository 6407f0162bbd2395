package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noiddea/dash/commands"
	"github.com/noiddea/dash/config"
	"github.com/noiddea/dash/database"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := commands.NewRegistry()
	reg.Register("echo", func(_ context.Context, args json.RawMessage) (any, error) {
		var v map[string]any
		if err := json.Unmarshal(args, &v); err != nil {
			return nil, fmt.Errorf("%w: %w", commands.ErrInvalidArgs, err)
		}
		return v, nil
	})
	reg.Register("nothing", func(context.Context, json.RawMessage) (any, error) {
		return nil, nil
	})
	reg.Register("fail", func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("Script not found at: /x/reset-db.cjs")
	})
	reg.Register("explode", func(context.Context, json.RawMessage) (any, error) {
		panic("boom")
	})
	reg.Register("cancelled", func(ctx context.Context, _ json.RawMessage) (any, error) {
		return ctx.Err() == nil, nil
	})

	s, err := New(Deps{
		Config:   config.ServerConfig{AllowedOrigins: []string{"app://localhost"}},
		Commands: reg,
		Version:  "9.9.9",
	})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresRegistry(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestInvoke(t *testing.T) {
	h := newTestServer(t).Handler()

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"result", "/invoke/echo", `{"a":1}`, http.StatusOK, `{"a":1}`},
		{"null result", "/invoke/nothing", ``, http.StatusOK, `null`},
		{"command error", "/invoke/fail", `{}`, http.StatusUnprocessableEntity,
			`{"error":"Script not found at: /x/reset-db.cjs","code":"command_failed"}`},
		{"unknown command", "/invoke/nope", `{}`, http.StatusNotFound,
			`{"error":"unknown command: nope","code":"not_found"}`},
		{"invalid args", "/invoke/echo", `[1`, http.StatusBadRequest, ``},
		{"panic", "/invoke/explode", `{}`, http.StatusInternalServerError,
			`{"error":"internal server error","code":"internal_error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestInvokeRequiresPost(t *testing.T) {
	rec := do(t, newTestServer(t).Handler(), http.MethodGet, "/invoke/echo", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInvokeDetachesRequestContext(t *testing.T) {
	h := newTestServer(t).Handler()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/invoke/cancelled", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true\n", rec.Body.String())
}

func TestStatus(t *testing.T) {
	rec := do(t, newTestServer(t).Handler(), http.MethodGet, "/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "9.9.9", resp.Version)
	assert.Equal(t, []string{"cancelled", "echo", "explode", "fail", "nothing"}, resp.Commands)
}

type fakeDatabase struct {
	state database.State
	err   error
}

func (f fakeDatabase) State() (database.State, error) { return f.state, f.err }
func (f fakeDatabase) Driver() string { return "sqlite" }

func TestStatusReportsDatabase(t *testing.T) {
	assert.Nil(t, statusOf(t, newTestServer(t)).Database, "no database configured")

	s := newTestServer(t)
	s.db = fakeDatabase{
		state: database.StateFailedOpen,
		err:   &database.InitError{Stage: database.StageJournalMode, Err: database.ErrWALUnavailable},
	}
	resp := statusOf(t, s)
	require.NotNil(t, resp.Database)
	assert.Equal(t, "failed_open", resp.Database.State)
	assert.Equal(t, "sqlite", resp.Database.Driver)
	assert.Equal(t, "could not set WAL mode: write-ahead logging is not available", resp.Database.Error)

	s.db = fakeDatabase{state: database.StateReady}
	resp = statusOf(t, s)
	assert.Equal(t, "ready", resp.Database.State)
	assert.Empty(t, resp.Database.Error)
}

func statusOf(t *testing.T, s *Server) statusResponse {
	t.Helper()
	rec := do(t, s.Handler(), http.MethodGet, "/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodGet, "/status", "", nil)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	rec = do(t, h, http.MethodGet, "/status", "", map[string]string{"X-Request-ID": "abc"})
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestCrossOrigin(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodOptions, "/invoke/echo", "", map[string]string{"Origin": "app://localhost"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "app://localhost", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodPost, "/invoke/echo", `{}`, map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBodyLimit(t *testing.T) {
	h := newTestServer(t).Handler()
	big := `{"a":"` + strings.Repeat("x", maxRequestBodySize) + `"}`

	rec := do(t, h, http.MethodPost, "/invoke/echo", big, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	s := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/status")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenRetriesUntilPortFree(t *testing.T) {
	held, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := held.Addr().String()

	time.AfterFunc(300*time.Millisecond, func() { _ = held.Close() })

	ln, err := listen(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, addr, ln.Addr().String())
	_ = ln.Close()
}
