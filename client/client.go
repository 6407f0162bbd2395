package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noiddea/dash/sqlproxy/types"
	"github.com/noiddea/dash/sqlproxy/value"
)

// Client calls commands on a running dashd server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the server at baseURL, e.g. http://127.0.0.1:4317.
func New(baseURL string, opts ...Option) *Client {
	// No overall timeout: transactions may run for a long time.
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status is the server's health report.
type Status struct {
	Status        string          `json:"status"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Commands      []string        `json:"commands"`
	Database      *DatabaseStatus `json:"database,omitempty"`
}

// DatabaseStatus is the state of the server's database connection. Error is
// set when the last open attempt failed.
type DatabaseStatus struct {
	State  string `json:"state"`
	Driver string `json:"driver"`
	Error  string `json:"error,omitempty"`
}

// Uptime returns how long the server has been running.
func (s Status) Uptime() time.Duration {
	return time.Duration(s.UptimeSeconds) * time.Second
}

// Status fetches GET /status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var s Status
	if err := c.do(req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Invoke calls a command with args (marshalled to a JSON object, nil for
// none) and decodes the result into out (ignored when nil).
func (c *Client) Invoke(ctx context.Context, command string, args, out any) error {
	body := []byte("{}")
	if args != nil {
		var err error
		if body, err = json.Marshal(args); err != nil {
			return fmt.Errorf("failed to encode arguments: %w", err)
		}
	}

	u := c.baseURL + "/invoke/" + url.PathEscape(command)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newNetworkError("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return wrapHTTPError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newNetworkError("failed to decode response", err)
	}
	return nil
}

type statement struct {
	SQL    string        `json:"sql"`
	Params []value.Value `json:"params"`
}

func newStatement(sql string, params []value.Value) statement {
	if params == nil {
		params = []value.Value{}
	}
	return statement{SQL: sql, Params: params}
}

// Query runs a read statement and returns its rows.
func (c *Client) Query(ctx context.Context, sql string, params ...value.Value) (types.Envelope[[]value.Value], error) {
	var env types.Envelope[[]value.Value]
	err := c.Invoke(ctx, "db_query", newStatement(sql, params), &env)
	return env, err
}

// Execute runs a single write statement.
func (c *Client) Execute(ctx context.Context, sql string, params ...value.Value) (types.Envelope[types.ExecResult], error) {
	var env types.Envelope[types.ExecResult]
	err := c.Invoke(ctx, "db_execute", newStatement(sql, params), &env)
	return env, err
}

// Exec runs a parameterless script of one or more statements.
func (c *Client) Exec(ctx context.Context, script string) (types.Envelope[types.Unit], error) {
	var env types.Envelope[types.Unit]
	err := c.Invoke(ctx, "db_exec", newStatement(script, nil), &env)
	return env, err
}

// Transaction runs the statements atomically. Each element of the result is
// null for a write and the row list for a read.
func (c *Client) Transaction(ctx context.Context, statements []types.QueryRequest) (types.Envelope[[]value.Value], error) {
	queries := make([]statement, len(statements))
	for i, s := range statements {
		queries[i] = newStatement(s.SQL, s.Params)
	}
	var env types.Envelope[[]value.Value]
	err := c.Invoke(ctx, "db_transaction", map[string]any{"queries": queries}, &env)
	return env, err
}

// DatabasePath returns where the database file lives.
func (c *Client) DatabasePath(ctx context.Context) (string, error) {
	var p string
	err := c.Invoke(ctx, "db_get_path", nil, &p)
	return p, err
}

// HashPassword returns a bcrypt hash of password.
func (c *Client) HashPassword(ctx context.Context, password string) (string, error) {
	var env types.Envelope[struct {
		Hash string `json:"hash"`
	}]
	if err := c.Invoke(ctx, "auth_hash_password", map[string]string{"password": password}, &env); err != nil {
		return "", err
	}
	if err := env.Err(); err != nil {
		return "", err
	}
	return env.Data.Hash, nil
}

// VerifyPassword checks password against a hash from HashPassword.
func (c *Client) VerifyPassword(ctx context.Context, password, hash string) (bool, error) {
	var env types.Envelope[struct {
		IsValid bool `json:"isValid"`
	}]
	args := map[string]string{"password": password, "hash": hash}
	if err := c.Invoke(ctx, "auth_verify_password", args, &env); err != nil {
		return false, err
	}
	if err := env.Err(); err != nil {
		return false, err
	}
	return env.Data.IsValid, nil
}

// Version returns the application version.
func (c *Client) Version(ctx context.Context) (string, error) {
	var v string
	err := c.Invoke(ctx, "app_get_version", nil, &v)
	return v, err
}
