package host

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noiddea/dash/database"
	"github.com/noiddea/dash/logging"
	"github.com/noiddea/dash/sqlproxy/types"
	"github.com/noiddea/dash/sqlproxy/value"
)

// Acquirer hands out the shared connection handle. *database.Manager
// implements it.
type Acquirer interface {
	Acquire(ctx context.Context) (*database.Handle, error)
}

// SQLHost executes SQL requests from the UI against the application
// database. Every method returns an envelope; failures never escape as Go
// errors.
type SQLHost struct {
	db     Acquirer
	logger *logging.Logger
}

// NewSQLHost creates a new SQLHost instance.
func NewSQLHost(db Acquirer, logger *logging.Logger) *SQLHost {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SQLHost{db: db, logger: logger.With("component", "sqlhost")}
}

// withConn acquires the shared handle, opening the database on first use, and
// runs fn while holding it.
func (h *SQLHost) withConn(ctx context.Context, fn func(conn *sqlx.Conn) error) error {
	handle, err := h.db.Acquire(ctx)
	if err != nil {
		return err
	}
	return handle.Do(ctx, fn)
}

// Query runs a single read statement and returns its rows as objects keyed by
// column name. Any failure discards the rows read so far.
func (h *SQLHost) Query(ctx context.Context, sql string, params []value.Value) types.Envelope[[]value.Value] {
	var rows []value.Value
	err := h.withConn(ctx, func(conn *sqlx.Conn) error {
		var err error
		rows, err = queryRows(ctx, conn, sql, params)
		return err
	})
	if err != nil {
		h.logger.Debug("query failed", "error", err)
		return types.Failure[[]value.Value](err)
	}
	return types.Success(rows)
}

// Execute runs a single write or DDL statement.
func (h *SQLHost) Execute(ctx context.Context, sql string, params []value.Value) types.Envelope[types.ExecResult] {
	var res types.ExecResult
	err := h.withConn(ctx, func(conn *sqlx.Conn) error {
		var err error
		res, err = execStatement(ctx, conn, sql, params)
		return err
	})
	if err != nil {
		h.logger.Debug("execute failed", "error", err)
		return types.Failure[types.ExecResult](err)
	}
	return types.Success(res)
}

// Exec runs a script of one or more statements separated by semicolons. It
// takes no parameters and returns no data. Statements before a failing one
// stay applied unless the script manages its own transaction.
func (h *SQLHost) Exec(ctx context.Context, sql string) types.Envelope[types.Unit] {
	err := h.withConn(ctx, func(conn *sqlx.Conn) error {
		if _, err := conn.ExecContext(ctx, sql); err != nil {
			return wrap(ErrExec, err)
		}
		return nil
	})
	if err != nil {
		h.logger.Debug("exec failed", "error", err)
		return types.Failure[types.Unit](err)
	}
	return types.UnitSuccess()
}

// Transaction runs statements atomically in the given order. The result holds
// one entry per statement: an array of rows for reads, null for writes. If any
// statement fails the transaction is rolled back and nothing is returned.
func (h *SQLHost) Transaction(ctx context.Context, statements []types.QueryRequest) types.Envelope[[]value.Value] {
	results, err := h.transaction(ctx, statements)
	if err != nil {
		h.logger.Debug("transaction failed", "statements", len(statements), "error", err)
		return types.Failure[[]value.Value](err)
	}
	return types.Success(results)
}

func (h *SQLHost) transaction(ctx context.Context, statements []types.QueryRequest) ([]value.Value, error) {
	var results []value.Value
	err := h.withConn(ctx, func(conn *sqlx.Conn) error {
		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return wrap(ErrTransactionStart, err)
		}

		results, err = runTransaction(ctx, tx, statements)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				h.logger.Warn("rollback failed", "error", rbErr)
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return wrap(ErrTransactionCommit, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// HandleRequest processes a raw JSON request and returns the JSON envelope.
// The command field selects query, execute, exec or transaction. The returned
// error is set only when the envelope itself cannot be encoded.
func (h *SQLHost) HandleRequest(ctx context.Context, requestPayload []byte) ([]byte, error) {
	var req types.SQLRequest
	if err := json.Unmarshal(requestPayload, &req); err != nil {
		return json.Marshal(types.Failure[types.Unit](fmt.Errorf("failed to unmarshal request: %w", err)))
	}

	var resp any
	switch req.Command {
	case "query":
		resp = h.Query(ctx, req.SQL, req.Params)
	case "execute":
		resp = h.Execute(ctx, req.SQL, req.Params)
	case "exec":
		resp = h.Exec(ctx, req.SQL)
	case "transaction":
		resp = h.Transaction(ctx, req.Statements)
	default:
		resp = types.Failure[types.Unit](fmt.Errorf("%w: %s", ErrUnknownCommand, req.Command))
	}

	return json.Marshal(resp)
}
