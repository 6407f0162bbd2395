package host

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noiddea/dash/sqlproxy/types"
	"github.com/noiddea/dash/sqlproxy/value"
)

// preparer is satisfied by both *sqlx.Conn and *sqlx.Tx, so the same
// statement helpers serve standalone calls and transaction members.
type preparer interface {
	PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
}

// queryRows prepares sql, binds params and reads the whole result set into
// row objects keyed by column name. Values come back as SQLite stored them,
// whatever the declared type of their column.
func queryRows(ctx context.Context, db preparer, sql string, params []value.Value) ([]value.Value, error) {
	args := value.ToNativeParams(params)

	query := sql
	var columns []string
	if rewritten, ok := storedValueQuery(ctx, db, sql, args); ok {
		if names, err := columnNames(ctx, db, sql, args); err == nil {
			query, columns = rewritten, names
		}
	}

	stmt, err := db.PreparexContext(ctx, query)
	if err != nil {
		return nil, wrap(ErrPrepare, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryxContext(ctx, args...)
	if err != nil {
		return nil, wrap(ErrQuery, err)
	}
	defer rows.Close()

	if columns == nil {
		if columns, err = rows.Columns(); err != nil {
			return nil, wrap(ErrQuery, err)
		}
	}

	results := []value.Value{}
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, wrap(ErrRowDecode, err)
		}
		row, err := value.FromNativeRow(raw, columns)
		if err != nil {
			return nil, wrap(ErrRowDecode, err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQuery, err)
	}
	return results, nil
}

// execStatement prepares and runs a single write or DDL statement.
func execStatement(ctx context.Context, db preparer, sql string, params []value.Value) (types.ExecResult, error) {
	stmt, err := db.PreparexContext(ctx, sql)
	if err != nil {
		return types.ExecResult{}, wrap(ErrPrepare, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, value.ToNativeParams(params)...)
	if err != nil {
		return types.ExecResult{}, wrap(ErrExecute, err)
	}

	changes, err := res.RowsAffected()
	if err != nil {
		return types.ExecResult{}, wrap(ErrExecute, err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return types.ExecResult{}, wrap(ErrExecute, err)
	}
	return types.ExecResult{Changes: changes, LastInsertRowid: lastID}, nil
}

// runTransaction executes statements in order inside tx. Reads contribute
// their rows, writes contribute null.
func runTransaction(ctx context.Context, tx *sqlx.Tx, statements []types.QueryRequest) ([]value.Value, error) {
	results := make([]value.Value, 0, len(statements))
	for i, st := range statements {
		if IsReadStatement(st.SQL) {
			rows, err := queryRows(ctx, tx, st.SQL, st.Params)
			if err != nil {
				return nil, fmt.Errorf("%w: statement %d: %w", ErrTransactionAbort, i, err)
			}
			results = append(results, value.Array(rows...))
			continue
		}
		if _, err := execStatement(ctx, tx, st.SQL, st.Params); err != nil {
			return nil, fmt.Errorf("%w: statement %d: %w", ErrTransactionAbort, i, err)
		}
		results = append(results, value.Null())
	}
	return results, nil
}
