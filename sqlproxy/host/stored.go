package host

import (
	"context"
	"fmt"
	"strings"
)

// convertedDeclTypes are the declared column types that the drivers
// reinterpret on read. Both turn date text into time.Time; go-sqlite3 also
// turns integers in date columns into time.Time and integers in BOOLEAN
// columns into bool.
var convertedDeclTypes = map[string]bool{
	"DATE":      true,
	"DATETIME":  true,
	"TIMESTAMP": true,
	"BOOLEAN":   true,
}

// storedRowsName is the CTE the rewritten read selects from.
const storedRowsName = "stored_rows"

// storedValueQuery rewrites a read whose result has a column of a converted
// declared type so that every column is selected as an expression (+cN).
// SQLite reports no declared type for an expression, so the driver returns
// each value as stored. ok is false when no column needs it or sql cannot be
// nested in a subquery (EXPLAIN, PRAGMA, trailing text); sql then runs as is.
func storedValueQuery(ctx context.Context, db preparer, sql string, args []any) (string, bool) {
	body := trimStatement(sql)
	if body == "" {
		return "", false
	}

	n, convert, err := inspectColumns(ctx, db, body, args)
	if err != nil || !convert || n == 0 {
		return "", false
	}

	cols := make([]string, n)
	exprs := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i)
		exprs[i] = "+" + cols[i]
	}
	return fmt.Sprintf("WITH %s(%s) AS (\n%s\n)\nSELECT %s FROM %s",
		storedRowsName, strings.Join(cols, ", "), body, strings.Join(exprs, ", "), storedRowsName), true
}

// inspectColumns reports the result width of body and whether any column has a
// converted declared type. LIMIT 0 keeps SQLite from producing rows.
func inspectColumns(ctx context.Context, db preparer, body string, args []any) (int, bool, error) {
	stmt, err := db.PreparexContext(ctx, "SELECT * FROM (\n"+body+"\n) LIMIT 0")
	if err != nil {
		return 0, false, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return 0, false, err
	}
	convert := false
	for _, ct := range colTypes {
		if convertedDeclTypes[strings.ToUpper(ct.DatabaseTypeName())] {
			convert = true
		}
	}
	return len(colTypes), convert, rows.Err()
}

// columnNames returns the result column names of sql without reading rows.
// The rewritten read renames its columns, and nesting deduplicates repeated
// names, so the names are taken from the statement itself.
func columnNames(ctx context.Context, db preparer, sql string, args []any) ([]string, error) {
	stmt, err := db.PreparexContext(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

// trimStatement drops surrounding whitespace and trailing semicolons so the
// statement can be nested.
func trimStatement(sql string) string {
	return strings.TrimRight(strings.TrimSpace(sql), "; \t\r\n")
}
