package host

import (
	"errors"
	"fmt"
	"regexp"
)

// Messages keep the prefixes the UI already matches on.
var (
	ErrPrepare           = errors.New("SQL prepare error")
	ErrQuery             = errors.New("SQL query error")
	ErrExecute           = errors.New("SQL execute error")
	ErrExec              = errors.New("SQL exec error")
	ErrRowDecode         = errors.New("Row parsing error")
	ErrParamCount        = errors.New("parameter count mismatch")
	ErrTransactionStart  = errors.New("Transaction start error")
	ErrTransactionCommit = errors.New("Transaction commit error")
	ErrTransactionAbort  = errors.New("transaction aborted")
	ErrUnknownCommand    = errors.New("unknown command")
)

// database/sql checks the argument count against the driver's NumInput before
// running a prepared statement and reports it with this message.
var argCountPattern = regexp.MustCompile(`sql: expected (\d+) arguments, got (\d+)`)

// wrap attaches the stage sentinel to a driver error. Argument count
// mismatches are additionally marked with ErrParamCount.
func wrap(stage, err error) error {
	if m := argCountPattern.FindStringSubmatch(err.Error()); m != nil {
		return fmt.Errorf("%w: %w: expected %s, got %s", stage, ErrParamCount, m[1], m[2])
	}
	return fmt.Errorf("%w: %w", stage, err)
}
