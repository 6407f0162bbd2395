package database

import (
	"errors"
	"fmt"
)

var (
	ErrWALUnavailable         = errors.New("write-ahead logging is not available")
	ErrForeignKeysUnsupported = errors.New("foreign key enforcement is not supported")
)

// Stage names the step of connection initialization that failed.
type Stage string

const (
	StageResolveDir  Stage = "could not get app data directory"
	StageCreateDir   Stage = "could not create app data directory"
	StageOpen        Stage = "could not open database"
	StageJournalMode Stage = "could not set WAL mode"
	StageForeignKeys Stage = "could not enable foreign keys"
	StageBusyTimeout Stage = "could not set busy timeout"
)

// InitError reports a failed connection initialization. It is fatal to the
// call that triggered it only; the next Acquire tries again.
type InitError struct {
	Stage Stage
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
