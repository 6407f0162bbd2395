package types

import (
	"encoding/json"
	"errors"

	"github.com/noiddea/dash/sqlproxy/value"
)

// ErrMissingSQL is returned when a statement object carries no "sql" field.
var ErrMissingSQL = errors.New("missing 'sql' in query object")

// --- JSON structures exchanged with the UI ---

// Envelope is the uniform result of every data-access command. Data is set
// when Success is true, Error when it is false. Commands with no result data
// return a successful envelope with a null Data.
type Envelope[T any] struct {
	Success bool    `json:"success"`
	Data    *T      `json:"data"`
	Error   *string `json:"error"`
}

// Unit is the result type of commands that produce no data.
type Unit struct{}

func Success[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: &data}
}

func UnitSuccess() Envelope[Unit] {
	return Envelope[Unit]{Success: true}
}

func Failure[T any](err error) Envelope[T] {
	msg := err.Error()
	return Envelope[T]{Success: false, Error: &msg}
}

// Err returns the carried error message as an error, or nil on success.
func (e Envelope[T]) Err() error {
	if e.Success {
		return nil
	}
	if e.Error == nil {
		return errors.New("unknown error")
	}
	return errors.New(*e.Error)
}

// QueryRequest is a single SQL statement with its positional parameters.
type QueryRequest struct {
	SQL    string        `json:"sql"`
	Params []value.Value `json:"params"`
}

// UnmarshalJSON requires "sql" and defaults "params" to an empty list.
func (q *QueryRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		SQL    *string       `json:"sql"`
		Params []value.Value `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.SQL == nil {
		return ErrMissingSQL
	}
	q.SQL = *raw.SQL
	q.Params = raw.Params
	if q.Params == nil {
		q.Params = []value.Value{}
	}
	return nil
}

// ExecResult defines the data returned by a single write statement.
type ExecResult struct {
	Changes         int64 `json:"changes"`
	LastInsertRowid int64 `json:"lastInsertRowid"`
}

// SQLRequest defines the structure of a raw request handled by
// SQLHost.HandleRequest.
type SQLRequest struct {
	Command    string         `json:"command"`
	SQL        string         `json:"sql,omitempty"`
	Params     []value.Value  `json:"params,omitempty"`
	Statements []QueryRequest `json:"statements,omitempty"`
}
