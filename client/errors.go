package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ErrorType is the category of a failed call.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeNetwork means the server could not be reached or the response
	// could not be read.
	ErrorTypeNetwork
	// ErrorTypeValidation means the server rejected the arguments (400).
	ErrorTypeValidation
	// ErrorTypeNotFound means the command is not registered (404).
	ErrorTypeNotFound
	// ErrorTypeCommand means the command ran and failed (422).
	ErrorTypeCommand
	ErrorTypeAPI
)

// Error is a failed call. Message is the server's message verbatim when the
// server produced one.
type Error struct {
	Type       ErrorType
	Message    string
	Code       string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsType reports whether the error is of the given type.
func (e *Error) IsType(t ErrorType) bool {
	return e.Type == t
}

func newNetworkError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: message, Cause: cause}
}

// IsNotFound reports whether err is an unknown-command error.
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsValidationError reports whether err is an invalid-arguments error.
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsCommandError reports whether err came from a command that ran and failed.
func IsCommandError(err error) bool {
	return isType(err, ErrorTypeCommand)
}

func isType(err error, t ErrorType) bool {
	if e, ok := err.(*Error); ok {
		return e.IsType(t)
	}
	return false
}

// wrapHTTPError converts a non-2xx response into an Error.
func wrapHTTPError(resp *http.Response) *Error {
	e := &Error{StatusCode: resp.StatusCode, Message: resp.Status}

	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		e.Message = body.Error
		e.Code = body.Code
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		e.Type = ErrorTypeValidation
	case http.StatusNotFound:
		e.Type = ErrorTypeNotFound
	case http.StatusUnprocessableEntity:
		e.Type = ErrorTypeCommand
	default:
		e.Type = ErrorTypeAPI
	}
	return e
}
