// Package client is a Go client for the dashd command surface.
//
// Every command is a POST to /invoke/{command} with a JSON object of
// arguments. Data-access commands answer with an envelope even when they
// fail; other commands answer with a non-2xx status and a JSON error body,
// which the client returns as *Error.
//
// Basic usage:
//
//	c := client.New("http://127.0.0.1:4317")
//	env, err := c.Query(ctx, "SELECT id, name FROM users WHERE id = ?", value.Int(1))
//	if err != nil {
//		// transport or argument problem
//	}
//	if err := env.Err(); err != nil {
//		// the statement failed
//	}
package client
