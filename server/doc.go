// Package server is the loopback HTTP transport between the UI and the
// command registry.
//
// Routes:
//
//	POST /invoke/{command}   body is the JSON argument object, response is the command result
//	GET  /status             liveness, version and the list of commands
//
// A command that fails answers with a non-2xx status and {"error","code"}.
// Data-access commands report SQL failures inside their envelope with 200.
package server
