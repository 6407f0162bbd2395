// Package logging provides the structured logger used across the service.
//
// Components derive their own logger with With("component", name) so that
// every record can be traced back to the connection manager, the SQL host,
// the IPC server and so on.
package logging
