// Package commands is the named command surface exposed to the UI. Each
// command takes a JSON object of arguments and returns a JSON-encodable
// result. Data-access commands report failures inside their result
// envelope; the others fail the invocation itself.
package commands
