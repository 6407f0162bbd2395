// Package host runs SQL on behalf of the UI.
//
// SQLHost exposes four operations over the shared connection from the
// database package: Query (one read statement, rows materialized), Execute
// (one write statement, changes and last insert rowid), Exec (a
// parameterless script) and Transaction (an ordered, atomic batch of reads and
// writes). Parameters and rows cross the boundary as value.Value and every
// result is wrapped in a types.Envelope.
package host
