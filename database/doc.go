// Package database owns the single SQLite connection of the process.
//
// A Manager opens the database file lazily on the first Acquire, switches it
// to write-ahead logging, turns on foreign key enforcement and hands out a
// shared Handle. Every query, statement or transaction runs through
// Handle.Do, which serializes access to the one underlying connection.
//
// Two drivers are linked in: "sqlite3" (mattn/go-sqlite3, cgo) and "sqlite"
// (modernc.org/sqlite, pure Go). The driver is chosen through Config.Driver.
package database
