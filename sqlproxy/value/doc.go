// Package value implements the dynamic value model exchanged with the UI:
// null, bool, integer, float, string, array and object, plus the bridge
// between those values and the native parameter and column types of the
// SQLite drivers.
//
// Arrays and objects bound as parameters are stored as their JSON text and
// come back as plain strings; they are not reconstructed on read.
package value
