// Package paths resolves platform-standard directories by symbolic name
// (appData, documents, downloads, ...). The application's private data
// directory, which holds the database file, is <data home>/<app id>.
package paths
