// Package process holds the collaborators that act on the application
// process itself: version and platform reporting, restart by respawning the
// executable, and the external database reset script.
package process
