// Package window defines the window control collaborator used by the
// window_* commands.
package window
