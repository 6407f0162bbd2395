package process

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/noiddea/dash/logging"
)

// DefaultRestartDelay is how long the old process keeps running after the new
// one has been spawned.
const DefaultRestartDelay = 500 * time.Millisecond

// Restarter relaunches the running executable and then exits the current
// process.
type Restarter struct {
	executable func() (string, error)
	start      func(cmd *exec.Cmd) error
	exit       func(code int)
	args       []string
	delay      time.Duration
	logger     *logging.Logger
}

// RestartOption configures a Restarter.
type RestartOption func(*Restarter)

// WithExecutable overrides how the current executable is located.
func WithExecutable(fn func() (string, error)) RestartOption {
	return func(r *Restarter) { r.executable = fn }
}

// WithStarter overrides how the new process is spawned.
func WithStarter(fn func(cmd *exec.Cmd) error) RestartOption {
	return func(r *Restarter) { r.start = fn }
}

// WithArgs sets the arguments of the new process. The default is the
// arguments of the current one.
func WithArgs(args []string) RestartOption {
	return func(r *Restarter) { r.args = args }
}

// WithDelay sets the pause between spawning and exiting.
func WithDelay(d time.Duration) RestartOption {
	return func(r *Restarter) { r.delay = d }
}

// NewRestarter returns a Restarter that calls exit once the replacement
// process is running. The serve command passes a function that shuts the
// server down gracefully; exit must not block.
func NewRestarter(exit func(code int), logger *logging.Logger, opts ...RestartOption) *Restarter {
	if logger == nil {
		logger = logging.Discard()
	}
	r := &Restarter{
		executable: os.Executable,
		start:      func(cmd *exec.Cmd) error { return cmd.Start() },
		exit:       exit,
		args:       os.Args[1:],
		delay:      DefaultRestartDelay,
		logger:     logger.With("component", "restarter"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Restart spawns a new instance of the application and schedules the exit of
// this one. It returns as soon as the new process has started so the caller
// can still deliver its response.
func (r *Restarter) Restart() error {
	exe, err := r.executable()
	if err != nil {
		return fmt.Errorf("Could not get executable path: %w", err)
	}

	cmd := exec.Command(exe, r.args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := r.start(cmd); err != nil {
		return fmt.Errorf("Failed to restart application: %w", err)
	}
	r.logger.Info("spawned replacement process", "path", exe, "pid", pid(cmd))

	time.AfterFunc(r.delay, func() {
		r.logger.Info("exiting for restart")
		r.exit(0)
	})
	return nil
}

func pid(cmd *exec.Cmd) int {
	if cmd.Process == nil {
		return 0
	}
	return cmd.Process.Pid
}
