package window

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("window is closed")

// Window is the host window of the UI. Implementations delegate to the
// platform windowing API; they are called from request goroutines and must
// be safe for concurrent use.
type Window interface {
	Minimize() error
	Maximize() error
	Close() error
	IsMaximized() (bool, error)
}

// Headless is the Window used when the UI runs outside a native shell, for
// example in a browser tab talking to the loopback server. It tracks the
// requested state and turns Close into a callback, which dashd uses to shut
// down.
type Headless struct {
	mu        sync.Mutex
	minimized bool
	maximized bool
	closed    bool
	onClose   func()
}

// NewHeadless returns a Headless window. onClose may be nil.
func NewHeadless(onClose func()) *Headless {
	return &Headless{onClose: onClose}
}

func (w *Headless) Minimize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.minimized = true
	return nil
}

// Maximize also restores a minimized window.
func (w *Headless) Maximize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.minimized = false
	w.maximized = true
	return nil
}

// Close runs the close callback once. Later calls are no-ops.
func (w *Headless) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	onClose := w.onClose
	w.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}

func (w *Headless) IsMaximized() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false, ErrClosed
	}
	return w.maximized, nil
}

// IsMinimized reports whether Minimize was called since the last Maximize.
func (w *Headless) IsMinimized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.minimized
}
