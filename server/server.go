package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noiddea/dash/commands"
	"github.com/noiddea/dash/config"
	"github.com/noiddea/dash/database"
	"github.com/noiddea/dash/logging"
)

const (
	// gracefulShutdownTimeout is the maximum time to wait for in-flight
	// commands during shutdown.
	gracefulShutdownTimeout = 10 * time.Second

	// listenRetryWindow covers a restart, where the replacement process starts
	// while the old one still holds the port.
	listenRetryWindow   = 5 * time.Second
	listenRetryInterval = 100 * time.Millisecond
)

// DatabaseStatus reports the connection lifecycle. *database.Manager
// implements it.
type DatabaseStatus interface {
	State() (database.State, error)
	Driver() string
}

// Deps holds what the server needs. Database is optional; without it the
// status report omits the database section.
type Deps struct {
	Config   config.ServerConfig
	Logger   *logging.Logger
	Commands *commands.Registry
	Database DatabaseStatus
	Version  string
}

// Server exposes the command registry to the UI over loopback HTTP.
type Server struct {
	cfg      config.ServerConfig
	logger   *logging.Logger
	commands *commands.Registry
	db       DatabaseStatus
	version  string
	started  time.Time
}

func New(deps Deps) (*Server, error) {
	if deps.Commands == nil {
		return nil, fmt.Errorf("command registry is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger.With("component", "server"),
		commands: deps.Commands,
		db:       deps.Database,
		version:  deps.Version,
		started:  time.Now(),
	}, nil
}

// Handler builds the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	r.Use(s.enableCrossOrigin)
	r.Use(s.limitBody)

	r.Get("/status", s.handleStatus)
	r.Post("/invoke/{command}", s.handleInvoke)

	return r
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := listen(ctx, s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       time.Duration(s.cfg.ReadTimeout) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// listen binds addr, retrying for a short while if it is still taken.
func listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	deadline := time.Now().Add(listenRetryWindow)
	for {
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err == nil {
			return ln, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("listening on %s: %w", addr, err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("listening on %s: %w", addr, ctx.Err())
		case <-time.After(listenRetryInterval):
		}
	}
}

type statusResponse struct {
	Status        string          `json:"status"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Commands      []string        `json:"commands"`
	Database      *databaseStatus `json:"database,omitempty"`
}

// databaseStatus describes the shared connection. Error is the reason the
// last open failed; the next command retries it.
type databaseStatus struct {
	State  string `json:"state"`
	Driver string `json:"driver"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Commands:      s.commands.Names(),
	}
	if s.db != nil {
		state, err := s.db.State()
		resp.Database = &databaseStatus{State: state.String(), Driver: s.db.Driver()}
		if err != nil {
			resp.Database.Error = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleInvoke runs one command with the request body as its arguments.
// Commands run to completion even if the client disconnects; statements are
// not interruptible once started.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "command")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("reading request body: %v", err))
		return
	}

	result, err := s.commands.Invoke(context.WithoutCancel(r.Context()), name, json.RawMessage(body))
	if err != nil {
		status, code := http.StatusUnprocessableEntity, codeFailed
		switch {
		case errors.Is(err, commands.ErrUnknownCommand):
			status, code = http.StatusNotFound, codeNotFound
		case errors.Is(err, commands.ErrInvalidArgs):
			status, code = http.StatusBadRequest, codeBadRequest
		}
		s.logger.Debug("command failed", "command", name, "error", err,
			"request_id", r.Context().Value(ctxKeyRequestID))
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
