package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/noiddea/dash/process"
	"github.com/noiddea/dash/server"
)

func newServeCmd(opts *options) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the command surface to the UI over loopback HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				opts.cfg.Server.Listen = listen
			}
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}

// runServe blocks until a signal arrives or the UI closes the window or
// requests a restart.
func runServe(ctx context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	a, err := newApp(opts.cfg, opts.logger, shutdown)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			opts.logger.Warn("closing database", "error", err)
		}
	}()

	srv, err := server.New(server.Deps{
		Config:   opts.cfg.Server,
		Logger:   opts.logger,
		Commands: a.commands,
		Database: a.db,
		Version:  process.Version,
	})
	if err != nil {
		return err
	}

	opts.logger.Info("starting dashd", "app_id", opts.cfg.App.ID, "driver", opts.cfg.Database.Driver)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	err = g.Wait()

	opts.logger.Info("dashd stopped")
	return err
}
