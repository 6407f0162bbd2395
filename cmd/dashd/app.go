package main

import (
	"fmt"
	"path/filepath"

	"github.com/noiddea/dash/auth"
	"github.com/noiddea/dash/commands"
	"github.com/noiddea/dash/config"
	"github.com/noiddea/dash/database"
	"github.com/noiddea/dash/logging"
	"github.com/noiddea/dash/paths"
	"github.com/noiddea/dash/process"
	"github.com/noiddea/dash/sqlproxy/host"
	"github.com/noiddea/dash/window"
)

// app is the set of long-lived collaborators built once per process.
type app struct {
	paths    *paths.Resolver
	db       *database.Manager
	sql      *host.SQLHost
	commands *commands.Registry
}

// newApp wires the collaborators. shutdown is called when the UI closes the
// window or asks for a restart; it must not block.
func newApp(cfg *config.Config, logger *logging.Logger, shutdown func()) (*app, error) {
	var opts []paths.Option
	if cfg.App.DataDir != "" {
		opts = append(opts, paths.WithDataDir(cfg.App.DataDir))
	}
	resolver := paths.NewResolver(cfg.App.ID, opts...)

	manager := database.NewManager(database.Config{
		Filename:    cfg.Database.Filename,
		Driver:      cfg.Database.Driver,
		CacheSize:   cfg.Database.CacheSize,
		BusyTimeout: cfg.Database.BusyTimeout,
	}, resolver, logger)
	sqlHost := host.NewSQLHost(manager, logger)

	a := &app{paths: resolver, db: manager, sql: sqlHost}

	tokens, err := a.tokenIssuer(cfg)
	if err != nil {
		return nil, err
	}

	reset, err := process.NewResetScript(cfg.Scripts.ProjectRoot, cfg.Scripts.Node)
	if err != nil {
		return nil, err
	}

	a.commands = commands.New(commands.Deps{
		DB:      manager,
		SQL:     sqlHost,
		Hasher:  auth.NewHasher(cfg.Auth.BcryptCost),
		Tokens:  tokens,
		Paths:   resolver,
		Window:  window.NewHeadless(shutdown),
		Restart: process.NewRestarter(func(int) { shutdown() }, logger),
		Reset:   reset,
		Version: process.Version,
	})
	return a, nil
}

// tokenIssuer loads the signing key, resolving a relative key path against
// the app data directory.
func (a *app) tokenIssuer(cfg *config.Config) (*auth.TokenIssuer, error) {
	keyPath := cfg.Auth.TokenSecretFile
	if !filepath.IsAbs(keyPath) {
		dir, err := a.paths.AppDataDir()
		if err != nil {
			return nil, fmt.Errorf("resolving token key path: %w", err)
		}
		keyPath = filepath.Join(dir, keyPath)
	}
	key, err := auth.LoadSecretKey(keyPath)
	if err != nil {
		return nil, err
	}
	return auth.NewTokenIssuer(key, cfg.GetTokenTTL()), nil
}

func (a *app) Close() error {
	return a.db.Close()
}
