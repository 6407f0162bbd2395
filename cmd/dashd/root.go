package main

import (
	"github.com/spf13/cobra"

	"github.com/noiddea/dash/config"
	"github.com/noiddea/dash/logging"
	"github.com/noiddea/dash/process"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configFile string
	dataDir    string
	logLevel   string

	cfg    *config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:     "dashd",
		Short:   "dash data service",
		Version: process.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return opts.load(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "override the app data directory")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newQueryCmd(opts))
	root.AddCommand(newExecuteCmd(opts))
	root.AddCommand(newExecCmd(opts))
	root.AddCommand(newPathCmd(opts))
	root.AddCommand(newRequestCmd(opts))
	root.AddCommand(newStatusCmd(opts))

	return root
}

// load reads the configuration and applies flag overrides. Logs go to stderr
// so subcommand output on stdout stays machine readable.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	if o.dataDir != "" {
		cfg.App.DataDir = o.dataDir
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	o.cfg = cfg
	o.logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging, process.Version)
	return nil
}
