package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noiddea/dash/sqlproxy/value"
)

// parseParams decodes the --params flag, a JSON array of positional values.
func parseParams(raw string) ([]value.Value, error) {
	if raw == "" {
		return []value.Value{}, nil
	}
	var params []value.Value
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("parsing --params: %w", err)
	}
	return params, nil
}

func newQueryCmd(opts *options) *cobra.Command {
	var params, format string

	cmd := &cobra.Command{
		Use:   "query SQL",
		Short: "Run a read statement and print its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			a, err := newApp(opts.cfg, opts.logger, func() {})
			if err != nil {
				return err
			}
			defer a.Close()

			env := a.sql.Query(cmd.Context(), args[0], p)
			if err := env.Err(); err != nil {
				return err
			}
			return renderRows(cmd.OutOrStdout(), *env.Data, format)
		},
	}
	cmd.Flags().StringVar(&params, "params", "", `positional parameters as a JSON array, e.g. '[1,"a"]'`)
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|json)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func newExecuteCmd(opts *options) *cobra.Command {
	var params string

	cmd := &cobra.Command{
		Use:   "execute SQL",
		Short: "Run a single write statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			a, err := newApp(opts.cfg, opts.logger, func() {})
			if err != nil {
				return err
			}
			defer a.Close()

			env := a.sql.Execute(cmd.Context(), args[0], p)
			if err := env.Err(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "changes: %d, last insert rowid: %d\n",
				env.Data.Changes, env.Data.LastInsertRowid)
			return err
		},
	}
	cmd.Flags().StringVar(&params, "params", "", "positional parameters as a JSON array")
	return cmd
}

func newExecCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "exec [SQL]",
		Short: "Run a SQL script; reads stdin when no argument is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := argOrStdin(cmd, args)
			if err != nil {
				return err
			}
			a, err := newApp(opts.cfg, opts.logger, func() {})
			if err != nil {
				return err
			}
			defer a.Close()

			return a.sql.Exec(cmd.Context(), script).Err()
		},
	}
}

func newPathCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "path [NAME]",
		Short: "Print the database path, or a platform directory by name",
		Long: "Without an argument, prints the database file path. With a name " +
			"(appData, documents, downloads, ...), prints that directory.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg, opts.logger, func() {})
			if err != nil {
				return err
			}
			defer a.Close()

			var p string
			if len(args) == 0 {
				p, err = a.db.Path()
			} else {
				p, err = a.paths.Resolve(args[0])
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}
}

// newRequestCmd runs one raw SQL request, the same JSON the host accepts,
// read from stdin.
func newRequestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "request",
		Short: `Run a JSON request ({"command":"query",...}) read from stdin`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading request: %w", err)
			}
			a, err := newApp(opts.cfg, opts.logger, func() {})
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.sql.HandleRequest(cmd.Context(), payload)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}

func argOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(b), nil
}
