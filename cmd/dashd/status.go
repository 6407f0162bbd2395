package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noiddea/dash/client"
)

// newStatusCmd asks a running server for its status.
func newStatusCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running dashd server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = opts.cfg.Server.Listen
			}
			s, err := client.New(baseURL(addr)).Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "%s (version %s, up %s, %d commands)\n",
				s.Status, s.Version, s.Uptime(), len(s.Commands)); err != nil {
				return err
			}
			if db := s.Database; db != nil {
				_, err = fmt.Fprintf(out, "database: %s (%s)", db.State, db.Driver)
				if err == nil && db.Error != "" {
					_, err = fmt.Fprintf(out, ": %s", db.Error)
				}
				if err == nil {
					_, err = fmt.Fprintln(out)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "server address (default from config)")
	return cmd
}

func baseURL(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	if host, port, err := net.SplitHostPort(addr); err == nil && (host == "" || host == "0.0.0.0") {
		addr = net.JoinHostPort("127.0.0.1", port)
	}
	return "http://" + addr
}
