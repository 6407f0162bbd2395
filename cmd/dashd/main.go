// Command dashd is the data service behind the dash desktop UI. "dashd
// serve" exposes the command surface over loopback HTTP; the other
// subcommands run the same operations from a terminal.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
