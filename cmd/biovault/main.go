// Command biovault is the BioVault Desktop CLI: a thin client over the
// daemon's command bridge plus local profile management that does not
// require the daemon to be running.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:   "biovault",
		Short: "BioVault Desktop command-line interface",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newProfileCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newSessionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("biovault %s (commit: %s, built: %s)\n", version, commit, buildDate)
			return nil
		},
	}
}
