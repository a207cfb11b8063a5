// Command mdmpcarve is a thin shell over internal/carver, internal/minidump,
// and internal/coverage: argument parsing and process wiring only, no
// carving logic of its own — mirroring the teacher's cmd/recover binaries.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mdmpcarve",
		Short:         "Forensic file carver for Xbox 360 Bethesda minidumps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Bool("verbose", false, "enable debug-level logging")
	root.PersistentFlags().String("config", "", "path to a YAML config file")
	root.PersistentFlags().String("log-file", "", "additionally append log entries to this file")

	root.AddCommand(newCarveCmd())
	root.AddCommand(newReassembleCmd())
	root.AddCommand(newCoverageCmd())

	return root
}
