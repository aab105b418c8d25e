package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for covgen
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "covgen",
		Short: "Coverage report pipeline for CMake/gcov projects",
		Long: `covgen collects gcov coverage data for a build target with lcov,
filters out third-party and system-header entries, and renders an HTML
report with genhtml.

Each run writes <tests_root>/<target>/coverage.info and
<tests_root>/<target>/HTML/, and is recorded in a local run history.
The empty <tests_root>/<target>/.covgen.lock file marks the output
directory as in use by a run and is left in place afterwards.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// main prints the error once
		SilenceErrors: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewSearchCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
