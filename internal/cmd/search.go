package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/harrison/covgen/internal/search"
)

// NewSearchCommand creates the search command
func NewSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <directory> <string>",
		Short: "List files under a directory that contain a string",
		Long: `Search every file below <directory> for <string> and print
"Found in <path>" once for each file with a matching line.

Files that cannot be opened or are not valid UTF-8 text are skipped
silently.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			_, err := search.Search(ctx, args[0], args[1], cmd.OutOrStdout())
			return err
		},
	}
}
