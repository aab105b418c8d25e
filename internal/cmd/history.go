package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/covgen/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [target]",
		Short: "Show recent coverage runs",
		Long: `Display recent covgen runs from the run history, newest first:
  - Run start time and duration
  - Target and outcome
  - Failed stage, exit code and error for failed runs`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}

	addConfigFlags(cmd)
	cmd.Flags().Int("limit", 20, "Maximum number of runs to show (0 = all)")

	return cmd
}

// runHistory executes the history command
func runHistory(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Resolve(); err != nil {
		return err
	}

	target := ""
	if len(args) == 1 {
		target = args[0]
	}
	limit, _ := cmd.Flags().GetInt("limit")

	if _, err := os.Stat(cfg.History.DBPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No runs recorded yet (%s)\n", cfg.History.DBPath)
		return nil
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runs, err := store.RecentRuns(ctx, target, limit)
	if err != nil {
		return fmt.Errorf("get run history: %w", err)
	}

	if len(runs) == 0 {
		if target != "" {
			fmt.Fprintf(output, "No runs recorded for target %s\n", target)
		} else {
			fmt.Fprintf(output, "No runs recorded yet (%s)\n", cfg.History.DBPath)
		}
		return nil
	}

	printRunHistory(output, target, runs)
	return nil
}

// printRunHistory formats and prints runs, most recent first
func printRunHistory(w io.Writer, target string, runs []*history.RunRecord) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	title := "Recent Runs"
	if target != "" {
		title = "Recent Runs for " + target
	}
	cyan.Fprintf(w, "\n=== %s ===\n\n", title)

	for _, run := range runs {
		fmt.Fprintf(w, "%s  %-20s ", run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Target)
		if run.Succeeded() {
			green.Fprintf(w, "SUCCESS")
		} else {
			red.Fprintf(w, "FAILED at %s (exit %d)", run.FailedStage, run.ExitCode)
		}
		gray.Fprintf(w, "  %s\n", run.Duration.Round(time.Millisecond))

		if run.Error != "" {
			fmt.Fprintf(w, "    %s\n", run.Error)
		}
	}
	fmt.Fprintln(w)
}
