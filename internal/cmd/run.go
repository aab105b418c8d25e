package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/covgen/internal/config"
	"github.com/harrison/covgen/internal/coverage"
	"github.com/harrison/covgen/internal/executor"
	"github.com/harrison/covgen/internal/history"
	"github.com/harrison/covgen/internal/logger"
	"github.com/harrison/covgen/internal/models"
)

// runLogger is what the run command needs from each log sink.
type runLogger interface {
	coverage.Logger
	LogSummary(result models.RunResult)
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <target>",
		Short: "Collect coverage and render the HTML report for a target",
		Long: `Collect coverage for a build target and render its HTML report.

The run command checks that the target's library and test object directories
and its output directory exist, takes the advisory lock file .covgen.lock
in the output directory (kept between runs), then:

  1. runs lcov -c over every object directory into tmp_coverage.info
  2. runs lcov --remove to drop excluded entries into coverage.info
  3. recreates HTML/ and runs genhtml over coverage.info

Any failing step stops the run. Configuration is loaded from
.covgen/config.yaml in the project root if present; CLI flags override it.

Exit codes:
  0  success
  1  usage or configuration error
  2  missing directory or invalid target
  3  lcov capture or filter failed
  4  genhtml failed
  5  lcov or genhtml could not be started
  6  another covgen run holds the output directory

Examples:
  covgen run CsvParser
  covgen run --project-root ~/src/cutils Json
  covgen run --timeout 10m --log-level debug Json`,
		Args: cobra.ExactArgs(1),
		RunE: runCommand,
	}

	addConfigFlags(cmd)
	cmd.Flags().String("tests-root", "", "Directory containing per-target output directories (default: <project-root>/tests)")
	cmd.Flags().String("timeout", "", "Maximum run time (e.g., 30m, 1h); 0 disables")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().String("log-dir", "", "Directory for log files (default: .covgen/logs)")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the run history")

	return cmd
}

// addConfigFlags registers the flags every config-reading command shares.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: <project-root>/.covgen/config.yaml)")
	cmd.Flags().String("project-root", "", "Project root containing build/ and tests/ (default: current directory)")
}

// loadConfig reads the config file named by --config, or the project's
// default one, and applies --project-root on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	projectRoot, _ := cmd.Flags().GetString("project-root")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		dir := "."
		if projectRoot != "" {
			dir = projectRoot
		}
		cfg, err = config.LoadConfigFromDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if cmd.Flags().Changed("project-root") {
		cfg.MergeWithFlags(&projectRoot, nil, nil, nil, nil, nil)
	}
	return cfg, nil
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	target := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	testsRootFlag, _ := cmd.Flags().GetString("tests-root")
	timeoutStr, _ := cmd.Flags().GetString("timeout")
	logLevelFlag, _ := cmd.Flags().GetString("log-level")
	logDirFlag, _ := cmd.Flags().GetString("log-dir")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	// Build flag pointers for merge (only non-default values)
	var testsRootPtr *string
	if cmd.Flags().Changed("tests-root") {
		testsRootPtr = &testsRootFlag
	}

	var timeoutPtr *time.Duration
	if cmd.Flags().Changed("timeout") {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return fmt.Errorf("invalid timeout format %q: %w", timeoutStr, err)
		}
		timeoutPtr = &timeout
	}

	var logLevelPtr *string
	if cmd.Flags().Changed("log-level") {
		logLevelPtr = &logLevelFlag
	}

	var logDirPtr *string
	if cmd.Flags().Changed("log-dir") {
		logDirPtr = &logDirFlag
	}

	var historyPtr *bool
	if noHistory {
		enabled := false
		historyPtr = &enabled
	}

	cfg.MergeWithFlags(nil, testsRootPtr, timeoutPtr, logLevelPtr, logDirPtr, historyPtr)

	if err := cfg.Resolve(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	consoleLog := logger.NewConsoleLogger(out, cfg.LogLevel)

	fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()

	multiLog := &multiLogger{
		loggers: []runLogger{consoleLog, fileLog},
	}

	// Tool output streams to the console as it is produced.
	runner := executor.NewExecRunner(cfg.ProjectRoot, out)

	pipeline, err := coverage.NewPipeline(cfg, runner, multiLog)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, runErr := pipeline.Run(ctx, target)
	multiLog.LogSummary(result)

	if cfg.History.Enabled {
		recordHistory(context.WithoutCancel(ctx), cfg.History, result, multiLog)
	}

	fmt.Fprintf(out, "Logs written to: %s\n", fileLog.RunFile())

	if runErr != nil {
		return &ExitError{Code: result.ExitCode, Err: runErr}
	}
	return nil
}

// recordHistory stores result in the run ledger and prunes old runs.
// Ledger problems are reported as warnings; they never fail the run.
func recordHistory(ctx context.Context, cfg config.HistoryConfig, result models.RunResult, log runLogger) {
	store, err := history.NewStore(cfg.DBPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("run history unavailable: %v", err))
		return
	}
	defer store.Close()

	if err := store.RecordRun(ctx, history.NewRunRecord(result)); err != nil {
		log.LogWarn(fmt.Sprintf("failed to record run: %v", err))
		return
	}

	deleted, err := store.Cleanup(ctx, cfg.KeepDays)
	if err != nil {
		log.LogWarn(fmt.Sprintf("failed to prune run history: %v", err))
		return
	}
	if deleted > 0 {
		log.LogDebug(fmt.Sprintf("pruned %d run(s) older than %d days", deleted, cfg.KeepDays))
	}
}

// multiLogger implements runLogger by delegating to multiple loggers
type multiLogger struct {
	loggers []runLogger
}

// LogTrace forwards to all loggers
func (ml *multiLogger) LogTrace(message string) {
	for _, l := range ml.loggers {
		l.LogTrace(message)
	}
}

// LogDebug forwards to all loggers
func (ml *multiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

// LogInfo forwards to all loggers
func (ml *multiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}

// LogWarn forwards to all loggers
func (ml *multiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

// LogError forwards to all loggers
func (ml *multiLogger) LogError(message string) {
	for _, l := range ml.loggers {
		l.LogError(message)
	}
}

// LogBanner forwards to all loggers
func (ml *multiLogger) LogBanner(title string) {
	for _, l := range ml.loggers {
		l.LogBanner(title)
	}
}

// LogStageComplete forwards to all loggers
func (ml *multiLogger) LogStageComplete(stage string, duration time.Duration) {
	for _, l := range ml.loggers {
		l.LogStageComplete(stage, duration)
	}
}

// LogToolOutput forwards to all loggers
func (ml *multiLogger) LogToolOutput(command string, output string) {
	for _, l := range ml.loggers {
		l.LogToolOutput(command, output)
	}
}

// LogSummary forwards to all loggers
func (ml *multiLogger) LogSummary(result models.RunResult) {
	for _, l := range ml.loggers {
		l.LogSummary(result)
	}
}

var _ runLogger = (*multiLogger)(nil)
