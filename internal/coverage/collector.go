package coverage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/harrison/covgen/internal/executor"
	"github.com/harrison/covgen/internal/fileutil"
	"github.com/harrison/covgen/internal/models"
)

// Collector captures and filters coverage data with an lcov compatible tool.
type Collector struct {
	runner   executor.CommandRunner
	tool     executor.Tool
	excludes []string
	maxDepth int
	logger   Logger
}

// NewCollector creates a Collector. excludes are the globs passed to
// "--remove"; maxDepth bounds instrumentation directory expansion (0 = unlimited).
func NewCollector(runner executor.CommandRunner, tool executor.Tool, excludes []string, maxDepth int, logger Logger) *Collector {
	return &Collector{
		runner:   runner,
		tool:     tool,
		excludes: excludes,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// Collect produces the filtered coverage record for layout and returns its path.
//
// The raw record is removed before capture (a leftover from a crashed run
// would otherwise make lcov fail) and again once Collect returns, whether or
// not filtering succeeded. A filtered record left by a failed filter run is
// removed as well.
func (c *Collector) Collect(ctx context.Context, layout models.Layout) (record string, err error) {
	raw := layout.RawRecordPath()
	if err := removeFile(raw); err != nil {
		return "", fmt.Errorf("remove stale raw record: %w", err)
	}
	defer func() {
		if rmErr := removeFile(raw); rmErr != nil {
			rmErr = fmt.Errorf("remove raw record: %w", rmErr)
			if err == nil {
				err = rmErr
			} else {
				err = multierror.Append(err, rmErr)
			}
			record = ""
		}
	}()

	captureArgs, err := c.captureArgs(layout)
	if err != nil {
		return "", err
	}
	c.logger.LogDebug(fmt.Sprintf("capturing from %d directories into %s", countDirs(captureArgs), raw))
	if err := c.run(ctx, executor.StageCollect, captureArgs); err != nil {
		return "", err
	}

	record = layout.RecordPath()
	if err := c.run(ctx, executor.StageFilter, c.filterArgs(raw, record)); err != nil {
		if rmErr := removeFile(record); rmErr != nil {
			err = multierror.Append(err, fmt.Errorf("remove partial record: %w", rmErr))
		}
		return "", err
	}

	return record, nil
}

// captureArgs builds "-c -d <dir>... -o <raw>". lcov does not recurse, so
// every descendant of each instrumentation directory is named explicitly.
func (c *Collector) captureArgs(layout models.Layout) ([]string, error) {
	var truncated []string
	opts := fileutil.WalkOptions{
		MaxDepth:   c.maxDepth,
		OnTruncate: func(dir string) { truncated = append(truncated, dir) },
	}

	args := []string{"-c"}
	for _, dir := range layout.InstrumentationDirs() {
		args = append(args, "-d", dir)

		subdirs, err := fileutil.ListDirectories(dir, opts)
		if err != nil {
			return nil, fmt.Errorf("expand instrumentation directory %s: %w", dir, err)
		}
		for _, sub := range subdirs {
			args = append(args, "-d", sub)
		}
	}

	if len(truncated) > 0 {
		c.logger.LogWarn(fmt.Sprintf("max_depth %d reached: %d directory trees not passed to lcov (first: %s)",
			c.maxDepth, len(truncated), truncated[0]))
		for _, dir := range truncated {
			c.logger.LogDebug("skipped below max_depth: " + dir)
		}
	}
	return append(args, "-o", layout.RawRecordPath()), nil
}

// filterArgs builds "--remove <raw> <pattern>... -o <record>".
func (c *Collector) filterArgs(raw, record string) []string {
	args := make([]string, 0, len(c.excludes)+4)
	args = append(args, "--remove", raw)
	args = append(args, c.excludes...)
	return append(args, "-o", record)
}

func (c *Collector) run(ctx context.Context, stage executor.Stage, args []string) error {
	c.logger.LogTrace(fmt.Sprintf("%s: %s %v", stage, c.tool, args))

	result, err := executor.RunTool(ctx, c.runner, stage, c.tool, args...)
	if err != nil {
		var toolErr *executor.ToolError
		if errors.As(err, &toolErr) {
			c.logger.LogToolOutput(toolErr.CommandLine(), toolErr.Output)
		}
		return err
	}
	c.logger.LogDebug(fmt.Sprintf("%s finished in %s", stage, result.Duration))
	return nil
}

// removeFile deletes path, treating a missing file as success.
func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func countDirs(args []string) int {
	n := 0
	for _, a := range args {
		if a == "-d" {
			n++
		}
	}
	return n
}
