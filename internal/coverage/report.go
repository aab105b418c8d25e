package coverage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/harrison/covgen/internal/executor"
	"github.com/harrison/covgen/internal/models"
)

// ReportGenerator renders a coverage record into an HTML directory with a
// genhtml compatible tool.
type ReportGenerator struct {
	runner executor.CommandRunner
	tool   executor.Tool
	logger Logger
}

// NewReportGenerator creates a ReportGenerator.
func NewReportGenerator(runner executor.CommandRunner, tool executor.Tool, logger Logger) *ReportGenerator {
	return &ReportGenerator{runner: runner, tool: tool, logger: logger}
}

// Generate renders record into layout.ReportDir() and returns that directory.
// Any previous report is deleted first so files from an older run never
// mix with the new one.
func (g *ReportGenerator) Generate(ctx context.Context, record string, layout models.Layout) (string, error) {
	reportDir := layout.ReportDir()

	if err := os.RemoveAll(reportDir); err != nil {
		return "", fmt.Errorf("remove previous report %s: %w", reportDir, err)
	}
	if err := os.Mkdir(reportDir, 0755); err != nil {
		return "", fmt.Errorf("create report directory %s: %w", reportDir, err)
	}

	args := []string{"-o", reportDir, record}
	g.logger.LogTrace(fmt.Sprintf("%s: %s %v", executor.StageRender, g.tool, args))

	result, err := executor.RunTool(ctx, g.runner, executor.StageRender, g.tool, args...)
	if err != nil {
		var toolErr *executor.ToolError
		if errors.As(err, &toolErr) {
			g.logger.LogToolOutput(toolErr.CommandLine(), toolErr.Output)
		}
		return "", err
	}
	g.logger.LogDebug(fmt.Sprintf("%s finished in %s", executor.StageRender, result.Duration))

	return reportDir, nil
}
