package coverage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/covgen/internal/config"
	"github.com/harrison/covgen/internal/executor"
	"github.com/harrison/covgen/internal/filelock"
	"github.com/harrison/covgen/internal/models"
)

// LockFileName is the advisory lock taken inside the output directory.
// The file is left in place after unlock.
const LockFileName = ".covgen.lock"

// Logger receives pipeline progress.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogBanner(title string)
	LogStageComplete(stage string, duration time.Duration)
	LogToolOutput(command string, output string)
}

// Pipeline sequences resolve, collect and render for a single target.
// It keeps no state between runs.
type Pipeline struct {
	resolver  *Resolver
	collector *Collector
	reporter  *ReportGenerator
	logger    Logger
	timeout   time.Duration
}

// NewPipeline wires a pipeline from a resolved configuration.
func NewPipeline(cfg *config.Config, runner executor.CommandRunner, logger Logger) (*Pipeline, error) {
	collectorTool, err := executor.ParseTool(cfg.Collector)
	if err != nil {
		return nil, fmt.Errorf("collector: %w", err)
	}
	rendererTool, err := executor.ParseTool(cfg.Renderer)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	return &Pipeline{
		resolver:  NewResolver(cfg),
		collector: NewCollector(runner, collectorTool, cfg.ExcludePatterns, cfg.MaxDepth, logger),
		reporter:  NewReportGenerator(runner, rendererTool, logger),
		logger:    logger,
		timeout:   cfg.Timeout,
	}, nil
}

// Run executes the pipeline for target. Every stage must succeed before the
// next one starts; nothing is retried. The returned RunResult is populated on
// failure too, with FailedStage and ExitCode describing what went wrong.
func (p *Pipeline) Run(ctx context.Context, target string) (result models.RunResult, err error) {
	result = models.RunResult{
		ID:        uuid.NewString(),
		Target:    target,
		StartedAt: time.Now(),
	}
	stage := "resolve"

	defer func() {
		result.Duration = time.Since(result.StartedAt)
		if err != nil {
			result.Status = models.RunFailed
			result.FailedStage = failedStage(err, stage)
			result.ExitCode = ExitCode(err)
			result.Error = err.Error()
			return
		}
		result.Status = models.RunSucceeded
		result.ExitCode = ExitOK
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	layout, err := p.resolver.Resolve(target)
	if err != nil {
		return result, err
	}
	result.Layout = layout
	p.logger.LogDebug(fmt.Sprintf("target %s: library=%s test=%s output=%s",
		target, layout.LibraryObjectDir, layout.TestObjectDir, layout.OutputDir))

	stage = "lock"
	unlock, err := lockOutput(layout.OutputDir)
	if err != nil {
		return result, err
	}
	defer func() {
		if unlockErr := unlock(); unlockErr != nil {
			p.logger.LogWarn(unlockErr.Error())
		}
	}()

	stage = executor.StageCollect.String()
	p.logger.LogBanner(bannerTitle(p.collector.tool))
	start := time.Now()
	record, err := p.collector.Collect(ctx, layout)
	if err != nil {
		return result, err
	}
	result.RecordPath = record
	p.logger.LogStageComplete("collect", time.Since(start))

	stage = executor.StageRender.String()
	p.logger.LogBanner(bannerTitle(p.reporter.tool))
	start = time.Now()
	reportDir, err := p.reporter.Generate(ctx, record, layout)
	if err != nil {
		return result, err
	}
	result.ReportDir = reportDir
	p.logger.LogStageComplete("render", time.Since(start))

	return result, nil
}

// lockOutput takes the non-blocking advisory lock for outputDir.
func lockOutput(outputDir string) (func() error, error) {
	lock := filelock.NewFileLock(filepath.Join(outputDir, LockFileName))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrOutputBusy, outputDir)
	}
	return lock.Unlock, nil
}

// bannerTitle names a stage after its tool, e.g. "LCOV" or "GENHTML".
func bannerTitle(tool executor.Tool) string {
	return strings.ToUpper(filepath.Base(tool.Name))
}
