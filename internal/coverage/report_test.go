package coverage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/covgen/internal/executor"
	"github.com/harrison/covgen/internal/models"
)

func TestGenerate(t *testing.T) {
	out := t.TempDir()
	record := filepath.Join(out, "coverage.info")
	require.NoError(t, os.WriteFile(record, []byte(fakeRecord), 0644))

	runner := &fakeRunner{handler: toolBehaviour}
	gen := NewReportGenerator(runner, executor.Tool{Name: "genhtml"}, &recordingLogger{})

	reportDir, err := gen.Generate(context.Background(), record, models.Layout{OutputDir: out})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "HTML"), reportDir)
	assert.FileExists(t, filepath.Join(reportDir, "index.html"))

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "genhtml", calls[0].Name)
	assert.Equal(t, []string{"-o", reportDir, record}, calls[0].Args)
}

func TestGenerateReplacesPreviousReport(t *testing.T) {
	out := t.TempDir()
	record := filepath.Join(out, "coverage.info")
	require.NoError(t, os.WriteFile(record, []byte(fakeRecord), 0644))

	gen := NewReportGenerator(&fakeRunner{handler: toolBehaviour}, executor.Tool{Name: "genhtml"}, &recordingLogger{})

	reportDir, err := gen.Generate(context.Background(), record, models.Layout{OutputDir: out})
	require.NoError(t, err)

	sentinel := filepath.Join(reportDir, "stale.html")
	require.NoError(t, os.WriteFile(sentinel, []byte("old"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(reportDir, "src", "lib"), 0755))

	_, err = gen.Generate(context.Background(), record, models.Layout{OutputDir: out})
	require.NoError(t, err)
	assert.NoFileExists(t, sentinel)
	assert.NoDirExists(t, filepath.Join(reportDir, "src"))
	assert.FileExists(t, filepath.Join(reportDir, "index.html"))
}

func TestGenerateFailure(t *testing.T) {
	out := t.TempDir()
	runner := &fakeRunner{handler: func(string, []string) (executor.Result, error) {
		return executor.Result{ExitCode: 255, Output: "genhtml: ERROR: cannot read coverage.info"}, nil
	}}
	log := &recordingLogger{}
	gen := NewReportGenerator(runner, executor.Tool{Name: "genhtml"}, log)

	reportDir, err := gen.Generate(context.Background(), filepath.Join(out, "coverage.info"), models.Layout{OutputDir: out})
	require.Error(t, err)
	assert.Empty(t, reportDir)
	assert.True(t, errors.Is(err, executor.ErrRenderFailed))

	var toolErr *executor.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, executor.StageRender, toolErr.Stage)
	assert.Equal(t, 255, toolErr.ExitCode)
	require.Len(t, log.outputs, 1)
	assert.Contains(t, log.outputs[0], "cannot read coverage.info")
}

func TestGenerateMissingOutputDir(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing")
	runner := &fakeRunner{handler: toolBehaviour}
	gen := NewReportGenerator(runner, executor.Tool{Name: "genhtml"}, &recordingLogger{})

	_, err := gen.Generate(context.Background(), filepath.Join(out, "coverage.info"), models.Layout{OutputDir: out})
	require.Error(t, err)
	assert.Empty(t, runner.Calls())
}
