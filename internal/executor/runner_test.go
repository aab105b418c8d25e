package executor

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// recordingRunner is a CommandRunner that returns canned results.
type recordingRunner struct {
	calls  [][]string
	result Result
	err    error
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.result, r.err
}

func TestExecRunnerSuccess(t *testing.T) {
	skipWithoutShell(t)

	runner := NewExecRunner("", nil)
	result, err := runner.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Output, "out")
	assert.Contains(t, result.Output, "err")
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	skipWithoutShell(t)

	runner := NewExecRunner("", nil)
	result, err := runner.Run(context.Background(), "sh", "-c", "echo failing; exit 7")
	require.NoError(t, err, "non-zero exit is reported through the result")
	assert.Equal(t, 7, result.ExitCode)
	assert.Contains(t, result.Output, "failing")
}

func TestExecRunnerMissingBinary(t *testing.T) {
	runner := NewExecRunner("", nil)
	result, err := runner.Run(context.Background(), filepath.Join(t.TempDir(), "no-such-tool"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolUnavailable))
	assert.Equal(t, -1, result.ExitCode)
}

func TestExecRunnerWorkDirAndStream(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	var stream bytes.Buffer
	runner := NewExecRunner(dir, &stream)

	result, err := runner.Run(context.Background(), "sh", "-c", "pwd")
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, result.Output, resolved)
	assert.Equal(t, result.Output, stream.String())
}

func TestExecRunnerContextTimeout(t *testing.T) {
	skipWithoutShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	runner := NewExecRunner("", nil)
	start := time.Now()
	_, err := runner.Run(ctx, "sh", "-c", "sleep 10")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestParseTool(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		wantName string
		wantArgs []string
		wantErr  bool
	}{
		{"bare", "lcov", "lcov", []string{}, false},
		{"with args", "lcov --rc branch_coverage=1", "lcov", []string{"--rc", "branch_coverage=1"}, false},
		{"quoted", `"/opt/my tools/genhtml" --legend`, "/opt/my tools/genhtml", []string{"--legend"}, false},
		{"empty", "   ", "", nil, true},
		{"unterminated quote", `lcov "oops`, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, err := ParseTool(tt.command)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, tool.Name)
			assert.Equal(t, tt.wantArgs, tool.Args)
		})
	}
}

func TestToolArgvDoesNotAlias(t *testing.T) {
	tool := Tool{Name: "lcov", Args: make([]string, 1, 8)}
	tool.Args[0] = "--quiet"

	a := tool.Argv("-c")
	b := tool.Argv("--remove")

	assert.Equal(t, []string{"--quiet", "-c"}, a)
	assert.Equal(t, []string{"--quiet", "--remove"}, b)
	assert.Equal(t, "lcov --quiet", tool.String())
}

func TestRunTool(t *testing.T) {
	tool := Tool{Name: "lcov", Args: []string{"--quiet"}}

	t.Run("success", func(t *testing.T) {
		runner := &recordingRunner{result: Result{ExitCode: 0, Output: "ok"}}
		result, err := RunTool(context.Background(), runner, StageCollect, tool, "-c")
		require.NoError(t, err)
		assert.Equal(t, "ok", result.Output)
		assert.Equal(t, [][]string{{"lcov", "--quiet", "-c"}}, runner.calls)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		runner := &recordingRunner{result: Result{ExitCode: 3, Output: "geninfo: ERROR"}}
		_, err := RunTool(context.Background(), runner, StageFilter, tool, "--remove")
		require.Error(t, err)

		var toolErr *ToolError
		require.True(t, errors.As(err, &toolErr))
		assert.Equal(t, StageFilter, toolErr.Stage)
		assert.Equal(t, 3, toolErr.ExitCode)
		assert.Equal(t, "geninfo: ERROR", toolErr.Output)
		assert.Equal(t, "lcov --quiet --remove", toolErr.CommandLine())
		assert.True(t, errors.Is(err, ErrCollectionFailed))
		assert.Contains(t, err.Error(), "filter stage: lcov exited with status 3")
	})

	t.Run("render failure", func(t *testing.T) {
		runner := &recordingRunner{result: Result{ExitCode: 1}}
		_, err := RunTool(context.Background(), runner, StageRender, Tool{Name: "genhtml"})
		assert.True(t, errors.Is(err, ErrRenderFailed))
		assert.False(t, errors.Is(err, ErrCollectionFailed))
	})

	t.Run("unavailable", func(t *testing.T) {
		runner := &recordingRunner{result: Result{ExitCode: -1}, err: ErrToolUnavailable}
		_, err := RunTool(context.Background(), runner, StageCollect, tool)
		assert.True(t, errors.Is(err, ErrToolUnavailable))
	})

	t.Run("cancelled context skips the runner", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		runner := &recordingRunner{}
		_, err := RunTool(ctx, runner, StageCollect, tool)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Empty(t, runner.calls)
	})
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "collect", StageCollect.String())
	assert.Equal(t, "filter", StageFilter.String())
	assert.Equal(t, "render", StageRender.String())
	assert.Equal(t, "unknown", Stage(42).String())
}
