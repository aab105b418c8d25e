package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

const waitDelay = 2 * time.Second

// CommandRunner abstracts external tool execution for testability.
type CommandRunner interface {
	// Run executes name with args and waits for it to exit. A process that ran
	// to completion returns a nil error regardless of its exit status; the
	// status is reported in Result.ExitCode.
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// Result holds the outcome of a finished command.
type Result struct {
	ExitCode int
	Output   string // combined stdout/stderr
	Duration time.Duration
}

// ExecRunner executes commands via os/exec.
type ExecRunner struct {
	WorkDir string    // Working directory for commands (empty = current dir)
	Stream  io.Writer // Receives output as it is produced (nil = capture only)
}

// NewExecRunner creates a CommandRunner that executes real processes.
func NewExecRunner(workDir string, stream io.Writer) *ExecRunner {
	return &ExecRunner{WorkDir: workDir, Stream: stream}
}

// Run executes the command, capturing combined stdout/stderr.
// Returns an error wrapping ErrToolUnavailable when the process cannot be
// started, or the context error when ctx ends before the process exits.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	// Child processes that inherit the output pipe must not hold Wait open
	// after the tool itself was killed.
	cmd.WaitDelay = waitDelay
	if r.WorkDir != "" {
		cmd.Dir = r.WorkDir
	}

	var buf bytes.Buffer
	var out io.Writer = &buf
	if r.Stream != nil {
		out = io.MultiWriter(&buf, r.Stream)
	}
	// Same writer for both streams so exec shares a single pipe.
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Output:   buf.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return result, nil
	}

	result.ExitCode = -1
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return result, fmt.Errorf("%w: %s: %v", ErrToolUnavailable, name, err)
}

// Tool is an external program together with the leading arguments it is
// always invoked with, e.g. "lcov --rc branch_coverage=1".
type Tool struct {
	Name string
	Args []string
}

// ParseTool splits a shell-style command string into a Tool.
func ParseTool(command string) (Tool, error) {
	fields, err := shlex.Split(command)
	if err != nil {
		return Tool{}, fmt.Errorf("invalid tool command %q: %w", command, err)
	}
	if len(fields) == 0 {
		return Tool{}, fmt.Errorf("tool command is empty")
	}
	return Tool{Name: fields[0], Args: fields[1:]}, nil
}

// Argv returns the full argument list (without the program name) for an
// invocation that appends extra to the tool's leading arguments.
func (t Tool) Argv(extra ...string) []string {
	argv := make([]string, 0, len(t.Args)+len(extra))
	argv = append(argv, t.Args...)
	return append(argv, extra...)
}

// String renders the tool as a command line.
func (t Tool) String() string {
	return strings.Join(append([]string{t.Name}, t.Args...), " ")
}

// RunTool runs tool with extra arguments and converts any failure into a
// *ToolError attributed to stage. A non-zero exit wraps the stage's sentinel
// error; a start failure or cancellation wraps the runner's error.
func RunTool(ctx context.Context, runner CommandRunner, stage Stage, tool Tool, extra ...string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, NewToolError(stage, tool, extra, Result{ExitCode: -1}, err)
	}

	argv := tool.Argv(extra...)
	result, err := runner.Run(ctx, tool.Name, argv...)
	if err != nil {
		return result, NewToolError(stage, tool, extra, result, err)
	}
	if result.ExitCode != 0 {
		return result, NewToolError(stage, tool, extra, result, stage.failure())
	}
	return result, nil
}
