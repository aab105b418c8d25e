package executor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCollectionFailed indicates the collector or filter exited with non-zero status.
	ErrCollectionFailed = errors.New("coverage collection failed")

	// ErrRenderFailed indicates the report renderer exited with non-zero status.
	ErrRenderFailed = errors.New("report rendering failed")

	// ErrToolUnavailable indicates an external tool could not be started.
	ErrToolUnavailable = errors.New("tool unavailable")
)

// Stage identifies which external tool invocation failed.
type Stage int

const (
	// StageCollect is the raw coverage capture.
	StageCollect Stage = iota
	// StageFilter removes excluded entries from the raw record.
	StageFilter
	// StageRender renders the HTML report.
	StageRender
)

// String returns the string representation of Stage.
func (s Stage) String() string {
	switch s {
	case StageCollect:
		return "collect"
	case StageFilter:
		return "filter"
	case StageRender:
		return "render"
	default:
		return "unknown"
	}
}

// failure returns the sentinel error reported when the stage's tool exits non-zero.
func (s Stage) failure() error {
	if s == StageRender {
		return ErrRenderFailed
	}
	return ErrCollectionFailed
}

// ToolError describes a failed external tool invocation.
type ToolError struct {
	Stage    Stage
	Command  []string // program name followed by all arguments
	ExitCode int      // -1 when the process did not exit normally
	Output   string   // captured combined output
	Err      error
}

// NewToolError builds a ToolError for tool invoked with extra arguments.
func NewToolError(stage Stage, tool Tool, extra []string, result Result, err error) *ToolError {
	return &ToolError{
		Stage:    stage,
		Command:  append([]string{tool.Name}, tool.Argv(extra...)...),
		ExitCode: result.ExitCode,
		Output:   result.Output,
		Err:      err,
	}
}

// Error implements the error interface for ToolError.
func (e *ToolError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s stage: %s", e.Stage, e.Command[0]))
	if e.ExitCode > 0 {
		sb.WriteString(fmt.Sprintf(" exited with status %d", e.ExitCode))
	}
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// CommandLine returns the failed invocation as a single string.
func (e *ToolError) CommandLine() string {
	return strings.Join(e.Command, " ")
}
