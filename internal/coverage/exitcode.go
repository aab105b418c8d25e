package coverage

import (
	"errors"

	"github.com/harrison/covgen/internal/executor"
)

// Process exit codes reported for pipeline outcomes.
const (
	ExitOK              = 0
	ExitFailure         = 1 // usage errors and anything not listed below
	ExitPrecondition    = 2 // missing directory or invalid target
	ExitCollection      = 3 // collector or filter failed
	ExitRender          = 4 // renderer failed
	ExitToolUnavailable = 5 // a tool binary could not be started
	ExitBusy            = 6 // another run holds the output directory
)

// ExitCode maps an error returned by Pipeline.Run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	switch {
	case errors.Is(err, ErrPrecondition):
		return ExitPrecondition
	case errors.Is(err, ErrOutputBusy):
		return ExitBusy
	case errors.Is(err, executor.ErrToolUnavailable):
		return ExitToolUnavailable
	}

	var toolErr *executor.ToolError
	if errors.As(err, &toolErr) {
		if toolErr.Stage == executor.StageRender {
			return ExitRender
		}
		return ExitCollection
	}

	return ExitFailure
}

// failedStage names the stage that produced err; fallback is the stage the
// pipeline was in when it stopped.
func failedStage(err error, fallback string) string {
	var toolErr *executor.ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Stage.String()
	}
	return fallback
}
