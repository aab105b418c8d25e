package cmd

import (
	"errors"

	"github.com/harrison/covgen/internal/coverage"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for an error returned by Execute.
// Errors without an explicit code (usage, configuration) exit with 1.
func ExitCode(err error) int {
	if err == nil {
		return coverage.ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return coverage.ExitFailure
}
