package coverage

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrPrecondition matches every failure detected before a tool runs.
	ErrPrecondition = errors.New("precondition failed")

	// ErrOutputBusy indicates another run holds the output directory lock.
	ErrOutputBusy = errors.New("output directory is in use by another covgen run")
)

// MissingPathError reports a required directory that does not exist.
type MissingPathError struct {
	Role string // "library object", "test object" or "output"
	Path string
	Err  error // underlying stat error, nil when the path is not a directory
}

// Error implements the error interface for MissingPathError.
func (e *MissingPathError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s directory %s is not a directory", e.Role, e.Path)
	case errors.Is(e.Err, fs.ErrNotExist):
		return fmt.Sprintf("%s directory %s does not exist", e.Role, e.Path)
	default:
		return fmt.Sprintf("%s directory %s is not accessible: %v", e.Role, e.Path, e.Err)
	}
}

// Unwrap returns the underlying stat error.
func (e *MissingPathError) Unwrap() error {
	return e.Err
}

// Is reports MissingPathError as a precondition failure.
func (e *MissingPathError) Is(target error) bool {
	return target == ErrPrecondition
}

// InvalidTargetError reports a target name that cannot be used as a path segment.
type InvalidTargetError struct {
	Target string
	Reason string
}

// Error implements the error interface for InvalidTargetError.
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q: %s", e.Target, e.Reason)
}

// Is reports InvalidTargetError as a precondition failure.
func (e *InvalidTargetError) Is(target error) bool {
	return target == ErrPrecondition
}
