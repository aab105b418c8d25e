package models

import "time"

// RunStatus is the final state of a pipeline run.
type RunStatus string

const (
	RunSucceeded RunStatus = "success"
	RunFailed    RunStatus = "failed"
)

// RunResult describes one pipeline run, successful or not.
type RunResult struct {
	ID          string // uuid assigned when the run starts
	Target      string
	Status      RunStatus
	FailedStage string // empty on success
	ExitCode    int    // process exit code the CLI reports
	Error       string // empty on success
	Layout      Layout
	RecordPath  string // empty unless filtering succeeded
	ReportDir   string // empty unless rendering succeeded
	StartedAt   time.Time
	Duration    time.Duration
}

// Succeeded reports whether the run completed every stage.
func (r RunResult) Succeeded() bool {
	return r.Status == RunSucceeded
}
