package models

import "path/filepath"

// Artifact names written under a target's output directory.
const (
	RawRecordName = "tmp_coverage.info"
	RecordName    = "coverage.info"
	ReportDirName = "HTML"
)

// Layout is the resolved set of directories for one target.
type Layout struct {
	Target           string
	LibraryObjectDir string // library-side instrumentation directory
	TestObjectDir    string // test-binary instrumentation directory
	OutputDir        string // receives the coverage records and the HTML report
}

// InstrumentationDirs returns the directories holding gcov counters, library first.
func (l Layout) InstrumentationDirs() []string {
	return []string{l.LibraryObjectDir, l.TestObjectDir}
}

// RawRecordPath is the transient unfiltered record.
func (l Layout) RawRecordPath() string {
	return filepath.Join(l.OutputDir, RawRecordName)
}

// RecordPath is the filtered record kept after the run.
func (l Layout) RecordPath() string {
	return filepath.Join(l.OutputDir, RecordName)
}

// ReportDir is the rendered HTML report directory.
func (l Layout) ReportDir() string {
	return filepath.Join(l.OutputDir, ReportDirName)
}
