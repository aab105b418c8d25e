// Package coverage drives the lcov/genhtml coverage pipeline for one build
// target:
//
//	target -> Resolver -> Collector (capture, filter) -> ReportGenerator
//
// The Resolver turns a target name into the two gcov instrumentation
// directories and the output directory, failing before any tool runs when
// one is missing. The Collector captures a raw record into
// <out>/tmp_coverage.info, filters it into <out>/coverage.info and always
// removes the raw record. The ReportGenerator recreates <out>/HTML from
// scratch and renders the filtered record into it.
//
// External tools are reached only through executor.CommandRunner. Records
// are opaque: nothing in this package reads their content.
//
// Runs against the same output directory must not overlap. Pipeline takes a
// non-blocking advisory lock on <out>/.covgen.lock and fails with
// ErrOutputBusy instead of waiting.
package coverage
