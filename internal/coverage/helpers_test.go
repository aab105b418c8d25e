package coverage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harrison/covgen/internal/config"
	"github.com/harrison/covgen/internal/executor"
)

const fakeRecord = "TN:\nSF:/src/lib/Csv/CsvParser.c\nDA:1,1\nend_of_record\n"

// fakeCall is one recorded CommandRunner invocation.
type fakeCall struct {
	Name string
	Args []string
}

// fakeRunner records invocations and delegates to handler.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []fakeCall
	handler func(name string, args []string) (executor.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (executor.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if f.handler == nil {
		return executor.Result{}, nil
	}
	return f.handler(name, args)
}

func (f *fakeRunner) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

// outputArg returns the value following "-o".
func outputArg(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-o" {
			return args[i+1]
		}
	}
	return ""
}

// toolBehaviour emulates lcov and genhtml: capture and --remove write a
// record to the -o file, rendering writes index.html into the -o directory.
func toolBehaviour(name string, args []string) (executor.Result, error) {
	out := outputArg(args)
	if out == "" {
		return executor.Result{ExitCode: 1, Output: "missing -o"}, nil
	}

	switch name {
	case "lcov":
		if err := os.WriteFile(out, []byte(fakeRecord), 0644); err != nil {
			return executor.Result{ExitCode: 1, Output: err.Error()}, nil
		}
	case "genhtml":
		if err := os.WriteFile(filepath.Join(out, "index.html"), []byte("<html></html>"), 0644); err != nil {
			return executor.Result{ExitCode: 1, Output: err.Error()}, nil
		}
	default:
		return executor.Result{ExitCode: -1}, fmt.Errorf("%w: %s", executor.ErrToolUnavailable, name)
	}
	return executor.Result{Duration: time.Millisecond}, nil
}

// testConfig returns a resolved configuration rooted in a temporary project.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("COVGEN_HOME", filepath.Join(t.TempDir(), "home"))

	cfg := config.DefaultConfig()
	cfg.ProjectRoot = t.TempDir()
	require.NoError(t, cfg.Resolve())
	return cfg
}

// makeTarget creates both instrumentation directories (with nested object
// directories) and the output directory for target.
func makeTarget(t *testing.T, cfg *config.Config, target string) {
	t.Helper()
	library, test := cfg.ObjectDirs(target)
	require.NoError(t, os.MkdirAll(filepath.Join(library, "parser", "internal"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(library, "content"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(test, "cases"), 0755))
	require.NoError(t, os.MkdirAll(cfg.OutputDir(target), 0755))
}

// recordingLogger captures every message for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	lines   []string
	banners []string
	outputs []string
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg)
}

func (l *recordingLogger) LogTrace(m string) { l.add("TRACE", m) }
func (l *recordingLogger) LogDebug(m string) { l.add("DEBUG", m) }
func (l *recordingLogger) LogInfo(m string)  { l.add("INFO", m) }
func (l *recordingLogger) LogWarn(m string)  { l.add("WARN", m) }
func (l *recordingLogger) LogError(m string) { l.add("ERROR", m) }

func (l *recordingLogger) LogBanner(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.banners = append(l.banners, title)
}

func (l *recordingLogger) LogStageComplete(stage string, d time.Duration) {
	l.add("INFO", stage+" complete")
}

func (l *recordingLogger) LogToolOutput(command, output string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs = append(l.outputs, command+": "+strings.TrimSpace(output))
}
