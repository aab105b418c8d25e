package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/harrison/covgen/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeLogLevel(t *testing.T) {
	tests := map[string]string{
		"":        "info",
		"DEBUG":   "debug",
		" warn ":  "warn",
		"trace":   "trace",
		"verbose": "info",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeLogLevel(in), "input %q", in)
	}
}

func TestConsoleLoggerLevelFiltering(t *testing.T) {
	buf := new(bytes.Buffer)
	cl := NewConsoleLogger(buf, "warn")

	cl.LogTrace("trace message")
	cl.LogDebug("debug message")
	cl.LogInfo("info message")
	cl.LogWarn("warn message")
	cl.LogError("error message")

	output := buf.String()
	assert.NotContains(t, output, "trace message")
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "[WARN] warn message")
	assert.Contains(t, output, "[ERROR] error message")
}

func TestConsoleLoggerFormat(t *testing.T) {
	buf := new(bytes.Buffer)
	cl := NewConsoleLogger(buf, "info")

	cl.LogInfo("resolved layout")

	line := buf.String()
	// [HH:MM:SS] [INFO] resolved layout
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\] \[INFO\] resolved layout\n$`, line)
	assert.NotContains(t, line, "\x1b[", "buffers never receive ANSI colors")
}

func TestConsoleLoggerNilWriter(t *testing.T) {
	cl := NewConsoleLogger(nil, "trace")

	assert.NotPanics(t, func() {
		cl.LogInfo("dropped")
		cl.LogBanner("LCOV")
		cl.LogStageComplete("collect", time.Second)
		cl.LogSummary(models.RunResult{Status: models.RunFailed})
	})
}

func TestConsoleLoggerBanner(t *testing.T) {
	buf := new(bytes.Buffer)
	cl := NewConsoleLogger(buf, "info")

	cl.LogBanner("LCOV")

	assert.Equal(t, bannerRule+"\nLCOV\n"+bannerRule+"\n", buf.String())

	quiet := new(bytes.Buffer)
	NewConsoleLogger(quiet, "error").LogBanner("GENHTML")
	assert.Empty(t, quiet.String())
}

func TestConsoleLoggerStageComplete(t *testing.T) {
	buf := new(bytes.Buffer)
	cl := NewConsoleLogger(buf, "info")

	cl.LogStageComplete("collect", 90*time.Second)

	assert.Contains(t, buf.String(), "collect complete (1m30s)")
}

func TestConsoleLoggerSummary(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		buf := new(bytes.Buffer)
		cl := NewConsoleLogger(buf, "info")

		cl.LogSummary(models.RunResult{
			Target:     "Csv",
			Status:     models.RunSucceeded,
			RecordPath: "/p/tests/Csv/coverage.info",
			ReportDir:  "/p/tests/Csv/HTML",
			Duration:   5 * time.Second,
		})

		output := buf.String()
		assert.Contains(t, output, "=== Coverage Summary ===")
		assert.Contains(t, output, "Target: Csv")
		assert.Contains(t, output, "Status: SUCCESS")
		assert.Contains(t, output, "Record: /p/tests/Csv/coverage.info")
		assert.Contains(t, output, "Report: /p/tests/Csv/HTML")
		assert.Contains(t, output, "Duration: 5s")
	})

	t.Run("failure bypasses level filter", func(t *testing.T) {
		buf := new(bytes.Buffer)
		cl := NewConsoleLogger(buf, "error")

		cl.LogSummary(models.RunResult{
			Target:      "Bar",
			Status:      models.RunFailed,
			FailedStage: "collect",
			ExitCode:    3,
		})

		output := buf.String()
		assert.Contains(t, output, "Status: FAILED at collect (exit 3)")
		assert.NotContains(t, output, "Record:")
		assert.NotContains(t, output, "Report:")
	})
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Millisecond, "0s"},
		{5 * time.Second, "5s"},
		{time.Minute, "1m"},
		{90 * time.Second, "1m30s"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{time.Hour + time.Minute + time.Second, "1h1m1s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}

func TestIsTerminalNonFile(t *testing.T) {
	assert.False(t, isTerminal(new(bytes.Buffer)))
	assert.False(t, isTerminal(nil))
	assert.False(t, isTerminal(&strings.Builder{}))
}

func TestConsoleLoggerToolOutput(t *testing.T) {
	t.Run("hidden above trace", func(t *testing.T) {
		buf := new(bytes.Buffer)
		cl := NewConsoleLogger(buf, "debug")
		cl.LogToolOutput("lcov -c", "geninfo: ERROR: no .gcda files found\n")
		assert.Empty(t, buf.String())
	})

	t.Run("shown at trace", func(t *testing.T) {
		buf := new(bytes.Buffer)
		cl := NewConsoleLogger(buf, "trace")
		cl.LogToolOutput("lcov -c", "geninfo: ERROR: no .gcda files found\n")
		assert.Contains(t, buf.String(), "output of lcov -c:\ngeninfo: ERROR: no .gcda files found\n")
	})

	t.Run("blank output skipped", func(t *testing.T) {
		buf := new(bytes.Buffer)
		cl := NewConsoleLogger(buf, "trace")
		cl.LogToolOutput("genhtml", " \n")
		assert.Empty(t, buf.String())
	})
}
