// Package logger provides logging implementations for covgen runs.
//
// The logger package offers level-filtered status logging, stage banners and
// run summaries. Implementations are thread-safe and support console and
// file destinations.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/covgen/internal/models"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// bannerRule delimits stage banners.
const bannerRule = "-------------------------------------"

// ConsoleLogger logs pipeline progress to a writer with timestamps and thread safety.
// Level lines are prefixed with [HH:MM:SS] timestamps; stage banners are not.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
// Returns false when NO_COLOR is set or the writer is not a TTY.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}

	return "info" // Default level
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo // Default to info if unknown
	}
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
// Format: "[HH:MM:SS] [LEVEL] <message>"
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	coloredLevel := level
	if cl.colorOutput {
		coloredLevel = colorLevel(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp(), coloredLevel, message)
}

// colorLevel wraps a level label in its ANSI color.
func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// LogBanner prints a stage banner at INFO level:
//
//	-------------------------------------
//	LCOV
//	-------------------------------------
func (cl *ConsoleLogger) LogBanner(title string) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.colorOutput {
		title = color.New(color.Bold).Sprint(title)
	}
	fmt.Fprintf(cl.writer, "%s\n%s\n%s\n", bannerRule, title, bannerRule)
}

// LogStageComplete logs the completion of a pipeline stage at INFO level.
// Format: "[HH:MM:SS] <stage> complete (<duration>)"
func (cl *ConsoleLogger) LogStageComplete(stage string, duration time.Duration) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	completeText := "complete"
	if cl.colorOutput {
		stage = color.New(color.Bold).Sprint(stage)
		completeText = color.New(color.FgGreen).Sprint(completeText)
	}
	fmt.Fprintf(cl.writer, "[%s] %s %s (%s)\n", timestamp(), stage, completeText, formatDuration(duration))
}

// LogToolOutput echoes the captured output of a failed tool at TRACE level.
// At other levels the output has already been streamed to the console.
func (cl *ConsoleLogger) LogToolOutput(command string, output string) {
	if cl.writer == nil || !cl.shouldLog("trace") || strings.TrimSpace(output) == "" {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	fmt.Fprintf(cl.writer, "[%s] output of %s:\n%s\n", timestamp(), command, strings.TrimRight(output, "\n"))
}

// LogSummary logs the run summary at INFO level, or at ERROR level for failed runs.
func (cl *ConsoleLogger) LogSummary(result models.RunResult) {
	if cl.writer == nil {
		return
	}
	if result.Succeeded() && !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	scheme := newColorScheme(cl.colorOutput)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s\n", ts, scheme.header("=== Coverage Summary ===")))
	sb.WriteString(fmt.Sprintf("[%s] %s\n", ts, scheme.metric("Target", result.Target)))
	sb.WriteString(fmt.Sprintf("[%s] %s\n", ts, scheme.status(result)))
	if result.RecordPath != "" {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", ts, scheme.metric("Record", result.RecordPath)))
	}
	if result.ReportDir != "" {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", ts, scheme.metric("Report", result.ReportDir)))
	}
	sb.WriteString(fmt.Sprintf("[%s] %s\n", ts, scheme.metric("Duration", formatDuration(result.Duration))))

	cl.writer.Write([]byte(sb.String()))
}

// timestamp returns the current wall clock as HH:MM:SS.
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}
