package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/covgen/internal/models"
)

// FileLogger logs pipeline events to a per-run file in the log directory.
// It creates a timestamped run log and maintains a latest.log symlink
// pointing to the most recent run. It is thread-safe.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing to logDir with the given level.
// It creates the log directory if it doesn't exist, opens a timestamped
// run log file, and creates/updates the latest.log symlink.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Generate timestamped filename: run-YYYYMMDD-HHMMSS.log
	stamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", stamp))

	// Append: two runs within the same second share a file
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== covgen Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// shouldLog checks if a message at the given level should be logged.
func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogBanner records the start of a stage at INFO level.
func (fl *FileLogger) LogBanner(title string) {
	if !fl.shouldLog("info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] === %s ===\n", timestamp(), title))
}

// LogStageComplete records the completion of a stage at INFO level.
func (fl *FileLogger) LogStageComplete(stage string, duration time.Duration) {
	if !fl.shouldLog("info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] %s complete: duration %.1fs\n", timestamp(), stage, duration.Seconds()))
}

// LogSummary records the final outcome of the run. Failed runs are always written.
func (fl *FileLogger) LogSummary(result models.RunResult) {
	if result.Succeeded() && !fl.shouldLog("info") {
		return
	}

	ts := timestamp()
	status := "SUCCESS"
	if !result.Succeeded() {
		status = fmt.Sprintf("FAILED (stage: %s, exit code: %d)", result.FailedStage, result.ExitCode)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n[%s] === RUN SUMMARY ===\n", ts))
	sb.WriteString(fmt.Sprintf("[%s] Run ID:       %s\n", ts, result.ID))
	sb.WriteString(fmt.Sprintf("[%s] Target:       %s\n", ts, result.Target))
	sb.WriteString(fmt.Sprintf("[%s] Status:       %s\n", ts, status))
	if result.Error != "" {
		sb.WriteString(fmt.Sprintf("[%s] Error:        %s\n", ts, result.Error))
	}
	if result.RecordPath != "" {
		sb.WriteString(fmt.Sprintf("[%s] Record:       %s\n", ts, result.RecordPath))
	}
	if result.ReportDir != "" {
		sb.WriteString(fmt.Sprintf("[%s] Report:       %s\n", ts, result.ReportDir))
	}
	sb.WriteString(fmt.Sprintf("[%s] Total time:   %.1fs\n", ts, result.Duration.Seconds()))
	sb.WriteString(fmt.Sprintf("[%s] Completed at: %s\n", ts, time.Now().Format(time.RFC3339)))

	fl.writeRunLog(sb.String())
}

// LogToolOutput records the captured output of a failed tool invocation.
func (fl *FileLogger) LogToolOutput(command string, output string) {
	if strings.TrimSpace(output) == "" {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] --- output of %s ---\n%s\n", timestamp(), command, strings.TrimRight(output, "\n")))
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		// Flush after each write for real-time logging
		fl.runLog.Sync()
	}
}
