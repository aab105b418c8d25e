package logger

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harrison/covgen/internal/models"
)

// colorScheme defines consistent colors for summary lines.
// Green: success
// Red: failure
// Cyan: labels
// Colors are only applied when enabled is true.
type colorScheme struct {
	enabled bool
	success *color.Color
	fail    *color.Color
	label   *color.Color
	bold    *color.Color
}

// newColorScheme creates the standard color scheme for summaries.
func newColorScheme(enabled bool) *colorScheme {
	return &colorScheme{
		enabled: enabled,
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		label:   color.New(color.FgCyan),
		bold:    color.New(color.Bold),
	}
}

func (s *colorScheme) paint(c *color.Color, text string) string {
	if !s.enabled {
		return text
	}
	return c.Sprint(text)
}

// header formats a section header.
func (s *colorScheme) header(text string) string {
	return s.paint(s.bold, text)
}

// metric formats "label: value" with a colorized label.
func (s *colorScheme) metric(label string, value interface{}) string {
	return fmt.Sprintf("%s: %v", s.paint(s.label, label), value)
}

// status formats the run outcome, naming the failed stage and exit code on failure.
func (s *colorScheme) status(result models.RunResult) string {
	if result.Succeeded() {
		return s.metric("Status", s.paint(s.success, "SUCCESS"))
	}

	text := "FAILED"
	if result.FailedStage != "" {
		text = fmt.Sprintf("FAILED at %s (exit %d)", result.FailedStage, result.ExitCode)
	}
	return s.metric("Status", s.paint(s.fail, text))
}
