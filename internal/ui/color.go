// Package ui provides terminal output styling for agentpack.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/agentpack/agentpack/internal/syncer"
)

// Color function types for styled output.
var (
	// Success is used for successful operations (green).
	Success = color.New(color.FgGreen).SprintFunc()
	// Error is used for errors and failures (red).
	Error = color.New(color.FgRed).SprintFunc()
	// Warning is used for warnings and cautions (yellow).
	Warning = color.New(color.FgYellow).SprintFunc()
	// Info is used for informational messages (cyan).
	Info = color.New(color.FgCyan).SprintFunc()
	// Bold is used for emphasis.
	Bold = color.New(color.Bold).SprintFunc()
	// Dim is used for secondary information (faint).
	Dim = color.New(color.Faint).SprintFunc()
	// Header is used for section headers (bold cyan).
	Header = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// Status symbols.
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolSkipped = "-"
)

// StatusSuccess returns a green checkmark with optional message.
func StatusSuccess(msg string) string {
	if msg == "" {
		return Success(SymbolSuccess)
	}
	return Success(SymbolSuccess) + " " + msg
}

// StatusError returns a red X with optional message.
func StatusError(msg string) string {
	if msg == "" {
		return Error(SymbolError)
	}
	return Error(SymbolError) + " " + msg
}

// StatusWarning returns a yellow warning with optional message.
func StatusWarning(msg string) string {
	if msg == "" {
		return Warning(SymbolWarning)
	}
	return Warning(SymbolWarning) + " " + msg
}

// StatusSkipped returns a dimmed skip symbol with optional message.
func StatusSkipped(msg string) string {
	if msg == "" {
		return Dim(SymbolSkipped)
	}
	return Dim(SymbolSkipped) + " " + msg
}

// RenderSyncResult renders a sync result as per-tool count lines followed
// by a failure list.
func RenderSyncResult(result *syncer.Result, tools []string) string {
	var b strings.Builder

	for _, t := range tools {
		c := result.CountsFor(t)
		line := fmt.Sprintf("%s: %d installed, %d updated, %d pruned",
			Bold(t), c.Installed, c.Updated, c.Pruned)
		if c.Failed > 0 {
			line += ", " + Error(fmt.Sprintf("%d failed", c.Failed))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if migrated := result.Migrated(); len(migrated) > 0 {
		b.WriteString(Dim(fmt.Sprintf("%d legacy install(s) migrated\n", len(migrated))))
	}

	for _, f := range result.Failures() {
		label := f.Dependency
		if label == "" {
			label = f.Name
		}
		b.WriteString(StatusError(fmt.Sprintf("%s (%s): %v", label, f.Tool, f.Err)))
		b.WriteString("\n")
	}

	return b.String()
}

// DisableColors disables all color output, for piped output or NO_COLOR.
func DisableColors() {
	color.NoColor = true
}

// EnableColors enables color output.
func EnableColors() {
	color.NoColor = false
}

// IsColorEnabled returns whether colors are currently enabled.
func IsColorEnabled() bool {
	return !color.NoColor
}
