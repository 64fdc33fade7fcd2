package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"dreambatch/pkg/worker"
)

// renderLogLines formats a worker's event ring for the log viewport,
// oldest first.
func renderLogLines(events []worker.Event, theme Theme) string {
	if len(events) == 0 {
		return lipgloss.NewStyle().Foreground(theme.Muted).Render("No log output yet")
	}

	var sb strings.Builder
	for _, e := range events {
		ts := lipgloss.NewStyle().Foreground(theme.Muted).Render("[" + e.Time.Format("15:04:05") + "]")
		sb.WriteString(ts)
		sb.WriteString(" ")
		sb.WriteString(levelStyle(e.Level, theme).Render(e.Message))
		sb.WriteString("\n")
	}
	return sb.String()
}

// levelStyle maps an event level to its display style.
func levelStyle(level string, theme Theme) lipgloss.Style {
	switch level {
	case worker.LevelError:
		return lipgloss.NewStyle().Foreground(theme.Error)
	case worker.LevelWarn:
		return lipgloss.NewStyle().Foreground(theme.Warning)
	default:
		return lipgloss.NewStyle()
	}
}
