package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"dreambatch/pkg/worker"
)

// renderWorkersTable renders one row per worker with a selection cursor.
func renderWorkersTable(snaps []worker.Snapshot, selected int, spinnerView string, theme Theme) string {
	if len(snaps) == 0 {
		return lipgloss.NewStyle().Foreground(theme.Muted).Render("No workers. Add matching .txt files to the prompt and session folders.")
	}

	var sb strings.Builder

	headers := []string{"", "Worker", "Prompts", "Sessions", "Ratio", "Progress", "Status"}
	widths := []int{2, 16, 18, 18, 6, 10, 22}

	headerParts := make([]string, 0, len(headers))
	for i, h := range headers {
		style := lipgloss.NewStyle().Width(widths[i]).Bold(true).Foreground(theme.Primary)
		headerParts = append(headerParts, style.Render(h))
	}
	sb.WriteString(strings.Join(headerParts, " "))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")

	for i, snap := range snaps {
		sb.WriteString(renderWorkerRow(snap, i == selected, spinnerView, widths, theme))
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderWorkerRow renders a single table row.
func renderWorkerRow(snap worker.Snapshot, selected bool, spinnerView string, widths []int, theme Theme) string {
	cursor := "  "
	if selected {
		cursor = "▸ "
	}

	progress := "-"
	if snap.PromptTotal > 0 {
		progress = fmt.Sprintf("%d/%d", snap.PromptIndex, snap.PromptTotal)
	}

	status := statusBadge(snap, spinnerView, theme)

	cells := []string{
		cursor,
		truncate(snap.Name, widths[1]),
		truncate(snap.PromptFile, widths[2]),
		truncate(snap.SessionFile, widths[3]),
		snap.Ratio,
		progress,
	}

	row := make([]string, 0, len(cells)+1)
	for i, c := range cells {
		row = append(row, lipgloss.NewStyle().Width(widths[i]).Render(c))
	}
	row = append(row, status)

	line := strings.Join(row, " ")
	if selected {
		return lipgloss.NewStyle().Bold(true).Render(line)
	}
	return line
}

// statusBadge colors the worker status, with a spinner while running.
func statusBadge(snap worker.Snapshot, spinnerView string, theme Theme) string {
	switch snap.Status {
	case worker.StatusRunning:
		return spinnerView + " " + lipgloss.NewStyle().Foreground(theme.Success).Render(snap.StatusText)
	case worker.StatusStopping:
		return lipgloss.NewStyle().Foreground(theme.Warning).Render(snap.StatusText)
	case worker.StatusError:
		return lipgloss.NewStyle().Foreground(theme.Error).Render(snap.StatusText)
	default:
		return lipgloss.NewStyle().Foreground(theme.Muted).Render(snap.StatusText)
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
