package monitor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/tasksync/internal/models"
)

// renderView renders the complete TUI view
func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}

	if m.Width < MinWidth || m.Height < MinHeight {
		return m.renderCompact()
	}

	if m.Err != nil {
		return m.renderError()
	}

	if m.ShowHelp {
		return m.renderHelp()
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	// Borders and title take four rows
	queueHeight := m.Height - lipgloss.Height(header) - lipgloss.Height(footer) - 4
	queue := m.renderQueuePanel(max(queueHeight, 1))

	return lipgloss.JoinVertical(lipgloss.Left, header, queue, footer)
}

// renderCompact renders a minimal view for small terminals
func (m Model) renderCompact() string {
	var s strings.Builder
	s.WriteString("tasksync watch (resize for full view)\n\n")
	s.WriteString(fmt.Sprintf("Queued: %d\n", len(m.Queue)))
	s.WriteString(fmt.Sprintf("Pending: %d | Synced: %d | Error: %d\n",
		m.Counts[models.SyncStatusPending],
		m.Counts[models.SyncStatusSynced],
		m.Counts[models.SyncStatusError]))
	s.WriteString("\nq:quit s:sync r:refresh")
	return s.String()
}

// renderError renders an error message
func (m Model) renderError() string {
	return fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.Err)
}

func (m Model) renderHelp() string {
	lines := []string{
		titleStyle.Render("Keys"),
		"",
		"  s      Sync now",
		"  r      Refresh",
		"  j/k    Scroll queue",
		"  ?      Toggle help",
		"  q      Quit",
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderHeader() string {
	counts := strings.Join([]string{
		formatCount(models.SyncStatusPending, m.Counts[models.SyncStatusPending]),
		formatCount(models.SyncStatusSynced, m.Counts[models.SyncStatusSynced]),
		formatCount(models.SyncStatusError, m.Counts[models.SyncStatusError]),
	}, "   ")

	last := "never"
	if m.State != nil && m.State.LastSyncAt != nil {
		last = m.State.LastSyncAt.Local().Format(time.DateTime)
	}
	lastLine := subtleStyle.Render("Last sync: " + last)

	var status string
	switch {
	case m.Syncing:
		status = m.Spinner.View() + " syncing..."
	case m.LastErr != nil:
		status = errorStyle.Render("Sync failed: " + m.LastErr.Error())
	case m.LastResult != nil:
		r := m.LastResult
		status = fmt.Sprintf("Last pass: %d/%d ok", r.SuccessCount, r.Total)
		if r.ErrorCount > 0 {
			status += warningStyle.Render(fmt.Sprintf(", %d failed", r.ErrorCount))
		}
	}

	lines := []string{counts, lastLine}
	if status != "" {
		lines = append(lines, ansi.Truncate(status, m.Width, "…"))
	}
	return strings.Join(lines, "\n")
}

// renderQueuePanel lists queued operations oldest first.
func (m Model) renderQueuePanel(height int) string {
	width := m.Width - 4
	var content strings.Builder

	if len(m.Queue) == 0 {
		content.WriteString(subtleStyle.Render("Queue is empty"))
	}

	end := min(m.ScrollOffset+height, len(m.Queue))
	for i := m.ScrollOffset; i < end; i++ {
		content.WriteString(ansi.Truncate(m.formatQueueRow(m.Queue[i]), width, "…"))
		if i < end-1 {
			content.WriteString("\n")
		}
	}

	title := panelTitleStyle.Render(fmt.Sprintf("SYNC QUEUE (%d)", len(m.Queue)))
	return lipgloss.JoinVertical(lipgloss.Left, title,
		panelStyle.Width(m.Width-2).Height(height).Render(content.String()))
}

func (m Model) formatQueueRow(item *models.SyncQueueItem) string {
	parts := []string{
		formatOp(item.Operation),
		titleStyle.Render(item.TaskID),
		subtleStyle.Render(item.CreatedAt.Local().Format("15:04:05")),
	}
	if item.RetryCount > 0 {
		parts = append(parts, warningStyle.Render("retry "+strconv.Itoa(item.RetryCount)))
	}
	if item.LastError != nil && *item.LastError != "" {
		parts = append(parts, errorStyle.Render(*item.LastError))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderFooter() string {
	refreshed := ""
	if !m.LastRefresh.IsZero() {
		refreshed = "  refreshed " + m.LastRefresh.Local().Format("15:04:05")
	}
	return helpStyle.Render("q:quit  s:sync  r:refresh  j/k:scroll  ?:help" + refreshed)
}
