// Package output provides styled terminal output helpers (success, error,
// warning, task formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/tasksync/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Strikethrough(true)
	syncStyles   = map[models.SyncStatus]lipgloss.Style{
		models.SyncStatusPending: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.SyncStatusSynced:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.SyncStatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// Success prints a success message
func Success(format string, args ...any) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...any) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...any) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound          = "not_found"
	ErrCodeInvalidInput      = "invalid_input"
	ErrCodeDatabaseError     = "database_error"
	ErrCodeSyncInProgress    = "sync_in_progress"
	ErrCodeRemoteUnreachable = "remote_unreachable"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	data, _ := json.Marshal(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
	fmt.Println(string(data))
}

// FormatSyncStatus formats a sync status with color
func FormatSyncStatus(s models.SyncStatus) string {
	style, ok := syncStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// FormatTaskShort formats a task on one line, truncating the title to
// titleWidth cells when titleWidth > 0.
func FormatTaskShort(task *models.Task, titleWidth int) string {
	box := "[ ]"
	title := task.Title
	if titleWidth > 0 {
		title = ansi.Truncate(title, titleWidth, "…")
	}
	if task.Completed {
		box = "[x]"
		title = doneStyle.Render(title)
	}

	parts := []string{titleStyle.Render(task.ID), box, title, FormatSyncStatus(task.SyncStatus)}
	if task.Deleted {
		parts = append(parts, errorStyle.Render("[deleted]"))
	}
	return strings.Join(parts, "  ")
}

// FormatTaskLong formats a task with all of its sync metadata. A non-empty
// renderedDesc replaces the raw description.
func FormatTaskLong(task *models.Task, renderedDesc string, queued []*models.SyncQueueItem) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s: %s", task.ID, task.Title)))
	sb.WriteString("\n")
	state := "open"
	if task.Completed {
		state = "completed"
	}
	if task.Deleted {
		state += ", deleted"
	}
	sb.WriteString(fmt.Sprintf("State: %s | Sync: %s\n", state, FormatSyncStatus(task.SyncStatus)))
	sb.WriteString(subtleStyle.Render(fmt.Sprintf("Created %s, updated %s",
		FormatTimeAgo(task.CreatedAt), FormatTimeAgo(task.UpdatedAt))))
	sb.WriteString("\n")
	if task.ServerID != "" {
		sb.WriteString(fmt.Sprintf("Server ID: %s\n", task.ServerID))
	}
	if task.LastSyncedAt != nil {
		sb.WriteString(fmt.Sprintf("Last synced: %s\n", FormatTimeAgo(*task.LastSyncedAt)))
	}

	desc := renderedDesc
	if desc == "" {
		desc = task.Description
	}
	if desc != "" {
		sb.WriteString("\n")
		sb.WriteString(subtleStyle.Render("Description:"))
		sb.WriteString("\n")
		sb.WriteString(desc)
		sb.WriteString("\n")
	}

	if len(queued) > 0 {
		sb.WriteString("\n")
		sb.WriteString(SectionHeader("Queued operations"))
		sb.WriteString("\n")
		for _, item := range queued {
			sb.WriteString("  ")
			sb.WriteString(FormatQueueItem(item))
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// FormatQueueItem formats one pending operation.
func FormatQueueItem(item *models.SyncQueueItem) string {
	line := fmt.Sprintf("%s  %-6s  %s  queued %s",
		subtleStyle.Render(shortID(item.ID)), item.Operation, item.TaskID, FormatTimeAgo(item.CreatedAt))
	if item.RetryCount > 0 {
		line += warningStyle.Render(fmt.Sprintf("  retries=%d", item.RetryCount))
	}
	if item.LastError != nil && *item.LastError != "" {
		line += errorStyle.Render("  " + *item.LastError)
	}
	return line
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a styled section header
func SectionHeader(title string) string {
	return titleStyle.Render(title + ":")
}
