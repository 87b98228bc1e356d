package monitor

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/tasksync/internal/models"
)

var (
	// Base colors
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	// Text styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	spinnerStyle = lipgloss.NewStyle().Foreground(primaryColor)

	syncStyles = map[models.SyncStatus]lipgloss.Style{
		models.SyncStatusPending: lipgloss.NewStyle().Foreground(warningColor),
		models.SyncStatusSynced:  lipgloss.NewStyle().Foreground(successColor),
		models.SyncStatusError:   lipgloss.NewStyle().Foreground(errorColor),
	}

	opStyles = map[models.Operation]lipgloss.Style{
		models.OperationCreate: lipgloss.NewStyle().Foreground(successColor),
		models.OperationUpdate: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.OperationDelete: lipgloss.NewStyle().Foreground(errorColor),
	}
)

// formatCount renders "label N" in the status's color
func formatCount(s models.SyncStatus, n int) string {
	style, ok := syncStyles[s]
	if !ok {
		style = subtleStyle
	}
	return style.Render(string(s)) + " " + titleStyle.Render(strconv.Itoa(n))
}

// formatOp renders a fixed-width operation badge
func formatOp(op models.Operation) string {
	label := fmt.Sprintf("%-6s", op)
	style, ok := opStyles[op]
	if !ok {
		return label
	}
	return style.Render(label)
}
