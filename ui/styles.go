package ui

import (
	"github.com/charmbracelet/lipgloss"

	"r2tabs/session"
)

// Status colors. Each state has a distinct color and icon so it reads
// without color too.
var (
	StatusSuccess = lipgloss.AdaptiveColor{Light: "#22C55E", Dark: "#22C55E"}
	StatusRunning = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"}
	StatusWarning = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#F59E0B"}
	StatusError   = lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#EF4444"}
	StatusPaused  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
)

// UI chrome colors
var (
	Primary            = lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#7D56F4"}
	Border             = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#3C3C3C"}
	BorderFocus        = lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#7D56F4"}
	TextPrimary        = lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#dddddd"}
	TextSecondary      = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	TextMuted          = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}
	BackgroundSubtle   = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#2a2a2a"}
	BackgroundSelected = lipgloss.AdaptiveColor{Light: "#dde4f0", Dark: "#3C3C4C"}
)

const (
	IconRunning = "●"
	IconPending = "○"
	IconError   = "×"
	IconStopped = "⏸"
)

// StatusStyles contains pre-built styles for each status type
var StatusStyles = struct {
	Success lipgloss.Style
	Running lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Paused  lipgloss.Style
}{
	Success: lipgloss.NewStyle().Foreground(StatusSuccess),
	Running: lipgloss.NewStyle().Foreground(StatusRunning),
	Warning: lipgloss.NewStyle().Foreground(StatusWarning),
	Error:   lipgloss.NewStyle().Foreground(StatusError),
	Paused:  lipgloss.NewStyle().Foreground(StatusPaused),
}

// TextStyles contains pre-built styles for text elements
var TextStyles = struct {
	Primary   lipgloss.Style
	Secondary lipgloss.Style
	Muted     lipgloss.Style
}{
	Primary:   lipgloss.NewStyle().Foreground(TextPrimary),
	Secondary: lipgloss.NewStyle().Foreground(TextSecondary),
	Muted:     lipgloss.NewStyle().Foreground(TextMuted),
}

// StateIcon returns the styled icon of a tab. A tab that failed to start
// shows the error icon whatever its instance state.
func StateIcon(state session.State, failed bool) string {
	if failed {
		return StatusStyles.Error.Render(IconError)
	}
	switch state {
	case session.StateRunning:
		return StatusStyles.Success.Render(IconRunning)
	case session.StateRestarting:
		return StatusStyles.Warning.Render(IconPending)
	case session.StateUnstarted:
		return StatusStyles.Running.Render(IconPending)
	default:
		return StatusStyles.Paused.Render(IconStopped)
	}
}

// PaneStyle is the border around the terminal pane.
func PaneStyle(focused bool) lipgloss.Style {
	color := Border
	if focused {
		color = BorderFocus
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color)
}

// OverlayStyle creates a style for overlay/modal containers
func OverlayStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderFocus).
		Padding(1, 2)
}
