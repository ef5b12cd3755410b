// Package overlay holds the modal dialogs drawn on top of the tab view.
package overlay

import (
	"github.com/charmbracelet/lipgloss"
)

// WhitespaceOption styles the area around a placed overlay.
type WhitespaceOption = lipgloss.WhitespaceOption

var (
	colorAccent  = lipgloss.Color("#7aa2f7")
	colorMuted   = lipgloss.Color("#888888")
	colorDim     = lipgloss.Color("#666666")
	colorWarning = lipgloss.Color("#de613e")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2)
)

// Place centers content in a width x height area.
func Place(width, height int, content string, opts ...WhitespaceOption) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content, opts...)
}

// box renders content in the shared overlay frame. A width below the frame's
// own padding is ignored.
func box(width int, content string) string {
	style := boxStyle
	if width > 6 {
		style = style.Width(width)
	}
	return style.Render(content)
}
