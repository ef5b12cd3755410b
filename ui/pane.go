package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/ansi"

	"r2tabs/session/terminal"
)

const fallbackText = `
          ____
     _ __|___ \
    | '__| __) |
    | |   / __/
    |_|  |_____|  tabs

  No tab open. Press ctrl+n to open a binary.`

// TerminalPane shows the emulated screen of the active tab.
type TerminalPane struct {
	width, height int
	title         string
	screen        *terminal.Screen
	// overlay replaces the screen contents, e.g. with a scrape result.
	overlay string
}

func NewTerminalPane() *TerminalPane {
	return &TerminalPane{}
}

// SetSize sets the outer size of the pane, border included.
func (p *TerminalPane) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetScreen shows screen, or the fallback text when screen is nil.
func (p *TerminalPane) SetScreen(title string, screen *terminal.Screen) {
	p.title = title
	p.screen = screen
}

// SetOverlay replaces the screen with text until cleared with "".
func (p *TerminalPane) SetOverlay(text string) {
	p.overlay = text
}

func (p *TerminalPane) body() string {
	switch {
	case p.overlay != "":
		return p.overlay
	case p.screen == nil:
		return TextStyles.Muted.Render(fallbackText)
	default:
		return p.screen.Buffer().Render()
	}
}

func (p *TerminalPane) String() string {
	rows := max(p.height-2, 1)
	cols := max(p.width-2, 1)

	lines := strings.Split(p.body(), "\n")
	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}
	content := lipgloss.NewStyle().
		Width(cols).
		Height(rows).
		MaxWidth(cols).
		MaxHeight(rows).
		Render(strings.Join(lines, "\n"))

	box := PaneStyle(p.screen != nil).Render(content)
	if p.title == "" {
		return box
	}
	// Write the title into the top border.
	boxLines := strings.SplitN(box, "\n", 2)
	if len(boxLines) == 2 {
		label := TextStyles.Secondary.Render(" " + fit(p.title, cols-4) + " ")
		border := lipgloss.NewStyle().Foreground(PaneStyle(p.screen != nil).GetBorderTopForeground())
		boxLines[0] = border.Render("╭─") + label + border.Render(strings.Repeat("─", max(cols-ansi.PrintableRuneWidth(label)-1, 0))+"╮")
		box = boxLines[0] + "\n" + boxLines[1]
	}
	return box
}
