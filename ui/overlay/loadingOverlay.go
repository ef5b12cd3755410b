package overlay

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"r2tabs/loader"
	"r2tabs/ui"
)

// LoadingOverlay shows the download progress of a radare2 package.
type LoadingOverlay struct {
	// Title displayed at the top
	title string
	// Current status message
	status string
	// Spinner for the loading animation
	spinner *spinner.Model
	bar     progress.Model
	percent float64

	width int
}

// NewLoadingOverlay creates a new loading screen overlay
func NewLoadingOverlay(title string, spinner *spinner.Model) *LoadingOverlay {
	return &LoadingOverlay{
		title:   title,
		status:  loader.PhaseInitializing.String(),
		spinner: spinner,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		width:   50,
	}
}

// SetProgress updates the bar and status line from a loader report.
func (l *LoadingOverlay) SetProgress(p loader.Progress) {
	l.percent = p.Percent
	switch {
	case p.Phase == loader.PhaseDownloading && p.Total > 0:
		l.status = fmt.Sprintf("%s %s / %s", p.Phase, ui.FormatBytes(p.Loaded), ui.FormatBytes(p.Total))
	case p.Phase == loader.PhaseDownloading && p.Loaded > 0:
		l.status = fmt.Sprintf("%s %s", p.Phase, ui.FormatBytes(p.Loaded))
	default:
		l.status = p.Phase.String()
	}
}

// SetStatus updates the current status message
func (l *LoadingOverlay) SetStatus(status string) {
	l.status = status
}

// Percent returns the last reported percentage.
func (l *LoadingOverlay) Percent() float64 {
	return l.percent
}

// SetWidth sets the overlay width
func (l *LoadingOverlay) SetWidth(width int) {
	l.width = width
	l.bar.Width = max(width-8, 10)
}

// Render renders the loading overlay
func (l *LoadingOverlay) Render() string {
	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	content := titleStyle.Render(l.title) + "\n\n"
	if l.spinner != nil {
		content += l.spinner.View() + " "
	}
	content += statusStyle.Render(fmt.Sprintf("%s (%.0f%%)", l.status, l.percent)) + "\n\n"
	content += l.bar.ViewAs(l.percent / 100)

	return box(l.width, content)
}
