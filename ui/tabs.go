package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"r2tabs/session"
	"r2tabs/ui/layout"
)

var titleStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Foreground(TextPrimary)

var detailStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Foreground(lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"})

var selectedTitleStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Background(lipgloss.Color("#dde4f0")).
	Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#1a1a1a"})

var selectedDetailStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Background(lipgloss.Color("#dde4f0")).
	Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#1a1a1a"})

var mainTitle = lipgloss.NewStyle().
	Background(lipgloss.Color("62")).
	Foreground(lipgloss.Color("230"))

var summaryStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}).
	Italic(true)

// TabList renders the open tabs as a vertical list with the active one
// highlighted.
type TabList struct {
	records       []session.Record
	activeID      int
	width, height int
	degradation   layout.Degradation
	spinner       *spinner.Model
}

func NewTabList(spinner *spinner.Model) *TabList {
	return &TabList{spinner: spinner}
}

// SetSize sets the height and width of the list.
func (l *TabList) SetSize(width, height int, d layout.Degradation) {
	l.width = width
	l.height = height
	l.degradation = d
}

// SetRecords replaces the tabs shown.
func (l *TabList) SetRecords(records []session.Record, activeID int) {
	l.records = records
	l.activeID = activeID
}

// NumTabs returns the number of tabs shown.
func (l *TabList) NumTabs() int {
	return len(l.records)
}

// fit truncates s to w cells, marking the cut with an ellipsis.
func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	return runewidth.Truncate(s, w, "…")
}

func (l *TabList) icon(rec session.Record) string {
	state := rec.Instance.State()
	loading := state == session.StateRestarting || (state == session.StateUnstarted && rec.Err == nil)
	if loading && l.spinner != nil {
		return l.spinner.View()
	}
	return StateIcon(state, rec.Err != nil)
}

func (l *TabList) renderTab(rec session.Record, idx int, selected bool) string {
	titleS, detailS := titleStyle, detailStyle
	if selected {
		titleS, detailS = selectedTitleStyle, selectedDetailStyle
	}
	inner := l.width - 2
	prefix := fmt.Sprintf("%d. ", idx)

	icon := l.icon(rec)
	titleWidth := inner - runewidth.StringWidth(prefix) - 2
	title := prefix + fit(rec.Title, titleWidth)
	title = title + strings.Repeat(" ", max(inner-runewidth.StringWidth(title)-2, 0)) + " " + icon
	lines := []string{titleS.Width(l.width).Render(title)}

	if !l.degradation.HideTabDetails {
		detail := "r2 " + rec.Version
		if rec.UseProxy {
			detail += " · hosted"
		}
		if !l.degradation.HideTabAge {
			detail += " · " + FormatRelativeTime(rec.CreatedAt)
		}
		lines = append(lines, detailS.Width(l.width).Render(fit(strings.Repeat(" ", len(prefix))+detail, inner)))
	}
	if !l.degradation.HideTabSummaries {
		summary := fit(rec.Summary, inner-len(prefix))
		lines = append(lines, detailS.Width(l.width).Render(strings.Repeat(" ", len(prefix))+summaryStyle.Render(summary)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// visible returns the range of tabs that fits the height, keeping the
// active tab in view.
func (l *TabList) visible(headerLines int) (int, int) {
	per := l.degradation.TabHeight() + 1
	room := max((l.height-headerLines)/per, 1)
	if len(l.records) <= room {
		return 0, len(l.records)
	}
	active := 0
	for n, rec := range l.records {
		if rec.ID == l.activeID {
			active = n
		}
	}
	start := max(active-room+1, 0)
	return start, start + room
}

func (l *TabList) String() string {
	const titleText = " Tabs "

	var b strings.Builder
	b.WriteString(lipgloss.Place(l.width, 1, lipgloss.Left, lipgloss.Bottom, mainTitle.Render(titleText)))
	b.WriteString("\n\n")

	if len(l.records) == 0 {
		b.WriteString(TextStyles.Muted.Render(fit(" No tabs open", l.width)))
		return lipgloss.Place(l.width, l.height, lipgloss.Left, lipgloss.Top, b.String())
	}

	start, end := l.visible(2)
	for n := start; n < end; n++ {
		rec := l.records[n]
		b.WriteString(l.renderTab(rec, n+1, rec.ID == l.activeID))
		if n != end-1 {
			b.WriteString("\n\n")
		}
	}
	return lipgloss.Place(l.width, l.height, lipgloss.Left, lipgloss.Top, b.String())
}
