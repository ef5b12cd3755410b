package layout

// Degradation holds flags indicating which UI features should be hidden or simplified.
type Degradation struct {
	HideTabSummaries bool // Hide the summary line of each tab (height < 30)
	HideTabDetails   bool // Hide the version line of each tab (height < 26)
	HideTabAge       bool // Hide the tab age (width < 100)
	ShortMenu        bool // Only list the tab keys in the menu (width < 110)

	ShowMinWarning   bool
	UseVerticalStack bool
}

// Threshold constants for degradation
const (
	SummaryHideHeight = 30
	DetailsHideHeight = 26
	AgeHideWidth      = 100
	ShortMenuWidth    = 110
)

// ComputeDegradation calculates which UI features should be degraded.
func ComputeDegradation(c Constraints) Degradation {
	return Degradation{
		HideTabSummaries: c.TerminalHeight < SummaryHideHeight,
		HideTabDetails:   c.TerminalHeight < DetailsHideHeight,
		HideTabAge:       c.TerminalWidth < AgeHideWidth,
		ShortMenu:        c.TerminalWidth < ShortMenuWidth,
		ShowMinWarning:   c.ShowMinWarning,
		UseVerticalStack: c.UseVerticalStack,
	}
}

// TabHeight returns the number of lines one tab entry takes.
func (d Degradation) TabHeight() int {
	h := 3
	if d.HideTabDetails {
		h--
	}
	if d.HideTabSummaries {
		h--
	}
	return h
}
