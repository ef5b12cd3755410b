package layout

// Constraints holds the computed sizes of every component.
type Constraints struct {
	TerminalWidth  int
	TerminalHeight int

	Mode LayoutMode

	TabsWidth  int
	TabsHeight int

	// PaneWidth and PaneHeight include the border.
	PaneWidth  int
	PaneHeight int
	// PaneRows and PaneCols are the size of the emulated terminal inside
	// the border; instances are resized to match.
	PaneRows int
	PaneCols int

	MenuHeight   int
	ErrBoxHeight int

	UseVerticalStack bool
	ShowMinWarning   bool
}

// ComputeConstraints calculates layout constraints for the given terminal dimensions.
func ComputeConstraints(width, height int) Constraints {
	c := Constraints{
		TerminalWidth:  width,
		TerminalHeight: height,
		Mode:           DetermineMode(width, height),
		ErrBoxHeight:   ErrBoxHeight,
		ShowMinWarning: width < MinWidth || height < MinHeight,
	}

	c.MenuHeight = MenuMinHeight
	if c.Mode == LayoutFull || c.Mode == LayoutStandard {
		c.MenuHeight = MenuStandardHeight
	}
	contentHeight := max(height-c.MenuHeight-c.ErrBoxHeight, 1)

	if width < MinWidth {
		c.UseVerticalStack = true
		c.TabsWidth = width
		c.TabsHeight = contentHeight / 4
		c.PaneWidth = width
		c.PaneHeight = contentHeight - c.TabsHeight
	} else {
		c.TabsWidth = tabsWidth(width, c.Mode)
		c.TabsHeight = contentHeight
		c.PaneWidth = width - c.TabsWidth
		c.PaneHeight = contentHeight
	}

	c.PaneRows = max(c.PaneHeight-PaneBorder, 1)
	c.PaneCols = max(c.PaneWidth-PaneBorder, 1)
	return c
}

func tabsWidth(total int, mode LayoutMode) int {
	switch mode {
	case LayoutFull:
		return clamp(total/5, TabsMinWidth, TabsMaxWidth)
	case LayoutStandard:
		return clamp(total/4, TabsMinWidth, TabsMaxWidth)
	case LayoutCompact:
		return clamp(total*3/10, TabsMinWidth, TabsCompactWidth)
	default:
		return TabsMinWidth
	}
}

// ComputeOverlaySize calculates constrained overlay dimensions.
func ComputeOverlaySize(termWidth, termHeight int, preferredWidth, preferredHeight int) (int, int) {
	maxW := termWidth - OverlayMargin*2
	maxH := termHeight - OverlayMargin*2

	w := clamp(preferredWidth, OverlayMinWidth, min(maxW, OverlayMaxWidth))
	h := clamp(preferredHeight, OverlayMinHeight, min(maxH, OverlayMaxHeight))
	return w, h
}

func clamp(value, minVal, maxVal int) int {
	if maxVal < minVal {
		maxVal = minVal
	}
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
