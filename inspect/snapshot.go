package inspect

import (
	"fmt"
	"strings"
	"time"

	"r2tabs/ui/layout"
)

// Snapshot represents a complete UI state at a point in time.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	// Version of the snapshot format.
	Version string `json:"version"`

	Terminal    TerminalInfo     `json:"terminal"`
	App         AppInfo          `json:"app"`
	Layout      LayoutInfo       `json:"layout"`
	Components  *Node            `json:"components"`
	Breakpoints []BreakpointInfo `json:"breakpoints"`
}

// TerminalInfo contains terminal dimensions.
type TerminalInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AppInfo contains application-level state.
type AppInfo struct {
	// State is the current app state, e.g. "default" or "browse".
	State string `json:"state"`
	// Overlay names the dialog on screen, if any.
	Overlay     string   `json:"overlay,omitempty"`
	TabCount    int      `json:"tab_count"`
	ActiveTab   int      `json:"active_tab"`
	ActiveTitle string   `json:"active_title,omitempty"`
	TabTitles   []string `json:"tab_titles,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// LayoutInfo contains layout configuration.
type LayoutInfo struct {
	Mode             string          `json:"mode"`
	TabsWidth        int             `json:"tabs_width"`
	TabsHeight       int             `json:"tabs_height"`
	PaneWidth        int             `json:"pane_width"`
	PaneHeight       int             `json:"pane_height"`
	PaneRows         int             `json:"pane_rows"`
	PaneCols         int             `json:"pane_cols"`
	MenuHeight       int             `json:"menu_height"`
	UseVerticalStack bool            `json:"use_vertical_stack"`
	Degradation      DegradationInfo `json:"degradation"`
}

// DegradationInfo contains active UI degradation flags.
type DegradationInfo struct {
	HideTabSummaries bool `json:"hide_tab_summaries"`
	HideTabDetails   bool `json:"hide_tab_details"`
	HideTabAge       bool `json:"hide_tab_age"`
	ShortMenu        bool `json:"short_menu"`
	ShowMinWarning   bool `json:"show_min_warning"`
}

// BreakpointInfo contains information about a responsive breakpoint.
type BreakpointInfo struct {
	Name      string `json:"name"`
	Threshold int    `json:"threshold"`
	Active    bool   `json:"active"`
	// Dimension is "width" or "height".
	Dimension string `json:"dimension"`
}

// NewSnapshot creates a new snapshot with current timestamp.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Timestamp: time.Now(),
		Version:   "1",
	}
}

// WithTerminal sets terminal info and returns the snapshot for chaining.
func (s *Snapshot) WithTerminal(width, height int) *Snapshot {
	s.Terminal = TerminalInfo{Width: width, Height: height}
	return s
}

// WithApp sets the application state.
func (s *Snapshot) WithApp(info AppInfo) *Snapshot {
	s.App = info
	return s
}

// WithLayout sets layout info from constraints and degradation.
func (s *Snapshot) WithLayout(c layout.Constraints, d layout.Degradation) *Snapshot {
	s.Layout = LayoutInfo{
		Mode:             c.Mode.String(),
		TabsWidth:        c.TabsWidth,
		TabsHeight:       c.TabsHeight,
		PaneWidth:        c.PaneWidth,
		PaneHeight:       c.PaneHeight,
		PaneRows:         c.PaneRows,
		PaneCols:         c.PaneCols,
		MenuHeight:       c.MenuHeight,
		UseVerticalStack: c.UseVerticalStack,
		Degradation: DegradationInfo{
			HideTabSummaries: d.HideTabSummaries,
			HideTabDetails:   d.HideTabDetails,
			HideTabAge:       d.HideTabAge,
			ShortMenu:        d.ShortMenu,
			ShowMinWarning:   d.ShowMinWarning,
		},
	}

	s.Breakpoints = []BreakpointInfo{
		{Name: "hide_summaries", Threshold: layout.SummaryHideHeight, Active: d.HideTabSummaries, Dimension: "height"},
		{Name: "hide_details", Threshold: layout.DetailsHideHeight, Active: d.HideTabDetails, Dimension: "height"},
		{Name: "hide_age", Threshold: layout.AgeHideWidth, Active: d.HideTabAge, Dimension: "width"},
		{Name: "short_menu", Threshold: layout.ShortMenuWidth, Active: d.ShortMenu, Dimension: "width"},
		{Name: "vertical_stack", Threshold: layout.MinWidth, Active: c.UseVerticalStack, Dimension: "width"},
	}
	return s
}

// WithComponents sets the component tree root.
func (s *Snapshot) WithComponents(root *Node) *Snapshot {
	s.Components = root
	return s
}

// ToText returns a human-readable text representation.
func (s *Snapshot) ToText() string {
	var b strings.Builder

	b.WriteString("=== UI Snapshot ===\n")
	fmt.Fprintf(&b, "Time: %s\n", s.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Terminal: %dx%d\n", s.Terminal.Width, s.Terminal.Height)
	fmt.Fprintf(&b, "State: %s", s.App.State)
	if s.App.Overlay != "" {
		fmt.Fprintf(&b, " (%s)", s.App.Overlay)
	}
	fmt.Fprintf(&b, "\nTabs: %d, active %d %q\n", s.App.TabCount, s.App.ActiveTab, s.App.ActiveTitle)

	b.WriteString("\n--- Layout ---\n")
	fmt.Fprintf(&b, "Mode: %s\n", s.Layout.Mode)
	fmt.Fprintf(&b, "Tabs: %dx%d\n", s.Layout.TabsWidth, s.Layout.TabsHeight)
	fmt.Fprintf(&b, "Pane: %dx%d (%d rows, %d cols)\n", s.Layout.PaneWidth, s.Layout.PaneHeight, s.Layout.PaneRows, s.Layout.PaneCols)
	fmt.Fprintf(&b, "Vertical Stack: %v\n", s.Layout.UseVerticalStack)

	b.WriteString("\n--- Active Breakpoints ---\n")
	for _, bp := range s.Breakpoints {
		status := "[ ]"
		if bp.Active {
			status = "[X]"
		}
		fmt.Fprintf(&b, "  %s %s (threshold: %d %s)\n", status, bp.Name, bp.Threshold, bp.Dimension)
	}

	if s.Components != nil {
		b.WriteString("\n--- Components ---\n")
		writeNodeText(&b, s.Components, 0)
	}
	return b.String()
}

func writeNodeText(b *strings.Builder, node *Node, indent int) {
	b.WriteString(strings.Repeat("  ", indent))
	b.WriteString(node.Type)
	if node.ID != "" {
		fmt.Fprintf(b, " [%s]", node.ID)
	}
	fmt.Fprintf(b, " (%dx%d)", node.Bounds.Width, node.Bounds.Height)
	if !node.Visible {
		b.WriteString(" hidden")
	}
	if node.Truncated != nil {
		fmt.Fprintf(b, " TRUNCATED(%d->%d)", node.Truncated.OriginalLength, node.Truncated.DisplayLength)
	}
	b.WriteString("\n")

	for _, child := range node.Children {
		writeNodeText(b, child, indent+1)
	}
}
