// Package layout computes the sizes of the tab list, the terminal pane and
// the footer for a given terminal size.
package layout

// Width breakpoints
const (
	// MinWidth is the absolute minimum terminal width.
	MinWidth = 80

	// StandardWidth is the threshold for the standard layout.
	StandardWidth = 120

	// FullWidth is the threshold for the full layout.
	FullWidth = 160
)

// Height breakpoints
const (
	// MinHeight is the absolute minimum terminal height.
	MinHeight = 24

	// StandardHeight is the threshold for the standard layout.
	StandardHeight = 36

	// FullHeight is the threshold for the full layout.
	FullHeight = 50
)

// Tab list constraints
const (
	TabsMinWidth     = 22
	TabsMaxWidth     = 40
	TabsCompactWidth = 26
)

// Footer constraints
const (
	MenuMinHeight      = 1
	MenuStandardHeight = 2
	ErrBoxHeight       = 1

	// PaneBorder is the space taken by the pane border on each axis.
	PaneBorder = 2
)

// Overlay constraints
const (
	OverlayMaxWidth  = 90
	OverlayMaxHeight = 30
	OverlayMinWidth  = 40
	OverlayMinHeight = 10
	OverlayMargin    = 4
)

// LayoutMode represents the current layout mode based on terminal dimensions.
type LayoutMode int

const (
	LayoutFull LayoutMode = iota
	LayoutStandard
	LayoutCompact
	// LayoutMinimal is below the minimum size. The tab list is stacked on
	// top of the pane when the terminal is too narrow.
	LayoutMinimal
)

// String returns the string representation of the layout mode.
func (m LayoutMode) String() string {
	switch m {
	case LayoutFull:
		return "full"
	case LayoutStandard:
		return "standard"
	case LayoutCompact:
		return "compact"
	case LayoutMinimal:
		return "minimal"
	default:
		return "unknown"
	}
}

// DetermineMode returns the more restrictive of the width and height modes.
func DetermineMode(width, height int) LayoutMode {
	if width < MinWidth || height < MinHeight {
		return LayoutMinimal
	}
	widthMode := pick(width, FullWidth, StandardWidth)
	heightMode := pick(height, FullHeight, StandardHeight)
	if widthMode > heightMode {
		return widthMode
	}
	return heightMode
}

func pick(v, full, standard int) LayoutMode {
	switch {
	case v >= full:
		return LayoutFull
	case v >= standard:
		return LayoutStandard
	default:
		return LayoutCompact
	}
}
