package overlay

import (
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// VersionOption is one selectable radare2 version.
type VersionOption struct {
	Version     string
	Name        string
	Description string
	// Other asks for a version by name instead of carrying one.
	Other bool
}

// VersionSelectorOptions seeds a VersionSelectorOverlay.
type VersionSelectorOptions struct {
	Default string
	// Last is the version most recently opened, offered second.
	Last string
	// Cached lists the versions already present in the binary cache.
	Cached []string
	// HostedAvailable enables the hosted proxy toggle.
	HostedAvailable bool
	UseProxy        bool
	WantCache       bool
}

// VersionSelectorOverlay picks the version and transport of a new tab.
type VersionSelectorOverlay struct {
	Dismissed bool
	Selected  *VersionOption
	UseProxy  bool
	WantCache bool

	hostedAvailable bool
	options         []VersionOption
	cursor          int
	width           int
}

// NewVersionSelectorOverlay creates a version selector. The default version
// comes first, then the last opened one, the other cached versions and a
// free-form entry.
func NewVersionSelectorOverlay(opts VersionSelectorOptions) *VersionSelectorOverlay {
	cached := make(map[string]bool, len(opts.Cached))
	for _, v := range opts.Cached {
		cached[v] = true
	}

	desc := "Configured default."
	if cached[opts.Default] {
		desc += " Cached locally."
	}
	options := []VersionOption{{
		Version:     opts.Default,
		Name:        "radare2 " + opts.Default,
		Description: desc,
	}}

	if opts.Last != "" && opts.Last != opts.Default {
		desc := "Last opened."
		if cached[opts.Last] {
			desc += " Cached locally."
		}
		options = append(options, VersionOption{
			Version:     opts.Last,
			Name:        "radare2 " + opts.Last,
			Description: desc,
		})
	}

	others := make([]string, 0, len(opts.Cached))
	for v := range cached {
		if v != opts.Default && v != opts.Last {
			others = append(others, v)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(others)))
	for _, v := range others {
		options = append(options, VersionOption{
			Version:     v,
			Name:        "radare2 " + v,
			Description: "Cached locally.",
		})
	}
	options = append(options, VersionOption{
		Name:        "Other version…",
		Description: "Enter a release tag by hand.",
		Other:       true,
	})

	return &VersionSelectorOverlay{
		UseProxy:        opts.UseProxy && opts.HostedAvailable,
		WantCache:       opts.WantCache,
		hostedAvailable: opts.HostedAvailable,
		options:         options,
		width:           60,
	}
}

// HandleKeyPress processes a key press and updates the state
func (m *VersionSelectorOverlay) HandleKeyPress(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "p":
		if m.hostedAvailable {
			m.UseProxy = !m.UseProxy
		}
	case "c":
		m.WantCache = !m.WantCache
	case "enter":
		opt := m.options[m.cursor]
		m.Selected = &opt
		m.Dismissed = true
		return true
	case "esc":
		m.Dismissed = true
		return true
	}
	return false
}

// moveCursor moves the cursor up or down, wrapping around at the ends.
func (m *VersionSelectorOverlay) moveCursor(delta int) {
	n := len(m.options)
	m.cursor = ((m.cursor+delta)%n + n) % n
}

// Render renders the version selector overlay
func (m *VersionSelectorOverlay) Render() string {
	selectedStyle := lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	normalStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	descStyle := lipgloss.NewStyle().
		Foreground(colorMuted).
		PaddingLeft(4)

	var content strings.Builder
	content.WriteString(titleStyle.Render("Open With radare2"))
	content.WriteString("\n\n")

	for i, opt := range m.options {
		prefix, style := "  ", normalStyle
		if i == m.cursor {
			prefix, style = "> ", selectedStyle
		}
		content.WriteString(prefix)
		content.WriteString(style.Render(opt.Name))
		content.WriteString("\n")
		content.WriteString(descStyle.Render(opt.Description))
		content.WriteString("\n")
	}
	content.WriteString("\n")

	proxy := toggle(m.UseProxy) + " hosted proxy"
	if !m.hostedAvailable {
		proxy = lipgloss.NewStyle().Foreground(colorDim).Strikethrough(true).Render("[ ] hosted proxy") + " (not configured)"
	}
	content.WriteString(proxy)
	content.WriteString("\n")
	content.WriteString(toggle(m.WantCache) + " keep in cache")
	content.WriteString("\n\n")

	content.WriteString(helpStyle.Render("[Enter] Select  [p] Proxy  [c] Cache  [Esc] Cancel"))
	return box(m.width, content.String())
}

func toggle(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

// SetWidth sets the width of the overlay
func (m *VersionSelectorOverlay) SetWidth(width int) {
	m.width = width
}

// GetSelected returns the chosen option, or nil when the dialog was canceled.
func (m *VersionSelectorOverlay) GetSelected() *VersionOption {
	return m.Selected
}
