package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"r2tabs/keys"
)

var keyStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#655F5F",
	Dark:  "#7F7A7A",
})

var descStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#7A7474",
	Dark:  "#9C9494",
})

var sepStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#DDDADA",
	Dark:  "#3C3C3C",
})

var actionGroupStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

var separator = " • "
var verticalSeparator = " │ "

// MenuState represents different states the menu can be in
type MenuState int

const (
	StateDefault MenuState = iota
	StateEmpty
	StateOverlay
	StateView
)

// Menu is the key hint line under the tabs.
type Menu struct {
	groups        [][]keys.KeyName
	width, height int
	state         MenuState
	short         bool

	// keyDown is the key which is pressed. The default is -1.
	keyDown keys.KeyName
}

var emptyMenuGroups = [][]keys.KeyName{{keys.KeyNew, keys.KeyHelp, keys.KeyQuit}}

var defaultMenuGroups = [][]keys.KeyName{
	{keys.KeyNew, keys.KeyClose, keys.KeyNextTab, keys.KeyRestart},
	{keys.KeyStrings, keys.KeyHexdump, keys.KeyGraph, keys.KeyFind, keys.KeyGoto},
	{keys.KeyHelp, keys.KeyQuit},
}

var shortMenuGroups = [][]keys.KeyName{
	{keys.KeyNew, keys.KeyClose, keys.KeyNextTab},
	{keys.KeyHelp, keys.KeyQuit},
}

var overlayMenuGroups = [][]keys.KeyName{{keys.KeySubmit, keys.KeyEsc}}

var viewMenuGroups = [][]keys.KeyName{{keys.KeyUp, keys.KeyDown, keys.KeyEsc}}

func NewMenu() *Menu {
	m := &Menu{state: StateEmpty, keyDown: -1}
	m.updateOptions()
	return m
}

func (m *Menu) Keydown(name keys.KeyName) {
	m.keyDown = name
}

func (m *Menu) ClearKeydown() {
	m.keyDown = -1
}

// SetState updates the menu state and options accordingly
func (m *Menu) SetState(state MenuState) {
	m.state = state
	m.updateOptions()
}

// SetSize sets the width of the window. The menu will be centered horizontally within this width.
func (m *Menu) SetSize(width, height int, short bool) {
	m.width = width
	m.height = height
	m.short = short
	m.updateOptions()
}

func (m *Menu) updateOptions() {
	switch m.state {
	case StateEmpty:
		m.groups = emptyMenuGroups
	case StateOverlay:
		m.groups = overlayMenuGroups
	case StateView:
		m.groups = viewMenuGroups
	default:
		m.groups = defaultMenuGroups
		if m.short {
			m.groups = shortMenuGroups
		}
	}
}

func (m *Menu) String() string {
	var s strings.Builder
	for g, group := range m.groups {
		for n, name := range group {
			keyText, desc := keys.Help(name)
			if name == m.keyDown {
				s.WriteString(actionGroupStyle.Underline(true).Render(keyText))
				s.WriteString(" ")
				s.WriteString(actionGroupStyle.Underline(true).Render(desc))
			} else {
				s.WriteString(keyStyle.Render(keyText))
				s.WriteString(" ")
				s.WriteString(descStyle.Render(desc))
			}
			if n != len(group)-1 {
				s.WriteString(sepStyle.Render(separator))
			}
		}
		if g != len(m.groups)-1 {
			s.WriteString(sepStyle.Render(verticalSeparator))
		}
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s.String())
}
