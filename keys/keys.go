package keys

import (
	"github.com/charmbracelet/bubbles/key"
)

type KeyName int

const (
	// Tab management.
	KeyNew KeyName = iota
	KeyClose
	KeyNextTab
	KeyPrevTab
	KeyRestartAll
	KeyQuit
	KeyHelp

	// Scrape views.
	KeyStrings
	KeyHexdump
	KeyGraph

	// Keys routed to the active instance.
	KeyInterrupt
	KeyPaste
	KeyRestart
	KeyClear
	KeyFind
	KeyGoto
	KeySubmit
	KeyHistoryPrev
	KeyHistoryNext
	KeyErase

	// Overlay navigation.
	KeyEsc
	KeyUp
	KeyDown
)

// GlobalKeyStringsMap is a global, immutable map string to keybinding.
var GlobalKeyStringsMap = map[string]KeyName{
	"ctrl+n":    KeyNew,
	"ctrl+w":    KeyClose,
	"tab":       KeyNextTab,
	"shift+tab": KeyPrevTab,
	"ctrl+t":    KeyRestartAll,
	"ctrl+q":    KeyQuit,
	"f1":        KeyHelp,

	"ctrl+e": KeyStrings,
	"ctrl+x": KeyHexdump,
	"ctrl+a": KeyGraph,

	"ctrl+c":    KeyInterrupt,
	"ctrl+v":    KeyPaste,
	"ctrl+r":    KeyRestart,
	"ctrl+l":    KeyClear,
	"ctrl+f":    KeyFind,
	"ctrl+g":    KeyGoto,
	"enter":     KeySubmit,
	"up":        KeyHistoryPrev,
	"down":      KeyHistoryNext,
	"backspace": KeyErase,
}

// GlobalkeyBindings is a global, immutable map of KeyName to keybinding.
var GlobalkeyBindings = map[KeyName]key.Binding{
	KeyNew: key.NewBinding(
		key.WithKeys("ctrl+n"),
		key.WithHelp("ctrl+n", "new tab"),
	),
	KeyClose: key.NewBinding(
		key.WithKeys("ctrl+w"),
		key.WithHelp("ctrl+w", "close"),
	),
	KeyNextTab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next"),
	),
	KeyPrevTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev"),
	),
	KeyRestartAll: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "restart all"),
	),
	KeyQuit: key.NewBinding(
		key.WithKeys("ctrl+q"),
		key.WithHelp("ctrl+q", "quit"),
	),
	KeyHelp: key.NewBinding(
		key.WithKeys("f1"),
		key.WithHelp("f1", "help"),
	),
	KeyStrings: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("ctrl+e", "strings"),
	),
	KeyHexdump: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "hexdump"),
	),
	KeyGraph: key.NewBinding(
		key.WithKeys("ctrl+a"),
		key.WithHelp("ctrl+a", "graph"),
	),
	KeyInterrupt: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "interrupt"),
	),
	KeyPaste: key.NewBinding(
		key.WithKeys("ctrl+v"),
		key.WithHelp("ctrl+v", "paste"),
	),
	KeyRestart: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "restart"),
	),
	KeyClear: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
	KeyFind: key.NewBinding(
		key.WithKeys("ctrl+f"),
		key.WithHelp("ctrl+f", "find"),
	),
	KeyGoto: key.NewBinding(
		key.WithKeys("ctrl+g"),
		key.WithHelp("ctrl+g", "goto"),
	),
	KeySubmit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("↵", "run"),
	),
	KeyHistoryPrev: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "history"),
	),
	KeyHistoryNext: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "history"),
	),
	KeyErase: key.NewBinding(
		key.WithKeys("backspace"),
		key.WithHelp("⌫", "erase"),
	),
	KeyEsc: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close"),
	),
	KeyUp: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	KeyDown: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

// Help returns the "key desc" hint of name.
func Help(name KeyName) (keyText, desc string) {
	h := GlobalkeyBindings[name].Help()
	return h.Key, h.Desc
}
