package ui

import (
	"github.com/mattn/go-runewidth"

	"r2tabs/inspect"
)

var (
	_ inspect.Introspectable = (*TabList)(nil)
	_ inspect.Introspectable = (*TerminalPane)(nil)
	_ inspect.Introspectable = (*Menu)(nil)
	_ inspect.Introspectable = (*ErrBox)(nil)
)

func (s MenuState) String() string {
	switch s {
	case StateDefault:
		return "default"
	case StateEmpty:
		return "empty"
	case StateOverlay:
		return "overlay"
	case StateView:
		return "view"
	default:
		return "unknown"
	}
}

func (l *TabList) InspectNode() *inspect.Node {
	node := inspect.NewNode("TabList").
		WithBounds(0, 0, l.width, l.height).
		WithState("count", len(l.records)).
		WithState("active", l.activeID)

	start, end := 0, 0
	if len(l.records) > 0 {
		start, end = l.visible(2)
	}
	// Matches the title budget in renderTab.
	room := l.width - 2 - 5
	for n, rec := range l.records {
		tab := inspect.NewNode("Tab").
			WithID(rec.Title).
			WithVisible(n >= start && n < end).
			WithContent(rec.Title).
			WithState("state", rec.Instance.State().String()).
			WithTruncation(runewidth.StringWidth(rec.Title), room, true)
		if rec.Err != nil {
			tab.WithState("error", rec.Err.Error())
		}
		node.AddChild(tab)
	}
	return node
}

func (p *TerminalPane) InspectNode() *inspect.Node {
	node := inspect.NewNode("TerminalPane").
		WithBounds(0, 0, p.width, p.height).
		WithStyles(inspect.ExtractStyleInfo(PaneStyle(p.screen != nil))).
		WithState("title", p.title).
		WithState("has_screen", p.screen != nil).
		WithState("has_overlay", p.overlay != "")
	if p.screen != nil {
		node.WithContent(p.screen.LastLine())
	}
	return node
}

func (m *Menu) InspectNode() *inspect.Node {
	return inspect.NewNode("Menu").
		WithBounds(0, 0, m.width, m.height).
		WithState("state", m.state.String()).
		WithState("short", m.short).
		WithState("groups", len(m.groups))
}

func (e *ErrBox) InspectNode() *inspect.Node {
	node := inspect.NewNode("ErrBox").
		WithBounds(0, 0, e.width, e.height).
		WithVisible(e.err != nil)
	if e.err != nil {
		node.WithContent(e.err.Error())
	}
	return node
}
