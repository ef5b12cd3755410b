package app

import (
	"r2tabs/inspect"
	"r2tabs/log"
)

// writeInspectSnapshot dumps the UI state for external tools when
// inspection is enabled.
func (m *home) writeInspectSnapshot() {
	if !inspect.IsEnabled() || !m.inspectEvery.ShouldLog() {
		return
	}
	if err := inspect.WriteSnapshot(m.snapshot()); err != nil {
		log.WarningLog.Printf("failed to write inspect snapshot: %v", err)
	}
}

func (m *home) snapshot() *inspect.Snapshot {
	info := inspect.AppInfo{
		State:    m.state.String(),
		TabCount: m.manager.Len(),
	}
	if m.state != stateDefault {
		info.Overlay = m.state.String()
	}
	for _, rec := range m.manager.Snapshot() {
		info.TabTitles = append(info.TabTitles, rec.Title)
	}
	if active := m.manager.Active(); active != nil {
		info.ActiveTab = active.ID
		info.ActiveTitle = active.Title
	}
	if err := m.errBox.Err(); err != nil {
		info.Error = err.Error()
	}

	root := inspect.NewNode("App").
		WithBounds(0, 0, m.width, m.height).
		AddChild(m.tabs.InspectNode()).
		AddChild(m.pane.InspectNode()).
		AddChild(m.menu.InspectNode()).
		AddChild(m.errBox.InspectNode())

	return inspect.NewSnapshot().
		WithTerminal(m.width, m.height).
		WithApp(info).
		WithLayout(m.constraints, m.degradation).
		WithComponents(root)
}
