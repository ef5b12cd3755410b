package inspect

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"r2tabs/ui/layout"
)

func TestSnapshotLayout(t *testing.T) {
	c := layout.ComputeConstraints(90, 25)
	d := layout.ComputeDegradation(c)

	s := NewSnapshot().WithTerminal(90, 25).WithLayout(c, d).WithApp(AppInfo{
		State:       "default",
		TabCount:    2,
		ActiveTab:   1,
		ActiveTitle: "ls",
	})

	assert.Equal(t, c.PaneRows, s.Layout.PaneRows)
	assert.True(t, s.Layout.Degradation.HideTabDetails)
	assert.True(t, s.Layout.Degradation.HideTabAge)

	active := map[string]bool{}
	for _, bp := range s.Breakpoints {
		active[bp.Name] = bp.Active
	}
	assert.True(t, active["hide_summaries"])
	assert.True(t, active["short_menu"])
	assert.False(t, active["vertical_stack"])

	text := s.ToText()
	assert.Contains(t, text, "Terminal: 90x25")
	assert.Contains(t, text, `Tabs: 2, active 1 "ls"`)
	assert.Contains(t, text, "[X] hide_age")
}

func TestNodeTree(t *testing.T) {
	root := NewNode("App").WithBounds(0, 0, 120, 40)
	tabs := NewNode("TabList").WithID("tabs").WithState("count", 1)
	tabs.AddChild(NewNode("Tab").WithContent("ls").WithTruncation(40, 20, true))
	root.AddChild(tabs).AddChild(nil)
	root.AddChild(NewNode("Overlay").WithVisible(false))

	require.Len(t, root.Children, 2)
	tab := root.Find("Tab")
	require.NotNil(t, tab)
	require.NotNil(t, tab.Truncated)
	assert.Equal(t, 40, tab.Truncated.OriginalLength)
	assert.Nil(t, NewNode("Tab").WithTruncation(5, 20, false).Truncated)
	assert.Nil(t, root.Find("Menu"))

	text := NewSnapshot().WithComponents(root).ToText()
	assert.Contains(t, text, "TabList [tabs] (0x0)")
	assert.Contains(t, text, "TRUNCATED(40->20)")
	assert.Contains(t, text, "Overlay (0x0) hidden")
}

func TestExtractStyleInfo(t *testing.T) {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("62")).
		Bold(true).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7aa2f7"))

	info := ExtractStyleInfo(style)
	assert.Equal(t, "62", info.Foreground)
	assert.True(t, info.Bold)
	assert.Equal(t, []int{1, 2, 1, 2}, info.Padding)
	assert.True(t, info.Border)
	assert.Equal(t, "#7aa2f7", info.BorderColor)

	plain := ExtractStyleInfo(lipgloss.NewStyle())
	assert.Empty(t, plain.Foreground)
	assert.Nil(t, plain.Padding)
	assert.False(t, plain.Border)
}

func TestWriteSnapshotToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspect.json")
	snap := NewSnapshot().WithTerminal(80, 24).WithApp(AppInfo{State: "browse", Overlay: "file_browser"})
	require.NoError(t, WriteSnapshotToPath(snap, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "file_browser", decoded.App.Overlay)
	assert.Equal(t, 80, decoded.Terminal.Width)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
