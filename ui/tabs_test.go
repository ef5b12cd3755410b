package ui

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"r2tabs/session"
	"r2tabs/session/terminal"
	"r2tabs/testing/snapshot"
	"r2tabs/ui/layout"
)

func testRecord(id int, title string) session.Record {
	return session.Record{
		ID:        id,
		Title:     title,
		Version:   "5.9.8",
		CreatedAt: time.Now().Add(-3 * time.Hour),
		Instance: session.NewInstance(session.InstanceOptions{
			Terminal: terminal.NewScreen(24, 80, true),
		}),
	}
}

func TestTabListEmpty(t *testing.T) {
	l := NewTabList(nil)
	l.SetSize(30, 20, layout.Degradation{})

	out := l.String()
	snap := snapshot.New(t)
	snap.AssertContains(out, "Tabs")
	snap.AssertContains(out, "No tabs open")
	snap.AssertFits(out, 30, 20)
	assert.Equal(t, 0, l.NumTabs())
}

func TestTabListRendersDetails(t *testing.T) {
	failed := testRecord(2, "libc.so.6")
	failed.Err = errors.New("offline")
	failed.UseProxy = true
	failed.Summary = "Failed: offline"

	l := NewTabList(nil)
	l.SetSize(40, 30, layout.Degradation{})
	l.SetRecords([]session.Record{testRecord(1, "ls"), failed}, 2)
	require.Equal(t, 2, l.NumTabs())

	out := snapshot.StripANSI(l.String())
	assert.Contains(t, out, "1. ls")
	assert.Contains(t, out, "2. libc.so.6")
	assert.Contains(t, out, "r2 5.9.8 · hosted · 3h ago")
	assert.Contains(t, out, "Failed: offline")
	assert.Contains(t, out, IconError)
	assert.Contains(t, out, IconPending)
}

func TestTabListDegradation(t *testing.T) {
	rec := testRecord(1, "ls")
	rec.Summary = "[0x00401000]> pdf"

	l := NewTabList(nil)
	l.SetRecords([]session.Record{rec}, 1)

	l.SetSize(40, 30, layout.Degradation{HideTabAge: true})
	out := snapshot.StripANSI(l.String())
	assert.Contains(t, out, "r2 5.9.8")
	assert.NotContains(t, out, "ago")

	l.SetSize(40, 30, layout.Degradation{HideTabDetails: true, HideTabSummaries: true})
	out = snapshot.StripANSI(l.String())
	assert.NotContains(t, out, "r2 5.9.8")
	assert.NotContains(t, out, "pdf")
}

func TestTabListTruncatesLongTitles(t *testing.T) {
	l := NewTabList(nil)
	l.SetSize(24, 10, layout.Degradation{})
	l.SetRecords([]session.Record{testRecord(1, strings.Repeat("a", 60))}, 1)

	out := l.String()
	snapshot.New(t).AssertFits(out, 24, 10)
	assert.Contains(t, snapshot.StripANSI(out), "…")
}

func TestTabListKeepsActiveVisible(t *testing.T) {
	var recs []session.Record
	for id := 1; id <= 12; id++ {
		recs = append(recs, testRecord(id, fmt.Sprintf("bin%02d", id)))
	}
	l := NewTabList(nil)
	l.SetSize(30, 14, layout.Degradation{HideTabDetails: true, HideTabSummaries: true})

	l.SetRecords(recs, 12)
	out := snapshot.StripANSI(l.String())
	assert.Contains(t, out, "bin12")
	assert.NotContains(t, out, "bin01")

	l.SetRecords(recs, 1)
	out = snapshot.StripANSI(l.String())
	assert.Contains(t, out, "bin01")
	assert.NotContains(t, out, "bin12")
}

func TestTabListInspectNode(t *testing.T) {
	failed := testRecord(2, strings.Repeat("b", 50))
	failed.Err = errors.New("offline")

	l := NewTabList(nil)
	l.SetSize(30, 20, layout.Degradation{})
	l.SetRecords([]session.Record{testRecord(1, "ls"), failed}, 1)

	node := l.InspectNode()
	require.Len(t, node.Children, 2)
	assert.Equal(t, 2, node.State["count"])
	assert.Nil(t, node.Children[0].Truncated)
	require.NotNil(t, node.Children[1].Truncated)
	assert.Equal(t, "offline", node.Children[1].State["error"])
	assert.Equal(t, "unstarted", node.Children[0].State["state"])
}
