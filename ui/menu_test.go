package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"r2tabs/keys"
	"r2tabs/testing/snapshot"
)

func TestMenuStates(t *testing.T) {
	m := NewMenu()
	m.SetSize(160, 1, false)

	out := snapshot.StripANSI(m.String())
	assert.Contains(t, out, "ctrl+n new tab")
	assert.NotContains(t, out, "strings")

	m.SetState(StateDefault)
	out = snapshot.StripANSI(m.String())
	assert.Contains(t, out, "ctrl+e strings")
	assert.Contains(t, out, "ctrl+g goto")
	assert.Contains(t, out, "│")

	m.SetSize(100, 1, true)
	out = snapshot.StripANSI(m.String())
	assert.NotContains(t, out, "strings")
	assert.Contains(t, out, "tab next")

	m.SetState(StateOverlay)
	assert.Contains(t, snapshot.StripANSI(m.String()), "esc close")

	m.SetState(StateView)
	assert.Contains(t, snapshot.StripANSI(m.String()), "↑/k up")
}

func TestMenuKeydownKeepsText(t *testing.T) {
	m := NewMenu()
	m.SetSize(120, 1, false)
	m.SetState(StateDefault)
	before := snapshot.StripANSI(m.String())

	m.Keydown(keys.KeyClose)
	assert.Equal(t, before, snapshot.StripANSI(m.String()))
	m.ClearKeydown()
	assert.Equal(t, before, snapshot.StripANSI(m.String()))
}
