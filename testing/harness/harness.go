// Package harness provides test utilities for Bubble Tea models.
// It wraps models and provides methods for simulating user input and for
// running the commands a model returns without a real program.
package harness

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Harness wraps a tea.Model for testing
type Harness struct {
	t      *testing.T
	model  tea.Model
	width  int
	height int
}

// New creates a new Harness for testing the given model
func New(t *testing.T, model tea.Model, width, height int) *Harness {
	h := &Harness{
		t:      t,
		model:  model,
		width:  width,
		height: height,
	}
	h.SendMsg(tea.WindowSizeMsg{Width: width, Height: height})
	return h
}

// SendMsg sends a tea.Msg to the model and updates it
func (h *Harness) SendMsg(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	h.model, cmd = h.model.Update(msg)
	return cmd
}

// SendKey sends a key press message
func (h *Harness) SendKey(key string) tea.Cmd {
	return h.SendMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
}

// SendSpecialKey sends a special key (Enter, Tab, ctrl combinations, etc.)
func (h *Harness) SendSpecialKey(keyType tea.KeyType) tea.Cmd {
	return h.SendMsg(tea.KeyMsg{Type: keyType})
}

// Type sends each rune of s as its own key press.
func (h *Harness) Type(s string) {
	for _, r := range s {
		if r == ' ' {
			h.SendSpecialKey(tea.KeySpace)
			continue
		}
		h.SendKey(string(r))
	}
}

// Resize simulates a terminal resize
func (h *Harness) Resize(width, height int) tea.Cmd {
	h.width = width
	h.height = height
	return h.SendMsg(tea.WindowSizeMsg{Width: width, Height: height})
}

// Deliver runs cmd and sends every message it produces to the model.
// Batches are flattened. Commands returned by the model in response are not
// run. Commands still running after timeout are abandoned, so a repeating
// tick never blocks a test. The delivered messages are returned.
func (h *Harness) Deliver(cmd tea.Cmd, timeout time.Duration) []tea.Msg {
	return h.run(cmd, timeout, false)
}

// Drain is Deliver that also runs the commands the model returns, until
// none are left or timeout passes.
func (h *Harness) Drain(cmd tea.Cmd, timeout time.Duration) []tea.Msg {
	return h.run(cmd, timeout, true)
}

func (h *Harness) run(cmd tea.Cmd, timeout time.Duration, follow bool) []tea.Msg {
	h.t.Helper()

	results := make(chan tea.Msg)
	pending := 0
	start := func(c tea.Cmd) {
		if c == nil {
			return
		}
		pending++
		go func() {
			results <- c()
		}()
	}
	start(cmd)

	var delivered []tea.Msg
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for pending > 0 {
		select {
		case msg := <-results:
			pending--
			switch msg := msg.(type) {
			case nil:
			case tea.BatchMsg:
				for _, c := range msg {
					start(c)
				}
			default:
				delivered = append(delivered, msg)
				next := h.SendMsg(msg)
				if follow {
					start(next)
				}
			}
		case <-deadline.C:
			// Abandoned goroutines block on the unbuffered channel; drain
			// them in the background.
			go func(n int) {
				for ; n > 0; n-- {
					<-results
				}
			}(pending)
			return delivered
		}
	}
	return delivered
}

// View returns the current rendered view
func (h *Harness) View() string {
	return h.model.View()
}

// Model returns the underlying model (for type assertions)
func (h *Harness) Model() tea.Model {
	return h.model
}

// Width returns the current width
func (h *Harness) Width() int {
	return h.width
}

// Height returns the current height
func (h *Harness) Height() int {
	return h.height
}

// CommonSizes contains common terminal sizes for testing
var CommonSizes = []TerminalSize{
	{Name: "minimum", Width: 80, Height: 24},
	{Name: "standard", Width: 120, Height: 40},
	{Name: "large", Width: 200, Height: 50},
	{Name: "wide", Width: 200, Height: 24},
	{Name: "tall", Width: 80, Height: 60},
}

// TerminalSize represents a terminal size for testing
type TerminalSize struct {
	Name   string
	Width  int
	Height int
}

// RunWithCommonSizes runs a test function for all common terminal sizes
func RunWithCommonSizes(t *testing.T, fn func(t *testing.T, size TerminalSize)) {
	for _, size := range CommonSizes {
		t.Run(size.Name, func(t *testing.T) {
			fn(t, size)
		})
	}
}
