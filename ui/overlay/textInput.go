package overlay

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// TextInputOverlay asks for a single line of text.
type TextInputOverlay struct {
	Title     string
	input     textinput.Model
	Submitted bool
	Canceled  bool
	width     int
}

// NewTextInputOverlay creates a focused text input prefilled with initial.
func NewTextInputOverlay(title, initial string) *TextInputOverlay {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.SetValue(initial)
	ti.Focus()
	return &TextInputOverlay{Title: title, input: ti, width: 50}
}

// HandleKeyPress processes a key press. It returns true once the overlay
// should be closed.
func (t *TextInputOverlay) HandleKeyPress(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyEnter:
		t.Submitted = true
		return true
	case tea.KeyEsc, tea.KeyCtrlC:
		t.Canceled = true
		return true
	}
	t.input, _ = t.input.Update(msg)
	return false
}

// IsSubmitted returns whether the input was confirmed with Enter.
func (t *TextInputOverlay) IsSubmitted() bool {
	return t.Submitted
}

// GetValue returns the current text.
func (t *TextInputOverlay) GetValue() string {
	return t.input.Value()
}

// SetWidth sets the overlay width.
func (t *TextInputOverlay) SetWidth(width int) {
	t.width = width
	t.input.Width = max(width-10, 10)
}

// Render renders the overlay.
func (t *TextInputOverlay) Render() string {
	content := titleStyle.Render(t.Title) + "\n\n" +
		t.input.View() + "\n\n" +
		helpStyle.Render("[Enter] Confirm  [Esc] Cancel")
	return box(t.width, content)
}
