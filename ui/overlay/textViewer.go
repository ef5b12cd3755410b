package overlay

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wrap"
)

// TextViewerOverlay shows scrollable read-only text such as a strings
// listing or a hex dump.
type TextViewerOverlay struct {
	title    string
	content  string
	viewport viewport.Model
	width    int
}

// NewTextViewerOverlay creates a viewer for content.
func NewTextViewerOverlay(title, content string) *TextViewerOverlay {
	v := &TextViewerOverlay{
		title:    title,
		content:  content,
		viewport: viewport.New(60, 10),
	}
	v.setContent()
	return v
}

// SetSize fits the viewer into a width x height overlay.
func (v *TextViewerOverlay) SetSize(width, height int) {
	v.width = width
	// Frame, padding, title and footer.
	v.viewport.Width = max(width-6, 10)
	v.viewport.Height = max(height-9, 3)
	v.setContent()
}

// setContent hard-wraps long lines such as dot edges at the viewport width.
func (v *TextViewerOverlay) setContent() {
	v.viewport.SetContent(wrap.String(v.content, v.viewport.Width))
}

// HandleKeyPress scrolls the text. It returns true once the viewer should
// be closed.
func (v *TextViewerOverlay) HandleKeyPress(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "esc", "q":
		return true
	case "g", "home":
		v.viewport.GotoTop()
		return false
	case "G", "end":
		v.viewport.GotoBottom()
		return false
	}
	v.viewport, _ = v.viewport.Update(msg)
	return false
}

// Content returns the unscrolled text.
func (v *TextViewerOverlay) Content() string {
	return v.content
}

// Render renders the viewer.
func (v *TextViewerOverlay) Render() string {
	footer := fmt.Sprintf("%3.0f%%  [↑/↓] Scroll  [g/G] Top/Bottom  [Esc] Close", v.viewport.ScrollPercent()*100)
	content := titleStyle.Render(v.title) + "\n\n" +
		v.viewport.View() + "\n\n" +
		helpStyle.Render(footer)
	return box(v.width, content)
}
