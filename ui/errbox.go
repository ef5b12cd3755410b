package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var errStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#FF0000",
	Dark:  "#FF0000",
})

// ErrBox shows one line of error or notice text under the menu.
type ErrBox struct {
	height, width int
	err           error
}

func NewErrBox() *ErrBox {
	return &ErrBox{}
}

func (e *ErrBox) SetError(err error) {
	e.err = err
}

// Err returns the error on display, if any.
func (e *ErrBox) Err() error {
	return e.err
}

func (e *ErrBox) Clear() {
	e.err = nil
}

func (e *ErrBox) SetSize(width, height int) {
	e.width = width
	e.height = height
}

func (e *ErrBox) String() string {
	var text string
	if e.err != nil {
		text = strings.ReplaceAll(e.err.Error(), "\n", "//")
		text = fit(text, e.width-3)
	}
	return lipgloss.Place(e.width, e.height, lipgloss.Center, lipgloss.Top, errStyle.Render(text))
}
