package app

import (
	"github.com/atotto/clipboard"

	"r2tabs/session"
)

type clipboardWriter interface {
	WriteAll(text string) error
}

// SystemClipboard reads and writes the system clipboard.
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error) {
	return clipboard.ReadAll()
}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// NewClipboard returns the system clipboard, or nil when this platform
// has no clipboard utility.
func NewClipboard() session.Clipboard {
	if clipboard.Unsupported {
		return nil
	}
	return SystemClipboard{}
}
