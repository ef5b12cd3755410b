package terminal

import (
	"bytes"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"r2tabs/log"
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)

const clearSequence = "\x1b[2J\x1b[H"

// Screen is the terminal binding of one tab. Output always lands in the
// backing Buffer; while the tab is shown it is also mirrored to the real
// terminal.
type Screen struct {
	mu sync.Mutex

	buf    *Buffer
	mirror io.Writer
	closed bool

	// translateLF turns bare LF into CRLF for output that did not go
	// through a pty line discipline.
	translateLF bool
	lastByte    byte
}

// NewScreen creates a screen of the given size.
func NewScreen(height, width int, translateLF bool) *Screen {
	return &Screen{
		buf:         NewBufferWithSize(height, width),
		translateLF: translateLF,
	}
}

// Write renders p. Only a failure to reach the mirrored terminal is
// reported; sequences the emulator cannot interpret are logged and skipped.
func (s *Screen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return len(p), nil
	}

	out := p
	if s.translateLF {
		out = s.crlf(p)
	}
	if _, err := s.buf.Write(out); err != nil {
		log.Debug("terminal: emulator skipped sequence: %v", err)
	}
	if s.mirror != nil {
		if _, err := s.mirror.Write(out); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (s *Screen) crlf(p []byte) []byte {
	if bytes.IndexByte(p, '\n') < 0 {
		if len(p) > 0 {
			s.lastByte = p[len(p)-1]
		}
		return p
	}
	out := make([]byte, 0, len(p)+8)
	prev := s.lastByte
	for _, c := range p {
		if c == '\n' && prev != '\r' {
			out = append(out, '\r')
		}
		out = append(out, c)
		prev = c
	}
	s.lastByte = prev
	return out
}

// WriteError shows msg inline on its own line.
func (s *Screen) WriteError(msg string) {
	_, _ = s.Write([]byte("\r\n" + errorStyle.Render(msg) + "\r\n"))
}

// Clear wipes the visible screen.
func (s *Screen) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.buf.Reset()
	if s.mirror != nil {
		_, _ = io.WriteString(s.mirror, clearSequence)
	}
}

// LastLine returns the text of the line most recently written to.
func (s *Screen) LastLine() string {
	return s.buf.LastLine()
}

// Buffer exposes the backing emulator.
func (s *Screen) Buffer() *Buffer {
	return s.buf
}

// Attach starts mirroring to w after repainting the current contents.
func (s *Screen) Attach(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mirror = w
	if _, err := io.WriteString(w, clearSequence+s.buf.Render()); err != nil {
		return err
	}
	return nil
}

// Detach stops mirroring. Output keeps accumulating in the buffer.
func (s *Screen) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = nil
}

// Resize changes the emulator dimensions.
func (s *Screen) Resize(height, width int) {
	s.buf.Resize(height, width)
}

// Close unbinds the screen. Later writes are dropped.
func (s *Screen) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.mirror = nil
}
