// Package terminal keeps the screen of every tab, whether or not it is the
// one currently shown, so that switching tabs can repaint it.
package terminal

import (
	"fmt"
	"image/color"
	"regexp"
	"strings"
	"sync"

	"github.com/tonistiigi/vt100"
)

const (
	defaultTermWidth  = 80
	defaultTermHeight = 24
)

// oscSequenceRegex matches OSC 8 hyperlink sequences that vt100 doesn't handle.
// Format: ESC ] 8 ; params ; URI ST (where ST is ESC \ or BEL)
var oscSequenceRegex = regexp.MustCompile(`\x1b\]8;[^;]*;[^\x1b\x07]*(?:\x1b\\|\x07)`)

// Buffer wraps a VT100 emulator holding one tab's screen.
type Buffer struct {
	mu sync.RWMutex

	vt     *vt100.VT100
	width  int
	height int

	cachedRender string
	dirty        bool
}

// NewBuffer creates a buffer with default dimensions.
func NewBuffer() *Buffer {
	return NewBufferWithSize(defaultTermHeight, defaultTermWidth)
}

// NewBufferWithSize creates a buffer with the given dimensions.
func NewBufferWithSize(height, width int) *Buffer {
	if height <= 0 {
		height = defaultTermHeight
	}
	if width <= 0 {
		width = defaultTermWidth
	}
	return &Buffer{
		vt:     vt100.NewVT100(height, width),
		width:  width,
		height: height,
		dirty:  true,
	}
}

// Write feeds data to the emulator. Safe for concurrent use.
func (b *Buffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cleaned := oscSequenceRegex.ReplaceAll(p, nil)
	_, err = b.vt.Write(cleaned)
	if len(cleaned) > 0 {
		b.dirty = true
	}
	// Report the original length so callers don't see short writes.
	return len(p), err
}

// Resize changes the terminal dimensions.
func (b *Buffer) Resize(height, width int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if height != b.height || width != b.width {
		b.vt.Resize(height, width)
		b.height = height
		b.width = width
		b.dirty = true
	}
}

// Render returns the screen with ANSI escape codes. The result is cached
// until the next write.
func (b *Buffer) Render() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirty && b.cachedRender != "" {
		return b.cachedRender
	}
	b.cachedRender = b.renderToANSI()
	b.dirty = false
	return b.cachedRender
}

// LastLine returns the plain text of the row holding the cursor, which is
// the line most recently written to.
func (b *Buffer) LastLine() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	y := b.vt.Cursor.Y
	if y < 0 || y >= len(b.vt.Content) {
		return ""
	}
	return rowText(b.vt.Content[y])
}

// Lines returns the plain text of every row, trailing blanks trimmed.
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lines := make([]string, len(b.vt.Content))
	for y, row := range b.vt.Content {
		lines[y] = rowText(row)
	}
	return lines
}

func rowText(row []rune) string {
	var sb strings.Builder
	for _, r := range row {
		if r == 0 {
			r = ' '
		}
		sb.WriteRune(r)
	}
	return strings.TrimRight(sb.String(), " ")
}

// renderToANSI converts the screen to an ANSI string. Must be called with mu
// held.
func (b *Buffer) renderToANSI() string {
	var sb strings.Builder
	sb.Grow(b.width * b.height * 2)

	var prevFormat vt100.Format
	firstCell := true

	for y := 0; y < b.height; y++ {
		if y > 0 {
			sb.WriteString("\r\n")
		}

		lastNonSpace := -1
		for x := b.width - 1; x >= 0; x-- {
			if b.vt.Content[y][x] != ' ' && b.vt.Content[y][x] != 0 {
				lastNonSpace = x
				break
			}
		}

		for x := 0; x <= lastNonSpace || x == 0; x++ {
			char := b.vt.Content[y][x]
			format := b.vt.Format[y][x]

			if firstCell || format != prevFormat {
				sb.WriteString(formatToANSI(format))
				prevFormat = format
				firstCell = false
			}

			if char == 0 {
				sb.WriteRune(' ')
			} else {
				sb.WriteRune(char)
			}
		}
	}

	sb.WriteString("\x1b[0m")
	return sb.String()
}

func formatToANSI(f vt100.Format) string {
	codes := []string{"0"}

	switch f.Intensity {
	case vt100.Bright:
		codes = append(codes, "1")
	case vt100.Dim:
		codes = append(codes, "2")
	}
	if f.Underscore {
		codes = append(codes, "4")
	}
	if f.Blink {
		codes = append(codes, "5")
	}
	if f.Inverse {
		codes = append(codes, "7")
	}
	if f.Conceal {
		codes = append(codes, "8")
	}
	if fg := colorToANSI(f.Fg, true); fg != "" {
		codes = append(codes, fg)
	}
	if bg := colorToANSI(f.Bg, false); bg != "" {
		codes = append(codes, bg)
	}

	return fmt.Sprintf("\x1b[%sm", strings.Join(codes, ";"))
}

// colorToANSI returns a 24-bit color code, or "" for the default color.
func colorToANSI(c color.RGBA, foreground bool) string {
	if c.R == 0 && c.G == 0 && c.B == 0 && c.A == 0 {
		return ""
	}
	if foreground {
		return fmt.Sprintf("38;2;%d;%d;%d", c.R, c.G, c.B)
	}
	return fmt.Sprintf("48;2;%d;%d;%d", c.R, c.G, c.B)
}

// Reset discards the screen contents.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.vt = vt100.NewVT100(b.height, b.width)
	b.cachedRender = ""
	b.dirty = true
}

// GetSize returns the current dimensions.
func (b *Buffer) GetSize() (height, width int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.height, b.width
}
