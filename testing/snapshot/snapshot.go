// Package snapshot provides assertions on rendered TUI output with the
// terminal escape sequences removed.
package snapshot

import (
	"regexp"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

var (
	// CSI sequences, including private modes such as ESC[?25l.
	csiRegex = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)
	// OSC 8 hyperlinks and other OSC strings.
	oscRegex = regexp.MustCompile(`\x1b\][^\x1b\x07]*(\x1b\\|\x07)`)
)

// Snap asserts on the normalized form of rendered output.
type Snap struct {
	t *testing.T
}

// New creates a new Snap instance for the given test
func New(t *testing.T) *Snap {
	return &Snap{t: t}
}

// AssertContains checks that actual output contains the expected substring
func (s *Snap) AssertContains(actual, substr string) {
	s.t.Helper()
	normalized := normalizeOutput(actual)
	if !strings.Contains(normalized, substr) {
		s.t.Errorf("Output does not contain expected substring.\nExpected to contain: %q\nActual:\n%s", substr, normalized)
	}
}

// AssertNotContains checks that actual output does NOT contain the substring
func (s *Snap) AssertNotContains(actual, substr string) {
	s.t.Helper()
	normalized := normalizeOutput(actual)
	if strings.Contains(normalized, substr) {
		s.t.Errorf("Output unexpectedly contains substring: %q\nActual:\n%s", substr, normalized)
	}
}

// AssertFits checks that the output is no larger than width x height cells.
func (s *Snap) AssertFits(actual string, width, height int) {
	s.t.Helper()
	if w := Width(actual); w > width {
		s.t.Errorf("Output is %d cells wide, want at most %d\nActual:\n%s", w, width, normalizeOutput(actual))
	}
	if h := Lines(actual); h > height {
		s.t.Errorf("Output is %d lines high, want at most %d\nActual:\n%s", h, height, normalizeOutput(actual))
	}
}

// normalizeOutput strips escape sequences, normalizes line endings and
// removes trailing whitespace from each line.
func normalizeOutput(s string) string {
	s = StripANSI(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// StripANSI removes all ANSI escape codes from a string
func StripANSI(s string) string {
	s = oscRegex.ReplaceAllString(s, "")
	return csiRegex.ReplaceAllString(s, "")
}

// Lines returns the line count of the rendered output (useful for height tests)
func Lines(s string) int {
	return len(strings.Split(StripANSI(s), "\n"))
}

// Width returns the widest line of the rendered output in terminal cells.
func Width(s string) int {
	maxWidth := 0
	for _, line := range strings.Split(StripANSI(s), "\n") {
		if w := runewidth.StringWidth(line); w > maxWidth {
			maxWidth = w
		}
	}
	return maxWidth
}
