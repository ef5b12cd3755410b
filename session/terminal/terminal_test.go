package terminal

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferRender(t *testing.T) {
	b := NewBufferWithSize(5, 40)

	n, err := b.Write([]byte("\x1b[31mRed Text\x1b[0m Normal"))
	require.NoError(t, err)
	require.Equal(t, 25, n)

	rendered := b.Render()
	require.Contains(t, rendered, "Red Text")
	require.Contains(t, rendered, "Normal")
	require.Contains(t, rendered, "\x1b[")
	require.Equal(t, rendered, b.Render(), "unchanged buffer renders from cache")
}

func TestBufferResize(t *testing.T) {
	b := NewBufferWithSize(10, 20)
	h, w := b.GetSize()
	require.Equal(t, 10, h)
	require.Equal(t, 20, w)

	b.Resize(24, 80)
	h, w = b.GetSize()
	require.Equal(t, 24, h)
	require.Equal(t, 80, w)
}

func TestBufferReset(t *testing.T) {
	b := NewBuffer()
	_, _ = b.Write([]byte("Some content"))
	b.Reset()
	require.NotContains(t, b.Render(), "Some content")
	require.Equal(t, "", b.LastLine())
}

func TestBufferOSC8Stripping(t *testing.T) {
	for _, link := range []string{
		"\x1b]8;;https://example.com\x1b\\Click Here\x1b]8;;\x1b\\",
		"\x1b]8;;https://example.com\x07Click Here\x1b]8;;\x07",
	} {
		b := NewBufferWithSize(5, 40)
		_, _ = b.Write([]byte(link))
		rendered := b.Render()
		require.Contains(t, rendered, "Click Here")
		require.NotContains(t, rendered, "8;;")
	}
}

func TestBufferLastLine(t *testing.T) {
	b := NewBufferWithSize(5, 40)
	_, _ = b.Write([]byte(" -- Welcome\r\n[0x00000000]> "))
	require.Equal(t, "[0x00000000]>", b.LastLine())

	lines := b.Lines()
	require.Equal(t, " -- Welcome", lines[0])
}

func TestScreenMirrorsOnlyWhileAttached(t *testing.T) {
	s := NewScreen(5, 40, false)
	var out bytes.Buffer

	_, err := s.Write([]byte("hidden"))
	require.NoError(t, err)
	require.Zero(t, out.Len())

	require.NoError(t, s.Attach(&out))
	require.Contains(t, out.String(), "hidden", "attach repaints the buffer")

	out.Reset()
	_, err = s.Write([]byte(" shown"))
	require.NoError(t, err)
	require.Equal(t, " shown", out.String())

	s.Detach()
	out.Reset()
	_, err = s.Write([]byte(" again"))
	require.NoError(t, err)
	require.Zero(t, out.Len())
	require.Equal(t, "hidden shown again", s.LastLine())
}

func TestScreenTranslatesBareLineFeeds(t *testing.T) {
	s := NewScreen(5, 40, true)
	var out bytes.Buffer
	require.NoError(t, s.Attach(&out))
	out.Reset()

	_, _ = s.Write([]byte("a\nb\r"))
	_, _ = s.Write([]byte("\nc\n"))
	require.Equal(t, "a\r\nb\r\nc\r\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("broken pipe") }

func TestScreenReportsMirrorFailure(t *testing.T) {
	s := NewScreen(5, 40, false)
	s.mirror = failingWriter{}

	_, err := s.Write([]byte("x"))
	require.Error(t, err)
	require.Equal(t, "x", s.LastLine(), "buffer still receives the output")
}

func TestScreenWriteErrorAndClear(t *testing.T) {
	s := NewScreen(5, 60, false)
	s.WriteError("failed to read clipboard")
	require.True(t, strings.Contains(strings.Join(s.Buffer().Lines(), "\n"), "failed to read clipboard"))

	s.Clear()
	require.NotContains(t, strings.Join(s.Buffer().Lines(), "\n"), "clipboard")
}

func TestScreenClosedDropsOutput(t *testing.T) {
	s := NewScreen(5, 40, false)
	s.Close()
	n, err := s.Write([]byte("late"))
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "", s.LastLine())
}
