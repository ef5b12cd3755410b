package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatRelative(t *testing.T) {
	require.Equal(t, "just now", formatRelative(10*time.Second))
	require.Equal(t, "5m ago", formatRelative(5*time.Minute+time.Second))
	require.Equal(t, "3h ago", formatRelative(3*time.Hour))
	require.Equal(t, "2d ago", formatRelative(49*time.Hour))
	require.Equal(t, "just now", FormatRelativeTime(time.Now()))
}

func TestFormatBytes(t *testing.T) {
	require.Equal(t, "512 B", FormatBytes(512))
	require.Equal(t, "1.0 KiB", FormatBytes(1024))
	require.Equal(t, "3.5 MiB", FormatBytes(3*1024*1024+512*1024))
}
