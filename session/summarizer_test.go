package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExtractSummaryFromLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{name: "empty", line: "   ", expected: "Active"},
		{name: "prompt", line: "[0x00401000]> pdf", expected: "@ 0x00401000"},
		{name: "error", line: "ERROR: Cannot find function at 0x0", expected: "Error detected"},
		{name: "plain output", line: "0x00401000  push rbp", expected: "0x00401000  push rbp"},
		{
			name:     "long output",
			line:     strings.Repeat("x", 60),
			expected: strings.Repeat("x", SummaryMaxLength-3) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, extractSummaryFromLine(tt.line))
		})
	}
}

func TestUpdateNextSummaryRotates(t *testing.T) {
	a := newTestInstance().start()
	b := newTestInstance()
	a.term.last = "[0x00000010]> "

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSummarizer()
	s.now = func() time.Time { return now }

	recs := []*Record{
		{ID: 1, Instance: a.Instance},
		{ID: 2, Instance: b.Instance},
		{ID: 3, Instance: b.Instance, Err: errors.New("404 Not Found")},
	}

	require.Same(t, recs[0], s.UpdateNextSummary(recs))
	require.Same(t, recs[1], s.UpdateNextSummary(recs))
	require.Same(t, recs[2], s.UpdateNextSummary(recs))
	require.Nil(t, s.UpdateNextSummary(recs), "all tabs are cooling down")

	require.Equal(t, "@ 0x00000010", GetSummary(recs[0]))
	require.Equal(t, "unstarted", GetSummary(recs[1]))
	require.Equal(t, "Failed: 404 Not Found", GetSummary(recs[2]))

	now = now.Add(SummaryPerInstanceCooldown)
	require.Same(t, recs[0], s.UpdateNextSummary(recs))
}

func TestUpdateNextSummaryEmpty(t *testing.T) {
	require.Nil(t, NewSummarizer().UpdateNextSummary(nil))
	require.Empty(t, GetSummary(nil))
}
