package session

import (
	"strings"
	"sync"
	"time"

	"r2tabs/log"
)

const (
	// SummaryRefreshInterval is how often the UI asks for the next summary.
	SummaryRefreshInterval = 2 * time.Second
	// SummaryPerInstanceCooldown is the minimum time between updates for a
	// single tab.
	SummaryPerInstanceCooldown = 5 * time.Second
	// SummaryMaxLength is the maximum length of a summary.
	SummaryMaxLength = 40
)

var errorMarkers = []string{"ERROR", "Cannot open", "Invalid address"}

// Summarizer derives the tab bar status line of each tab from what its
// terminal last showed. Tabs are refreshed one per call in rotation.
// Summaries are only read and written from the UI goroutine.
type Summarizer struct {
	mu sync.Mutex
	// lastUpdateIndex tracks which tab was last updated for staggered refresh
	lastUpdateIndex int
	now             func() time.Time
}

// NewSummarizer creates a new Summarizer
func NewSummarizer() *Summarizer {
	return &Summarizer{now: time.Now}
}

// UpdateNextSummary updates the summary of the next tab in the rotation and
// returns it, or nil when every tab is still cooling down.
func (s *Summarizer) UpdateNextSummary(records []*Record) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		return nil
	}
	now := s.now()

	startIdx := s.lastUpdateIndex
	for n := 0; n < len(records); n++ {
		idx := (startIdx + n) % len(records)
		rec := records[idx]
		if rec == nil || rec.Instance == nil {
			continue
		}
		if !rec.SummaryUpdatedAt.IsZero() && now.Sub(rec.SummaryUpdatedAt) < SummaryPerInstanceCooldown {
			continue
		}

		s.lastUpdateIndex = (idx + 1) % len(records)
		summary := summarize(rec)
		if summary != rec.Summary {
			log.Debug("tab %d summary: %q", rec.ID, summary)
		}
		rec.Summary = summary
		rec.SummaryUpdatedAt = now
		return rec
	}
	return nil
}

func summarize(rec *Record) string {
	if rec.Err != nil {
		return truncateSummary("Failed: " + rec.Err.Error())
	}
	state := rec.Instance.State()
	if state != StateRunning {
		return state.String()
	}
	return extractSummaryFromLine(rec.Instance.LastLine())
}

// extractSummaryFromLine turns the last rendered line into a status. A
// prompt yields the current seek address.
func extractSummaryFromLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return "Active"
	}
	if m := promptPattern.FindString(line); m != "" {
		return "@ " + strings.TrimSuffix(strings.TrimPrefix(m, "["), "]>")
	}
	for _, marker := range errorMarkers {
		if strings.Contains(line, marker) {
			return "Error detected"
		}
	}
	return truncateSummary(line)
}

func truncateSummary(s string) string {
	r := []rune(s)
	if len(r) > SummaryMaxLength {
		return string(r[:SummaryMaxLength-3]) + "..."
	}
	return s
}

// GetSummary returns the summary of a tab, or an empty string if none exists.
func GetSummary(rec *Record) string {
	if rec == nil {
		return ""
	}
	return rec.Summary
}
