package app

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"r2tabs/keys"
	"r2tabs/log"
	"r2tabs/scrape"
	"r2tabs/session"
)

type scrapeDoneMsg struct {
	title   string
	content string
	err     error
}

// scrapeCmd reads a structured view of the active tab. Only one scrape
// runs at a time; an interrupt on the tab cancels it.
func (m *home) scrapeCmd(name keys.KeyName) tea.Cmd {
	active := m.manager.Active()
	if active == nil || active.Instance.State() != session.StateRunning {
		return nil
	}
	if m.scraping {
		return m.handleError(fmt.Errorf("a scrape is already running"))
	}

	inst := active.Instance
	ctx := m.ctx
	p := m.scraper
	var title string
	var run func() (string, error)
	switch name {
	case keys.KeyStrings:
		title = "Strings · " + active.Title
		run = func() (string, error) {
			records, err := p.Strings(ctx, inst)
			return FormatStrings(records), err
		}
	case keys.KeyHexdump:
		title = "Hexdump · " + active.Title
		run = func() (string, error) {
			lines, err := p.Hexdump(ctx, inst, "", 256)
			return FormatHexdump(lines), err
		}
	case keys.KeyGraph:
		title = "Graph · " + active.Title
		run = func() (string, error) {
			return p.Graph(ctx, inst, "")
		}
	default:
		return nil
	}

	m.scraping = true
	m.pane.SetOverlay("reading " + strings.ToLower(strings.SplitN(title, " ", 2)[0]) + "…")
	return func() tea.Msg {
		content, err := run()
		return scrapeDoneMsg{title: title, content: content, err: err}
	}
}

func (m *home) handleScrapeDone(msg scrapeDoneMsg) tea.Cmd {
	m.scraping = false
	m.pane.SetOverlay("")
	if errors.Is(msg.err, scrape.ErrCanceled) {
		log.InfoLog.Printf("%s canceled", msg.title)
		return nil
	}
	if msg.err != nil {
		return m.handleError(msg.err)
	}
	if m.state != stateDefault {
		log.WarningLog.Printf("dropping %s result, another dialog is open", msg.title)
		return nil
	}
	content := msg.content
	if strings.TrimSpace(content) == "" {
		content = "(no output)"
	}
	m.showViewer(msg.title, content)
	return nil
}

// FormatStrings renders a strings listing one record per line.
func FormatStrings(records []scrape.StringRecord) string {
	var b strings.Builder
	for _, r := range records {
		if r.Raw != "" {
			b.WriteString(r.Raw)
		} else {
			fmt.Fprintf(&b, "%#010x %5d  %s", r.Addr, r.Length, r.Text)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatHexdump renders hex dump rows as offset, bytes and ASCII.
func FormatHexdump(lines []scrape.HexLine) string {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "%#010x  %s  %s\n", l.OffsetNum, strings.Join(l.Bytes, " "), l.ASCII)
	}
	return b.String()
}
