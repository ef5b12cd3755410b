package app

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"r2tabs/keys"
	"r2tabs/log"
	"r2tabs/session"
	"r2tabs/ui/overlay"
)

// sessionKeys are the bindings forwarded to the active instance.
var sessionKeys = map[keys.KeyName]session.KeyKind{
	keys.KeyInterrupt:   session.KeyInterrupt,
	keys.KeyPaste:       session.KeyPaste,
	keys.KeyRestart:     session.KeyRestart,
	keys.KeyClear:       session.KeyClear,
	keys.KeySubmit:      session.KeySubmit,
	keys.KeyHistoryPrev: session.KeyHistoryPrev,
	keys.KeyHistoryNext: session.KeyHistoryNext,
	keys.KeyErase:       session.KeyErase,
}

func (m *home) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	switch m.state {
	case stateBrowse:
		return m.handleBrowseKey(msg)
	case stateVersion:
		return m.handleVersionKey(msg)
	case stateVersionInput:
		return m.handleVersionInputKey(msg)
	case statePrompt:
		return m.handlePromptKey(msg)
	case stateLoading:
		if msg.Type == tea.KeyEsc && m.cancelOpen != nil {
			m.loading.SetStatus("canceling")
			m.cancelOpen()
		}
		return nil
	case stateView:
		return m.handleViewKey(msg)
	}

	name, ok := keys.GlobalKeyStringsMap[msg.String()]
	if !ok {
		return m.handleText(msg)
	}
	cmd := m.menuKeydown(name)

	switch name {
	case keys.KeyNew:
		return tea.Batch(cmd, m.showFileBrowser())
	case keys.KeyClose:
		return tea.Batch(cmd, m.closeActive())
	case keys.KeyNextTab:
		m.manager.Next()
		return cmd
	case keys.KeyPrevTab:
		m.manager.Prev()
		return cmd
	case keys.KeyRestartAll:
		return tea.Batch(cmd, m.restartAllCmd())
	case keys.KeyQuit:
		return m.handleQuit()
	case keys.KeyHelp:
		m.showViewer("Keys", helpText())
		return cmd
	case keys.KeyStrings, keys.KeyHexdump, keys.KeyGraph:
		return tea.Batch(cmd, m.scrapeCmd(name))
	case keys.KeyFind:
		return tea.Batch(cmd, m.showPrompt(session.KeyFind, "Search"))
	case keys.KeyGoto:
		return tea.Batch(cmd, m.showPrompt(session.KeyGoto, "Address"))
	case keys.KeyRestart:
		if reopen := m.reopenFailed(); reopen != nil {
			return tea.Batch(cmd, reopen)
		}
	}

	kind, ok := sessionKeys[name]
	if !ok {
		return cmd
	}
	return tea.Batch(cmd, m.forward(session.Key{Kind: kind}))
}

// menuKeydown highlights name in the menu for a moment.
func (m *home) menuKeydown(name keys.KeyName) tea.Cmd {
	m.menu.Keydown(name)
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return keyupMsg{}
	})
}

// handleText forwards printable input to the active instance.
func (m *home) handleText(msg tea.KeyMsg) tea.Cmd {
	var text string
	switch msg.Type {
	case tea.KeyRunes:
		text = string(msg.Runes)
	case tea.KeySpace:
		text = " "
	default:
		return nil
	}
	return m.forward(session.Text(text))
}

func (m *home) forward(key session.Key) tea.Cmd {
	err := m.manager.HandleInput(m.ctx, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrSessionNotFound):
		return nil
	case errors.Is(err, session.ErrNotRunning) && key.Kind != session.KeyRestart:
		return nil
	}
	return m.handleError(err)
}

func (m *home) closeActive() tea.Cmd {
	active := m.manager.Active()
	if active == nil {
		return nil
	}
	if err := m.manager.Close(active.ID); err != nil {
		return m.handleError(err)
	}
	m.forgetScreen(active.ID)
	return m.requestSave()
}

func (m *home) handleBrowseKey(msg tea.KeyMsg) tea.Cmd {
	if !m.fileBrowser.HandleKeyPress(msg) {
		return nil
	}
	fb := m.fileBrowser
	m.fileBrowser = nil
	m.state = stateDefault
	if !fb.IsSubmitted() {
		return nil
	}
	pending, err := m.readFile(fb.GetSelectedPath(), "")
	if err != nil {
		return m.handleError(err)
	}
	m.showVersionSelector(pending)
	return nil
}

func (m *home) handleVersionKey(msg tea.KeyMsg) tea.Cmd {
	if !m.versionSelector.HandleKeyPress(msg) {
		return nil
	}
	vs := m.versionSelector
	m.versionSelector = nil
	m.state = stateDefault

	sel := vs.GetSelected()
	if sel == nil {
		m.pending = nil
		return nil
	}
	m.cfg.UseProxy, m.cfg.WantCache = vs.UseProxy, vs.WantCache
	if sel.Other {
		m.textInput = overlay.NewTextInputOverlay("radare2 version", "")
		m.state = stateVersionInput
		m.sizeOverlays()
		return nil
	}
	return m.startOpen(sel.Version)
}

func (m *home) handleVersionInputKey(msg tea.KeyMsg) tea.Cmd {
	if !m.textInput.HandleKeyPress(msg) {
		return nil
	}
	ti := m.textInput
	m.textInput = nil
	m.state = stateDefault
	if !ti.IsSubmitted() || ti.GetValue() == "" {
		m.pending = nil
		return nil
	}
	return m.startOpen(ti.GetValue())
}

func (m *home) showPrompt(kind session.KeyKind, label string) tea.Cmd {
	if active := m.manager.Active(); active == nil || active.Instance.State() != session.StateRunning {
		return nil
	}
	m.promptKind = kind
	m.textInput = overlay.NewTextInputOverlay(label, "")
	m.state = statePrompt
	m.sizeOverlays()
	return nil
}

// handlePromptKey collects the answer first, then lets the instance ask
// for it, which it does synchronously.
func (m *home) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	if !m.textInput.HandleKeyPress(msg) {
		return nil
	}
	ti := m.textInput
	m.textInput = nil
	m.state = stateDefault
	if !ti.IsSubmitted() {
		return nil
	}
	m.prompter.set(ti.GetValue())
	defer m.prompter.set("")
	return m.forward(session.Key{Kind: m.promptKind})
}

func (m *home) handleViewKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "y" {
		if err := m.copyToClipboard(m.viewer.Content()); err != nil {
			return m.handleError(err)
		}
		return nil
	}
	if m.viewer.HandleKeyPress(msg) {
		m.viewer = nil
		m.state = stateDefault
	}
	return nil
}

func (m *home) showViewer(title, content string) {
	m.viewer = overlay.NewTextViewerOverlay(title, content)
	m.state = stateView
	m.sizeOverlays()
}

func (m *home) copyToClipboard(text string) error {
	w, ok := m.deps.Clipboard.(clipboardWriter)
	if !ok {
		return fmt.Errorf("clipboard is not available")
	}
	if err := w.WriteAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	log.InfoLog.Printf("copied %d bytes to the clipboard", len(text))
	return nil
}

// handleError shows err in the error box and hides it after a while.
func (m *home) handleError(err error) tea.Cmd {
	log.ErrorLog.Printf("%v", err)
	m.errBox.SetError(err)
	delay := m.errHideDelay
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return hideErrMsg{}
	})
}
