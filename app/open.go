package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"r2tabs/loader"
	"r2tabs/log"
	"r2tabs/session"
	"r2tabs/ui/overlay"
)

var ErrTabLimit = fmt.Errorf("you can't open more than %d tabs", GlobalTabLimit)

type hideErrMsg struct{}

type previewTickMsg struct{}

type keyupMsg struct{}

type saveDebounceMsg struct{}

type tickSyncMsg struct{}

type tickUpdateSummaryMessage struct{}

type progressMsg struct {
	progress loader.Progress
	ch       <-chan loader.Progress
}

type openDoneMsg struct {
	id       int
	version  string
	err      error
	canceled bool
}

type restoreDoneMsg struct {
	opened int
	errs   []error
}

type restartDoneMsg struct {
	err error
}

// previewTickCmd redraws the pane while instances write to it.
var previewTickCmd = func() tea.Msg {
	time.Sleep(100 * time.Millisecond)
	return previewTickMsg{}
}

var tickUpdateSummaryCmd = func() tea.Msg {
	time.Sleep(session.SummaryRefreshInterval)
	return tickUpdateSummaryMessage{}
}

var tickSyncCmd = func() tea.Msg {
	time.Sleep(2 * time.Second)
	return tickSyncMsg{}
}

// readFile loads path as the primary file of a new tab.
func (m *home) readFile(path, title string) (*pendingOpen, error) {
	data, err := afero.ReadFile(m.deps.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &pendingOpen{
		path:  abs,
		file:  &session.File{Name: filepath.Base(path), Data: data},
		title: title,
	}, nil
}

func (m *home) showFileBrowser() tea.Cmd {
	if m.manager.Len() >= GlobalTabLimit {
		return m.handleError(ErrTabLimit)
	}
	fb, err := overlay.NewFileBrowserOverlay(m.deps.Fs, ".")
	if err != nil {
		return m.handleError(err)
	}
	m.fileBrowser = fb
	m.state = stateBrowse
	m.sizeOverlays()
	return nil
}

func (m *home) showVersionSelector(p *pendingOpen) {
	opts := overlay.VersionSelectorOptions{
		Default:         m.cfg.DefaultVersion,
		HostedAvailable: m.cfg.HostedProxyURL != "",
		UseProxy:        m.cfg.UseProxy && m.cfg.HostedProxyURL != "",
		WantCache:       m.cfg.WantCache,
	}
	if m.deps.State != nil {
		opts.Last = m.deps.State.GetLastVersion()
	}
	if m.deps.Versions != nil {
		cached, err := m.deps.Versions.Keys()
		if err != nil {
			log.WarningLog.Printf("failed to list cached versions: %v", err)
		}
		opts.Cached = cached
	}

	m.pending = p
	m.versionSelector = overlay.NewVersionSelectorOverlay(opts)
	m.state = stateVersion
	m.sizeOverlays()
}

// startOpen opens the pending file with version in a new tab.
func (m *home) startOpen(version string) tea.Cmd {
	p := m.pending
	m.pending = nil
	if p == nil {
		return nil
	}
	if m.manager.Len() >= GlobalTabLimit {
		return m.handleError(ErrTabLimit)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelOpen = cancel
	m.loading = overlay.NewLoadingOverlay(fmt.Sprintf("Loading radare2 %s", version), &m.spinner)
	m.state = stateLoading
	m.sizeOverlays()

	req := session.OpenRequest{
		File:      p.file,
		FilePath:  p.path,
		Version:   version,
		UseProxy:  m.cfg.UseProxy,
		WantCache: m.cfg.WantCache,
		Title:     p.title,
	}
	ch := make(chan loader.Progress, 16)
	open := func() tea.Msg {
		defer close(ch)
		id, err := m.manager.Open(ctx, req, func(p loader.Progress) {
			select {
			case ch <- p:
			default:
			}
		})
		return openDoneMsg{id: id, version: version, err: err, canceled: ctx.Err() != nil}
	}
	return tea.Batch(open, waitForProgress(ch))
}

// waitForProgress delivers the next progress report of an open in flight.
func waitForProgress(ch <-chan loader.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg{progress: p, ch: ch}
	}
}

func (m *home) handleOpenDone(msg openDoneMsg) tea.Cmd {
	if m.cancelOpen != nil {
		m.cancelOpen()
		m.cancelOpen = nil
	}
	m.loading = nil
	if m.state == stateLoading {
		m.state = stateDefault
	}

	if msg.canceled {
		log.InfoLog.Printf("open of tab %d canceled", msg.id)
		if err := m.manager.Close(msg.id); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
			log.WarningLog.Printf("failed to close canceled tab: %v", err)
		}
		m.forgetScreen(msg.id)
		return nil
	}

	save := m.requestSave()
	if msg.err != nil {
		return tea.Batch(save, m.handleError(msg.err))
	}
	if m.deps.State != nil {
		if err := m.deps.State.SetLastVersion(msg.version); err != nil {
			log.WarningLog.Printf("failed to save last version: %v", err)
		}
	}
	if rec, err := m.manager.Get(msg.id); err == nil {
		m.resizeInstance(rec.Instance)
	}
	return save
}

// reopenFailed replaces the active tab with a fresh one when it never
// started, so a failed download can be retried in place.
func (m *home) reopenFailed() tea.Cmd {
	active := m.manager.Active()
	if active == nil || active.Err == nil || active.FilePath == "" {
		return nil
	}
	if active.Instance.State() != session.StateUnstarted {
		return nil
	}
	p, err := m.readFile(active.FilePath, active.Title)
	if err != nil {
		return m.handleError(err)
	}
	if err := m.manager.Close(active.ID); err != nil {
		return m.handleError(err)
	}
	m.forgetScreen(active.ID)
	m.pending = p
	m.cfg.UseProxy = active.UseProxy
	return m.startOpen(active.Version)
}

// startupCmd reopens the saved tabs, then the files given on the command
// line, one after another so they keep their order.
func (m *home) startupCmd() tea.Cmd {
	var reqs []session.OpenRequest
	var errs []error

	if m.deps.Restore && m.storage != nil {
		tabs, err := m.storage.LoadTabs()
		if err != nil {
			errs = append(errs, err)
		}
		for _, t := range tabs {
			p, err := m.readFile(t.FilePath, t.Title)
			if err != nil {
				log.WarningLog.Printf("not restoring tab %q: %v", t.Title, err)
				errs = append(errs, err)
				continue
			}
			reqs = append(reqs, session.OpenRequest{
				File:      p.file,
				FilePath:  p.path,
				Version:   t.Version,
				UseProxy:  t.UseProxy,
				WantCache: m.cfg.WantCache,
				Title:     t.Title,
			})
		}
	}
	for _, path := range m.deps.Files {
		p, err := m.readFile(path, "")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reqs = append(reqs, session.OpenRequest{
			File:      p.file,
			FilePath:  p.path,
			Version:   m.cfg.DefaultVersion,
			UseProxy:  m.cfg.UseProxy,
			WantCache: m.cfg.WantCache,
		})
	}
	if len(reqs) > GlobalTabLimit {
		errs = append(errs, ErrTabLimit)
		reqs = reqs[:GlobalTabLimit]
	}
	if len(reqs) == 0 && len(errs) == 0 {
		return nil
	}

	ctx := m.ctx
	return func() tea.Msg {
		done := restoreDoneMsg{errs: errs}
		for _, req := range reqs {
			if _, err := m.manager.Open(ctx, req, nil); err != nil {
				done.errs = append(done.errs, err)
				continue
			}
			done.opened++
		}
		return done
	}
}

func (m *home) handleRestoreDone(msg restoreDoneMsg) tea.Cmd {
	log.InfoLog.Printf("opened %d tabs at startup", msg.opened)
	for _, rec := range m.manager.List() {
		m.resizeInstance(rec.Instance)
	}
	save := m.requestSave()
	if err := errors.Join(msg.errs...); err != nil {
		return tea.Batch(save, m.handleError(err))
	}
	return save
}

func (m *home) restartAllCmd() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return restartDoneMsg{err: m.manager.RestartAll(ctx)}
	}
}

// requestSave schedules one write of the open tabs however many changes
// arrive within the debounce window.
func (m *home) requestSave() tea.Cmd {
	if m.storage == nil || m.pendingSave {
		return nil
	}
	m.pendingSave = true
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return saveDebounceMsg{}
	})
}

func (m *home) save() error {
	if m.storage == nil {
		return nil
	}
	if err := m.storage.SaveTabs(m.manager.List()); err != nil {
		return fmt.Errorf("failed to save tabs: %w", err)
	}
	return nil
}

// syncFromDisk notices tabs saved by another window. The open tabs are
// kept and written back on the next save.
func (m *home) syncFromDisk() {
	if m.storage == nil {
		return
	}
	tabs, synced, err := m.storage.SyncFromDisk()
	if err != nil {
		log.WarningLog.Printf("failed to sync tabs: %v", err)
		return
	}
	if synced {
		log.InfoLog.Printf("another window saved %d tabs", len(tabs))
	}
}
