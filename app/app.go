package app

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"

	"r2tabs/config"
	"r2tabs/log"
	"r2tabs/scrape"
	"r2tabs/session"
	"r2tabs/session/terminal"
	"r2tabs/session/vfs"
	"r2tabs/ui"
	"r2tabs/ui/layout"
	"r2tabs/ui/overlay"
)

const GlobalTabLimit = 32

var _ scrape.Target = (*session.Instance)(nil)

// VersionLister lists the versions present in the binary cache.
type VersionLister interface {
	Keys() ([]string, error)
}

// Deps are the services the UI drives.
type Deps struct {
	Config *config.Config
	// State persists the open tabs. May be nil.
	State    config.StateManager
	Packages session.PackageSource
	Runtime  session.Runtime
	// NewDir allocates the directory each instance mounts.
	NewDir func() (*vfs.Dir, error)
	// Versions may be nil.
	Versions  VersionLister
	Clipboard session.Clipboard
	// Fs is where files to open are read from. Defaults to the OS.
	Fs afero.Fs
	// TranslateLF is set when instances write through plain pipes.
	TranslateLF bool
	// Restore reopens the tabs saved by the previous run.
	Restore bool
	// Files are opened after the saved tabs.
	Files []string
}

// Run is the main entrypoint into the application.
func Run(ctx context.Context, deps Deps) error {
	h := newHome(ctx, deps)
	p := tea.NewProgram(h, tea.WithAltScreen())
	_, err := p.Run()
	h.shutdown()
	return err
}

type state int

const (
	stateDefault state = iota
	// stateBrowse is picking the file of a new tab.
	stateBrowse
	// stateVersion is picking the radare2 version of a new tab.
	stateVersion
	// stateVersionInput is typing a version by name.
	stateVersionInput
	// stateLoading is waiting for a tab to open.
	stateLoading
	// statePrompt is asking for a search term or an address.
	statePrompt
	// stateView is showing a scrape result or the help text.
	stateView
)

func (s state) String() string {
	switch s {
	case stateDefault:
		return "default"
	case stateBrowse:
		return "browse"
	case stateVersion:
		return "version"
	case stateVersionInput:
		return "version_input"
	case stateLoading:
		return "loading"
	case statePrompt:
		return "prompt"
	case stateView:
		return "view"
	default:
		return "unknown"
	}
}

// pendingOpen is a file picked for a new tab that still needs a version.
type pendingOpen struct {
	path  string
	file  *session.File
	title string
}

type home struct {
	ctx  context.Context
	deps Deps
	cfg  *config.Config

	// -- Services --

	manager    *session.Manager
	storage    *session.Storage
	summarizer *session.Summarizer
	scraper    *scrape.Protocol
	prompter   *answerPrompter

	// screensMu guards screens and the pane size, which Open reads from
	// its own goroutine.
	screensMu          sync.Mutex
	screens            map[int]*terminal.Screen
	paneRows, paneCols int

	// -- State --

	state       state
	pending     *pendingOpen
	promptKind  session.KeyKind
	pendingSave bool
	// scraping is set while a scrape runs; only one runs at a time.
	scraping   bool
	cancelOpen context.CancelFunc

	width, height int
	constraints   layout.Constraints
	degradation   layout.Degradation

	// -- UI Components --

	tabs    *ui.TabList
	pane    *ui.TerminalPane
	menu    *ui.Menu
	errBox  *ui.ErrBox
	spinner spinner.Model

	fileBrowser     *overlay.FileBrowserOverlay
	versionSelector *overlay.VersionSelectorOverlay
	textInput       *overlay.TextInputOverlay
	loading         *overlay.LoadingOverlay
	viewer          *overlay.TextViewerOverlay

	errHideDelay time.Duration
	resizeLog    *log.Every
	inspectEvery *log.Every
}

func newHome(ctx context.Context, deps Deps) *home {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}

	h := &home{
		ctx:          ctx,
		deps:         deps,
		cfg:          cfg,
		summarizer:   session.NewSummarizer(),
		scraper:      scrape.NewFromConfig(cfg),
		prompter:     &answerPrompter{},
		screens:      make(map[int]*terminal.Screen),
		paneRows:     layout.MinHeight,
		paneCols:     layout.MinWidth,
		spinner:      spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		pane:         ui.NewTerminalPane(),
		menu:         ui.NewMenu(),
		errBox:       ui.NewErrBox(),
		errHideDelay: 3 * time.Second,
		resizeLog:    log.NewEvery(5 * time.Second),
		inspectEvery: log.NewEvery(250 * time.Millisecond),
	}
	h.tabs = ui.NewTabList(&h.spinner)
	h.manager = session.NewManager(session.ManagerOptions{
		Packages:      deps.Packages,
		Runtime:       deps.Runtime,
		NewDir:        deps.NewDir,
		NewTerminal:   h.newScreen,
		Clipboard:     deps.Clipboard,
		Prompter:      h.prompter,
		AnalysisDepth: cfg.AnalysisDepth,
	})
	if deps.State != nil {
		h.storage = session.NewStorage(deps.State)
	}
	return h
}

// newScreen is the terminal factory of the manager. It runs on the
// goroutine of Open.
func (m *home) newScreen(id int) session.Terminal {
	m.screensMu.Lock()
	defer m.screensMu.Unlock()
	s := terminal.NewScreen(m.paneRows, m.paneCols, m.deps.TranslateLF)
	m.screens[id] = s
	return s
}

func (m *home) screen(id int) *terminal.Screen {
	m.screensMu.Lock()
	defer m.screensMu.Unlock()
	return m.screens[id]
}

func (m *home) forgetScreen(id int) {
	m.screensMu.Lock()
	defer m.screensMu.Unlock()
	delete(m.screens, id)
}

// updateHandleWindowSizeEvent sets the sizes of the components and resizes
// every tab's terminal to the new pane.
func (m *home) updateHandleWindowSizeEvent(msg tea.WindowSizeMsg) {
	m.width, m.height = msg.Width, msg.Height
	c := layout.ComputeConstraints(msg.Width, msg.Height)
	d := layout.ComputeDegradation(c)
	m.constraints, m.degradation = c, d

	m.tabs.SetSize(c.TabsWidth, c.TabsHeight, d)
	m.pane.SetSize(c.PaneWidth, c.PaneHeight)
	m.menu.SetSize(msg.Width, c.MenuHeight, d.ShortMenu)
	m.errBox.SetSize(msg.Width, c.ErrBoxHeight)
	m.sizeOverlays()

	m.screensMu.Lock()
	m.paneRows, m.paneCols = c.PaneRows, c.PaneCols
	for _, s := range m.screens {
		s.Resize(c.PaneRows, c.PaneCols)
	}
	m.screensMu.Unlock()

	for _, rec := range m.manager.List() {
		m.resizeInstance(rec.Instance)
	}
}

func (m *home) resizeInstance(inst *session.Instance) {
	m.screensMu.Lock()
	rows, cols := m.paneRows, m.paneCols
	m.screensMu.Unlock()
	if err := inst.Resize(rows, cols); err != nil && m.resizeLog.ShouldLog() {
		log.WarningLog.Printf("failed to resize instance: %v", err)
	}
}

func (m *home) sizeOverlays() {
	w, h := layout.ComputeOverlaySize(m.width, m.height, 72, m.height)
	if m.fileBrowser != nil {
		m.fileBrowser.SetSize(w, h)
	}
	if m.versionSelector != nil {
		m.versionSelector.SetWidth(min(w, 60))
	}
	if m.textInput != nil {
		m.textInput.SetWidth(min(w, 60))
	}
	if m.loading != nil {
		m.loading.SetWidth(min(w, 60))
	}
	if m.viewer != nil {
		m.viewer.SetSize(w, h)
	}
}

func (m *home) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		previewTickCmd,
		tickUpdateSummaryCmd,
		tickSyncCmd,
		m.startupCmd(),
	)
}

func (m *home) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	m.refresh()
	m.writeInspectSnapshot()
	return m, cmd
}

func (m *home) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case hideErrMsg:
		m.errBox.Clear()
	case previewTickMsg:
		return previewTickCmd
	case keyupMsg:
		m.menu.ClearKeydown()
	case saveDebounceMsg:
		m.pendingSave = false
		if err := m.save(); err != nil {
			return m.handleError(err)
		}
	case tickSyncMsg:
		m.syncFromDisk()
		return tickSyncCmd
	case tickUpdateSummaryMessage:
		if updated := m.manager.UpdateNextSummary(m.summarizer); updated != nil {
			log.InfoLog.Printf("updated summary for %s: %s", updated.Title, updated.Summary)
		}
		return tickUpdateSummaryCmd
	case progressMsg:
		if m.loading != nil {
			m.loading.SetProgress(msg.progress)
		}
		return waitForProgress(msg.ch)
	case openDoneMsg:
		return m.handleOpenDone(msg)
	case restoreDoneMsg:
		return m.handleRestoreDone(msg)
	case scrapeDoneMsg:
		return m.handleScrapeDone(msg)
	case restartDoneMsg:
		if msg.err != nil {
			return m.handleError(msg.err)
		}
	case tea.WindowSizeMsg:
		m.updateHandleWindowSizeEvent(msg)
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	}
	return nil
}

// refresh points the tab list and the pane at the current tabs.
func (m *home) refresh() {
	var activeID int
	active := m.manager.Active()
	if active != nil {
		activeID = active.ID
	}
	m.tabs.SetRecords(m.manager.Snapshot(), activeID)

	if active == nil {
		m.pane.SetScreen("", nil)
	} else {
		m.pane.SetScreen(active.Title, m.screen(activeID))
	}

	switch {
	case m.state == stateView:
		m.menu.SetState(ui.StateView)
	case m.state != stateDefault:
		m.menu.SetState(ui.StateOverlay)
	case active == nil:
		m.menu.SetState(ui.StateEmpty)
	default:
		m.menu.SetState(ui.StateDefault)
	}
}

// shutdown disposes every tab after the program ended.
func (m *home) shutdown() {
	if m.cancelOpen != nil {
		m.cancelOpen()
	}
	m.manager.CloseAll()
}

func (m *home) handleQuit() tea.Cmd {
	if err := m.save(); err != nil {
		log.ErrorLog.Printf("failed to save tabs: %v", err)
	}
	m.shutdown()
	return tea.Quit
}

func (m *home) overlayView() string {
	switch m.state {
	case stateBrowse:
		return m.fileBrowser.Render()
	case stateVersion:
		return m.versionSelector.Render()
	case stateVersionInput, statePrompt:
		return m.textInput.Render()
	case stateLoading:
		return m.loading.Render()
	case stateView:
		return m.viewer.Render()
	}
	return ""
}

func (m *home) View() string {
	var body string
	if m.constraints.UseVerticalStack {
		body = lipgloss.JoinVertical(lipgloss.Left, m.tabs.String(), m.pane.String())
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.tabs.String(), m.pane.String())
	}
	mainView := lipgloss.JoinVertical(
		lipgloss.Center,
		body,
		m.menu.String(),
		m.errBox.String(),
	)

	if o := m.overlayView(); o != "" {
		return overlay.Place(m.width, m.height, o)
	}
	return mainView
}
