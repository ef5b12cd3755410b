package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"r2tabs/loader"
	"r2tabs/log"
	"r2tabs/session/vfs"
	"r2tabs/session/wordgen"
)

// PackageSource resolves packages for new sessions. *loader.Registry is the
// production implementation.
type PackageSource interface {
	Get(ctx context.Context, req loader.Request, onProgress loader.ProgressFunc) (*loader.Package, error)
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Packages PackageSource
	Runtime  Runtime
	NewDir   func() (*vfs.Dir, error)
	// NewTerminal creates the terminal binding of a session. It receives
	// only the session id.
	NewTerminal   func(id int) Terminal
	Clipboard     Clipboard
	Prompter      Prompter
	AnalysisDepth int
}

// Record is one tab.
type Record struct {
	ID        int
	Title     string
	Version   string
	FilePath  string
	UseProxy  bool
	CreatedAt time.Time
	Instance  *Instance
	// Err is set when the session failed to start.
	Err error

	// Summary is a short status line for the tab bar, refreshed by a
	// Summarizer.
	Summary          string
	SummaryUpdatedAt time.Time
}

// OpenRequest describes a tab to open.
type OpenRequest struct {
	File *File
	// FilePath is where File was read from, kept so the tab can be reopened.
	FilePath  string
	Version   string
	UseProxy  bool
	WantCache bool
	Title     string
}

// Manager owns every open tab. Exactly one tab is active whenever any is
// open.
type Manager struct {
	opts ManagerOptions

	mu      sync.Mutex
	records map[int]*Record
	nextID  int
	active  int
}

// NewManager creates an empty manager.
func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		opts:    opts,
		records: make(map[int]*Record),
		nextID:  1,
	}
}

// Open creates a tab, makes it active and starts its instance. A tab whose
// package fails to load or whose instance fails to start is kept open with
// the error shown on its terminal; its id is returned with the error.
func (m *Manager) Open(ctx context.Context, req OpenRequest, onProgress loader.ProgressFunc) (int, error) {
	title := req.Title
	if title == "" && req.File != nil {
		title = filepath.Base(req.File.Name)
	}

	m.mu.Lock()
	if title == "" {
		title = wordgen.GenerateUnique(m.titleTakenLocked)
	}
	id := m.nextID
	m.nextID++
	inst := NewInstance(InstanceOptions{
		Runtime:       m.opts.Runtime,
		NewDir:        m.opts.NewDir,
		Terminal:      m.opts.NewTerminal(id),
		Clipboard:     m.opts.Clipboard,
		Prompter:      m.opts.Prompter,
		AnalysisDepth: m.opts.AnalysisDepth,
	})
	rec := &Record{
		ID:        id,
		Title:     title,
		Version:   req.Version,
		FilePath:  req.FilePath,
		UseProxy:  req.UseProxy,
		CreatedAt: time.Now(),
		Instance:  inst,
	}
	m.records[id] = rec
	m.active = id
	m.mu.Unlock()

	pkg, err := m.opts.Packages.Get(ctx, loader.Request{
		Version:   req.Version,
		UseProxy:  req.UseProxy,
		WantCache: req.WantCache,
	}, onProgress)
	if err != nil {
		inst.term.WriteError(fmt.Sprintf("Failed to load radare2 %s: %v", req.Version, err))
		m.setErr(rec, err)
		log.ErrorLog.Printf("session %d: %v", id, err)
		return id, err
	}

	if err := inst.Create(ctx, pkg, req.File); err != nil {
		m.setErr(rec, err)
		log.ErrorLog.Printf("session %d: %v", id, err)
		return id, err
	}
	return id, nil
}

func (m *Manager) titleTakenLocked(title string) bool {
	for _, rec := range m.records {
		if rec.Title == title {
			return true
		}
	}
	return false
}

func (m *Manager) setErr(rec *Record, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Err = err
}

// Get returns the tab with id.
func (m *Manager) Get(id int) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	return rec, nil
}

// List returns every tab ordered by id.
func (m *Manager) List() []*Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked()
}

func (m *Manager) listLocked() []*Record {
	out := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// Snapshot returns copies of every tab ordered by id. Unlike List, the
// copies can be read while a tab is still being opened.
func (m *Manager) Snapshot() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.listLocked()
	out := make([]Record, len(recs))
	for n, rec := range recs {
		out[n] = *rec
	}
	return out
}

// UpdateNextSummary lets s refresh the summary of the next tab in its
// rotation.
func (m *Manager) UpdateNextSummary(s *Summarizer) *Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return s.UpdateNextSummary(m.listLocked())
}

// Len returns the number of open tabs.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Active returns the active tab, or nil when none is open.
func (m *Manager) Active() *Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[m.active]
}

// Activate focuses the tab with id.
func (m *Manager) Activate(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	m.active = id
	return nil
}

// Next focuses the tab after the active one, wrapping around.
func (m *Manager) Next() int {
	return m.step(1)
}

// Prev focuses the tab before the active one, wrapping around.
func (m *Manager) Prev() int {
	return m.step(-1)
}

func (m *Manager) step(delta int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.listLocked()
	if len(recs) == 0 {
		return 0
	}
	idx := 0
	for n, rec := range recs {
		if rec.ID == m.active {
			idx = n
			break
		}
	}
	idx = (idx + delta + len(recs)) % len(recs)
	m.active = recs[idx].ID
	return m.active
}

// Close disposes the tab with id. If it was active, the neighbouring tab
// becomes active.
func (m *Manager) Close(id int) error {
	m.mu.Lock()
	rec, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	if m.active == id {
		m.active = 0
		recs := m.listLocked()
		for n, r := range recs {
			if r.ID != id {
				continue
			}
			if n+1 < len(recs) {
				m.active = recs[n+1].ID
			} else if n > 0 {
				m.active = recs[n-1].ID
			}
			break
		}
	}
	delete(m.records, id)
	m.mu.Unlock()

	rec.Instance.Dispose()
	log.InfoLog.Printf("closed session %d (%s)", id, rec.Title)
	return nil
}

// CloseAll disposes every tab.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	recs := m.listLocked()
	m.records = make(map[int]*Record)
	m.active = 0
	m.mu.Unlock()

	instances := make([]*Instance, len(recs))
	for n, rec := range recs {
		instances[n] = rec.Instance
	}
	ParallelDispose(instances)
}

// HandleInput routes key to the active tab.
func (m *Manager) HandleInput(ctx context.Context, key Key) error {
	rec := m.Active()
	if rec == nil {
		return ErrSessionNotFound
	}
	return rec.Instance.HandleKey(ctx, key)
}

// Restart restarts the instance of tab id.
func (m *Manager) Restart(ctx context.Context, id int) error {
	rec, err := m.Get(id)
	if err != nil {
		return err
	}
	return rec.Instance.Restart(ctx)
}

// RestartAll restarts every running tab concurrently.
func (m *Manager) RestartAll(ctx context.Context) error {
	recs := m.List()
	instances := make([]*Instance, len(recs))
	for n, rec := range recs {
		instances[n] = rec.Instance
	}
	var errs []error
	for _, res := range ParallelRestart(ctx, instances) {
		if res.Error != nil {
			errs = append(errs, res.Error)
		}
	}
	return errors.Join(errs...)
}
