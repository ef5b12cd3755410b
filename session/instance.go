package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"r2tabs/loader"
	"r2tabs/log"
	"r2tabs/session/vfs"
)

// State is the lifecycle state of an Instance.
type State int

const (
	StateUnstarted State = iota
	StateStarting
	StateRunning
	StateRestarting
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateRestarting:
		return "restarting"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const readChunkSize = 32 * 1024

// InstanceOptions configures an Instance.
type InstanceOptions struct {
	Runtime Runtime
	// NewDir allocates a mounted directory. Defaults to vfs.NewMemory.
	NewDir        func() (*vfs.Dir, error)
	Terminal      Terminal
	Clipboard     Clipboard
	Prompter      Prompter
	AnalysisDepth int
}

// Instance is one running instance bound to a terminal. Input handling and
// output rendering are serialized by mu.
type Instance struct {
	mu sync.Mutex

	state   State
	runtime Runtime
	newDir  func() (*vfs.Dir, error)
	term    Terminal
	depth   int

	clipboard Clipboard
	prompter  Prompter

	pkg  *loader.Package
	file *File

	dir    *vfs.Dir
	handle Handle
	stdin  io.WriteCloser
	// generation increments whenever the handle is replaced; pumps of an
	// older generation drop their output.
	generation uint64
	stopPumps  context.CancelFunc

	pending []rune
	history []string
	cursor  int
	token   *CancelToken

	// async tracks clipboard reads still in flight.
	async sync.WaitGroup
}

// NewInstance creates an unstarted instance.
func NewInstance(opts InstanceOptions) *Instance {
	newDir := opts.NewDir
	if newDir == nil {
		newDir = func() (*vfs.Dir, error) { return vfs.NewMemory(), nil }
	}
	return &Instance{
		state:     StateUnstarted,
		runtime:   opts.Runtime,
		newDir:    newDir,
		term:      opts.Terminal,
		depth:     opts.AnalysisDepth,
		clipboard: opts.Clipboard,
		prompter:  opts.Prompter,
	}
}

// State returns the current lifecycle state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Dir returns the live mounted directory, or nil when none is mounted.
func (i *Instance) Dir() *vfs.Dir {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dir
}

// MountedDir returns the live mounted directory of a running instance.
func (i *Instance) MountedDir() (*vfs.Dir, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateRunning || i.dir == nil {
		return nil, ErrNotRunning
	}
	return i.dir, nil
}

// History returns a copy of the submitted input lines.
func (i *Instance) History() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]string, len(i.history))
	copy(out, i.history)
	return out
}

// Pending returns the input typed since the last submit.
func (i *Instance) Pending() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return string(i.pending)
}

// LastLine returns the most recently rendered line of the terminal.
func (i *Instance) LastLine() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.term.LastLine()
}

// Create launches the instance against file. It is only valid on an
// unstarted instance. A missing file leaves the instance unstarted, shows a
// message on the terminal and allocates nothing.
func (i *Instance) Create(ctx context.Context, pkg *loader.Package, file *File) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != StateUnstarted {
		return fmt.Errorf("%w: create from %s", ErrInvalidTransition, i.state)
	}
	if pkg == nil {
		i.term.WriteError("No binary loaded. Select a version and try again.")
		return ErrNoPackage
	}
	if file == nil || file.Name == "" {
		i.term.WriteError("No file provided. Open a file to start a session.")
		return ErrNoFileProvided
	}

	i.pkg = pkg
	i.file = file
	i.state = StateStarting
	if err := i.launchLocked(ctx); err != nil {
		i.state = StateUnstarted
		i.term.WriteError(fmt.Sprintf("Failed to start: %v", err))
		return err
	}
	i.state = StateRunning
	log.InfoLog.Printf("started %s with radare2 %s", file.Name, pkg.Version)
	return nil
}

// Restart replaces the running instance with a fresh one on a new
// directory. If the relaunch fails the instance stays in StateRestarting
// and only Dispose is valid afterwards.
func (i *Instance) Restart(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.restartLocked(ctx)
}

func (i *Instance) restartLocked(ctx context.Context) error {
	if i.state != StateRunning {
		return fmt.Errorf("%w: restart from %s", ErrInvalidTransition, i.state)
	}
	i.state = StateRestarting
	i.teardownLocked()
	i.pending = i.pending[:0]
	i.term.Clear()

	if err := i.launchLocked(ctx); err != nil {
		i.term.WriteError(fmt.Sprintf("Failed to restart: %v", err))
		return err
	}
	i.state = StateRunning
	log.InfoLog.Printf("restarted %s", i.file.Name)
	return nil
}

// Dispose tears the instance down. It is valid in every state, may be
// called any number of times and never fails.
func (i *Instance) Dispose() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state == StateDisposed {
		return
	}
	i.teardownLocked()
	if i.token != nil {
		i.token.request()
		i.token = nil
	}
	i.term.Close()
	i.state = StateDisposed
}

// launchLocked allocates a directory, mounts the primary file and starts a
// handle. On failure nothing is left allocated.
func (i *Instance) launchLocked(ctx context.Context) error {
	dir, err := i.newDir()
	if err != nil {
		return fmt.Errorf("failed to allocate directory: %w", err)
	}
	if err := dir.WriteFile(i.file.Name, i.file.Data); err != nil {
		dir.Release()
		return fmt.Errorf("failed to mount %s: %w", i.file.Name, err)
	}

	handle, err := i.runtime.Launch(ctx, LaunchSpec{
		Package: i.pkg,
		Dir:     dir,
		Args:    StartupArgs(i.depth, i.file.Name),
	})
	if err != nil {
		dir.Release()
		return fmt.Errorf("failed to launch instance: %w", err)
	}

	i.dir = dir
	i.handle = handle
	i.stdin = handle.Stdin()
	i.generation++

	pumpCtx, cancel := context.WithCancel(context.Background())
	i.stopPumps = cancel
	go i.pump(pumpCtx, i.generation, "stdout", handle.Stdout(), true)
	go i.pump(pumpCtx, i.generation, "stderr", handle.Stderr(), false)
	return nil
}

// teardownLocked releases the current handle and directory. Errors are
// logged and swallowed.
func (i *Instance) teardownLocked() {
	if i.stopPumps != nil {
		i.stopPumps()
		i.stopPumps = nil
	}
	i.generation++

	var errs []error
	if i.stdin != nil {
		if err := i.stdin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close stdin: %w", err))
		}
		i.stdin = nil
	}
	if i.handle != nil {
		if err := i.handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close instance: %w", err))
		}
		i.handle = nil
	}
	if i.dir != nil {
		i.dir.Release()
		i.dir = nil
	}
	if err := errors.Join(errs...); err != nil {
		log.WarningLog.Printf("cleanup: %v", err)
	}
}

// pump copies one output stream into the terminal chunk by chunk.
func (i *Instance) pump(ctx context.Context, gen uint64, name string, r io.Reader, primary bool) {
	if r == nil {
		return
	}
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if !i.render(ctx, gen, name, buf[:n]) {
				return
			}
		}
		if err != nil {
			if primary && ctx.Err() == nil && err == io.EOF {
				i.notifyExit(gen)
			} else if err != io.EOF && ctx.Err() == nil {
				log.WarningLog.Printf("%s read failed: %v", name, err)
			}
			return
		}
	}
}

// render writes one chunk under the instance lock. It returns false when
// the pump belongs to a replaced handle.
func (i *Instance) render(ctx context.Context, gen uint64, name string, chunk []byte) bool {
	done := log.GetProfiler().StartChunk(name)

	i.mu.Lock()
	defer i.mu.Unlock()
	if ctx.Err() != nil || gen != i.generation || i.state == StateDisposed {
		done(0, nil)
		return false
	}
	_, err := i.term.Write(chunk)
	done(len(chunk), err)
	if err != nil {
		log.ErrorLog.Printf("failed to render %s chunk: %v", name, err)
		i.term.WriteError(fmt.Sprintf("render error: %v", err))
	}
	return true
}

func (i *Instance) notifyExit(gen uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if gen != i.generation || i.state != StateRunning {
		return
	}
	i.term.WriteError("radare2 exited. Press Ctrl+R to restart.")
}

// SendLine forwards line and a terminator without touching the pending
// input or the history.
func (i *Instance) SendLine(line string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateRunning {
		return ErrNotRunning
	}
	return i.forwardLocked(line + lineTerminator)
}

func (i *Instance) forwardLocked(s string) error {
	if i.stdin == nil {
		return ErrNotRunning
	}
	if _, err := io.WriteString(i.stdin, s); err != nil {
		log.ErrorLog.Printf("failed to write to instance: %v", err)
		return fmt.Errorf("failed to write to instance: %w", err)
	}
	return nil
}

// WaitAsync blocks until in-flight clipboard reads have been applied or
// timeout passes.
func (i *Instance) WaitAsync(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		i.async.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Resize passes a new window size to the running handle. Handles on plain
// pipes have no window and ignore it.
func (i *Instance) Resize(rows, cols int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	r, ok := i.handle.(Resizer)
	if !ok {
		return nil
	}
	return r.Resize(rows, cols)
}
