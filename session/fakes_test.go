package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"r2tabs/loader"
	"r2tabs/session/vfs"
)

var testImage = append([]byte("\x00asm\x01\x00\x00\x00"), make([]byte, 64)...)

func testPackage(version string) *loader.Package {
	pkg, err := loader.Decode(version, testImage, loader.SourceCache)
	if err != nil {
		panic(err)
	}
	return pkg
}

// recordingWriter stands in for an instance's stdin.
type recordingWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.buf.Write(p)
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func (w *recordingWriter) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

type fakeHandle struct {
	stdin   *recordingWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	// keepOpen leaves the output pipes open on Close so a stale pump can
	// still deliver data.
	keepOpen bool
	closeErr error
	closed   atomic.Bool

	sizeMu sync.Mutex
	sizes  [][2]int
}

func newFakeHandle() *fakeHandle {
	h := &fakeHandle{stdin: &recordingWriter{}}
	h.stdoutR, h.stdoutW = io.Pipe()
	h.stderrR, h.stderrW = io.Pipe()
	return h
}

func (h *fakeHandle) Stdin() io.WriteCloser { return h.stdin }
func (h *fakeHandle) Stdout() io.Reader     { return h.stdoutR }
func (h *fakeHandle) Stderr() io.Reader     { return h.stderrR }

func (h *fakeHandle) Close() error {
	h.closed.Store(true)
	if !h.keepOpen {
		h.stdoutW.Close()
		h.stderrW.Close()
	}
	return h.closeErr
}

func (h *fakeHandle) Resize(rows, cols int) error {
	h.sizeMu.Lock()
	defer h.sizeMu.Unlock()
	h.sizes = append(h.sizes, [2]int{rows, cols})
	return nil
}

func (h *fakeHandle) resizes() [][2]int {
	h.sizeMu.Lock()
	defer h.sizeMu.Unlock()
	return append([][2]int(nil), h.sizes...)
}

type fakeRuntime struct {
	mu       sync.Mutex
	specs    []LaunchSpec
	handles  []*fakeHandle
	fail     bool
	keepOpen bool
	closeErr error
}

func (r *fakeRuntime) Launch(ctx context.Context, spec LaunchSpec) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, errors.New("wasmtime: not found")
	}
	h := newFakeHandle()
	h.keepOpen = r.keepOpen
	h.closeErr = r.closeErr
	r.specs = append(r.specs, spec)
	r.handles = append(r.handles, h)
	return h, nil
}

func (r *fakeRuntime) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *fakeRuntime) last() (*fakeHandle, LaunchSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handles[len(r.handles)-1], r.specs[len(r.specs)-1]
}

func (r *fakeRuntime) launches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

type fakeTerminal struct {
	mu        sync.Mutex
	out       bytes.Buffer
	errs      []string
	clears    int
	closed    bool
	last      string
	failWrite bool
}

func (t *fakeTerminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failWrite {
		return 0, errors.New("terminal detached")
	}
	return t.out.Write(p)
}

func (t *fakeTerminal) WriteError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errs = append(t.errs, msg)
}

func (t *fakeTerminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clears++
	t.out.Reset()
}

func (t *fakeTerminal) LastLine() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *fakeTerminal) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

func (t *fakeTerminal) Output() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.String()
}

func (t *fakeTerminal) Errors() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.errs...)
}

func (t *fakeTerminal) resetOutput() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.out.Reset()
}

type fakeClipboard struct {
	text string
	err  error
}

func (c fakeClipboard) ReadAll() (string, error) { return c.text, c.err }

type fakePrompter struct {
	answers map[string]string
	asked   []string
}

func (p *fakePrompter) Prompt(label string) (string, error) {
	p.asked = append(p.asked, label)
	return p.answers[label], nil
}

// dirCounter counts directory allocations.
type dirCounter struct {
	n    atomic.Int32
	dirs []*vfs.Dir
	mu   sync.Mutex
}

func (c *dirCounter) newDir() (*vfs.Dir, error) {
	c.n.Add(1)
	d := vfs.NewMemory()
	c.mu.Lock()
	c.dirs = append(c.dirs, d)
	c.mu.Unlock()
	return d, nil
}

type testInstance struct {
	*Instance
	rt    *fakeRuntime
	term  *fakeTerminal
	dirs  *dirCounter
	clip  *fakeClipboard
	asker *fakePrompter
}

func newTestInstance() *testInstance {
	ti := &testInstance{
		rt:    &fakeRuntime{},
		term:  &fakeTerminal{},
		dirs:  &dirCounter{},
		clip:  &fakeClipboard{},
		asker: &fakePrompter{answers: map[string]string{}},
	}
	ti.Instance = NewInstance(InstanceOptions{
		Runtime:       ti.rt,
		NewDir:        ti.dirs.newDir,
		Terminal:      ti.term,
		Clipboard:     ti.clip,
		Prompter:      ti.asker,
		AnalysisDepth: 24,
	})
	return ti
}

func (ti *testInstance) start() *testInstance {
	if err := ti.Create(context.Background(), testPackage("6.0.9"), &File{Name: "a.out", Data: []byte("\x7fELF")}); err != nil {
		panic(err)
	}
	return ti
}
