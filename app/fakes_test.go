package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"r2tabs/loader"
	"r2tabs/session"
)

var testImage = append([]byte("\x00asm\x01\x00\x00\x00"), make([]byte, 64)...)

// stdinRecorder stands in for an instance's stdin. onLine sees every
// complete line written.
type stdinRecorder struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	onLine func(line string)
}

func (w *stdinRecorder) Write(p []byte) (int, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	w.buf.Write(p)
	hook := w.onLine
	w.mu.Unlock()

	if hook != nil {
		for _, line := range strings.Split(string(p), "\r") {
			if line != "" {
				hook(line)
			}
		}
	}
	return len(p), nil
}

func (w *stdinRecorder) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *stdinRecorder) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

type fakeHandle struct {
	stdin   *stdinRecorder
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter
}

func (h *fakeHandle) Stdin() io.WriteCloser { return h.stdin }
func (h *fakeHandle) Stdout() io.Reader     { return h.stdoutR }
func (h *fakeHandle) Stderr() io.Reader     { return h.stderrR }

func (h *fakeHandle) Close() error {
	h.stdoutW.Close()
	h.stderrW.Close()
	return nil
}

// fakeRuntime launches handles that answer every redirected command by
// writing reply into the redirect target.
type fakeRuntime struct {
	mu      sync.Mutex
	handles []*fakeHandle
	reply   string
}

func (r *fakeRuntime) Launch(ctx context.Context, spec session.LaunchSpec) (session.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := &fakeHandle{stdin: &stdinRecorder{}}
	h.stdoutR, h.stdoutW = io.Pipe()
	h.stderrR, h.stderrW = io.Pipe()
	reply := r.reply
	h.stdin.onLine = func(line string) {
		if _, file, ok := strings.Cut(line, " > "); ok && reply != "" {
			_ = spec.Dir.WriteFile(file, []byte(reply))
		}
	}
	r.handles = append(r.handles, h)
	return h, nil
}

func (r *fakeRuntime) launches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

func (r *fakeRuntime) last() *fakeHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handles[len(r.handles)-1]
}

// fakePackages resolves every version to the test image. When gate is set
// it blocks until the gate closes or the request is canceled.
type fakePackages struct {
	mu       sync.Mutex
	err      error
	gate     chan struct{}
	requests []loader.Request
}

func (p *fakePackages) Get(ctx context.Context, req loader.Request, onProgress loader.ProgressFunc) (*loader.Package, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	err, gate := p.err, p.gate
	p.mu.Unlock()

	if onProgress != nil {
		onProgress(loader.Progress{Phase: loader.PhaseDownloading, Percent: 50, Loaded: 512, Total: 1024})
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return loader.Decode(req.Version, testImage, loader.SourceNetwork)
}

func (p *fakePackages) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type fakeClipboard struct {
	mu      sync.Mutex
	text    string
	written []string
}

func (c *fakeClipboard) ReadAll() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.text == "" {
		return "", errors.New("clipboard is empty")
	}
	return c.text, nil
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, text)
	return nil
}

type fakeVersions []string

func (v fakeVersions) Keys() ([]string, error) {
	return v, nil
}

// fakeResolver adapts fakePackages to loader.Resolver.
type fakeResolver struct {
	*fakePackages
}

func (r fakeResolver) Resolve(ctx context.Context, req loader.Request, onProgress loader.ProgressFunc) (*loader.Package, error) {
	return r.Get(ctx, req, onProgress)
}
