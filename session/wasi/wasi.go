// Package wasi launches radare2 builds under an external WASI runner such as
// wasmtime.
package wasi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"r2tabs/cmd"
	"r2tabs/config"
	"r2tabs/log"
	"r2tabs/session"
)

// Mode selects how the runner's standard streams are wired.
type Mode string

const (
	// ModePipe uses three plain pipes.
	ModePipe Mode = "pipe"
	// ModePTY runs the instance on a pseudo terminal. Stdout and stderr are
	// merged.
	ModePTY Mode = "pty"
)

const stagedName = "radare2.wasm"

// ErrNotMountable is returned when the directory has no host path the runner
// could map into the guest.
var ErrNotMountable = errors.New("directory cannot be mounted")

// Options configures a Runtime.
type Options struct {
	// Command is the runner executable.
	Command string
	Mode    Mode
	// StageDir holds the staged packages. Defaults to the system temp dir.
	StageDir string
	// Rows and Cols size the pseudo terminal in ModePTY.
	Rows, Cols int
	Exec       cmd.Executor
}

// Runtime implements session.Runtime by spawning one runner process per
// instance. The mounted directory becomes the guest's root.
type Runtime struct {
	opts Options

	mu     sync.Mutex
	stage  string
	staged map[string]string // digest -> staged path
}

var _ session.Runtime = (*Runtime)(nil)

// New creates a Runtime.
func New(opts Options) *Runtime {
	if opts.Command == "" {
		opts.Command = "wasmtime"
	}
	if opts.Mode == "" {
		opts.Mode = ModePipe
	}
	if opts.Rows <= 0 {
		opts.Rows = 24
	}
	if opts.Cols <= 0 {
		opts.Cols = 80
	}
	if opts.Exec == nil {
		opts.Exec = cmd.MakeExecutor()
	}
	return &Runtime{opts: opts, staged: make(map[string]string)}
}

// NewFromConfig creates a Runtime from the application config.
func NewFromConfig(cfg *config.Config) *Runtime {
	mode := ModePipe
	if cfg.UsePTY {
		mode = ModePTY
	}
	return New(Options{Command: cfg.RuntimeCommand, Mode: mode})
}

// Mode returns the stream wiring in use.
func (r *Runtime) Mode() Mode {
	return r.opts.Mode
}

// IsAvailable reports whether the runner can be executed.
func (r *Runtime) IsAvailable() bool {
	return r.opts.Exec.Run(exec.Command(r.opts.Command, "--version")) == nil
}

// Version returns the runner's version line.
func (r *Runtime) Version() (string, error) {
	out, err := r.opts.Exec.Output(exec.Command(r.opts.Command, "--version"))
	if err != nil {
		return "", fmt.Errorf("%s is not available: %w", r.opts.Command, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Command builds the runner invocation for spec with the package staged at
// wasmPath.
func (r *Runtime) Command(wasmPath string, spec session.LaunchSpec) *exec.Cmd {
	args := []string{"run", "--dir", spec.Dir.HostPath() + "::/", wasmPath}
	args = append(args, spec.Args...)
	c := exec.Command(r.opts.Command, args...)
	c.Dir = spec.Dir.HostPath()
	return c
}

// Launch stages the package and starts the runner.
func (r *Runtime) Launch(ctx context.Context, spec session.LaunchSpec) (session.Handle, error) {
	if spec.Package == nil {
		return nil, session.ErrNoPackage
	}
	if spec.Dir == nil || spec.Dir.HostPath() == "" {
		return nil, ErrNotMountable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wasmPath, err := r.stagePackage(spec)
	if err != nil {
		return nil, err
	}

	c := r.Command(wasmPath, spec)
	log.InfoLog.Printf("launching: %s", cmd.ToString(c))
	switch r.opts.Mode {
	case ModePTY:
		return startPTY(c, r.opts.Rows, r.opts.Cols)
	default:
		return startPipes(c)
	}
}

// stagePackage writes the package to disk once per digest.
func (r *Runtime) stagePackage(spec session.LaunchSpec) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	digest := spec.Package.Digest()
	if path, ok := r.staged[digest]; ok {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if r.stage == "" {
		dir, err := os.MkdirTemp(r.opts.StageDir, "r2tabs-stage-")
		if err != nil {
			return "", fmt.Errorf("failed to create stage directory: %w", err)
		}
		r.stage = dir
	}

	dir := filepath.Join(r.stage, digest[:16])
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create stage directory: %w", err)
	}
	path := filepath.Join(dir, stagedName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to stage package: %w", err)
	}
	if _, err := spec.Package.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to stage package: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to stage package: %w", err)
	}

	r.staged[digest] = path
	log.Debug("staged %s (%s) at %s", spec.Package.Version, digest[:12], path)
	return path, nil
}

// Close removes every staged package.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stage == "" {
		return nil
	}
	err := os.RemoveAll(r.stage)
	r.stage = ""
	r.staged = make(map[string]string)
	return err
}

// process is a running runner.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader

	// closers run after the process is gone.
	closers []io.Closer

	once sync.Once
	err  error
}

func (p *process) Stdin() io.WriteCloser { return p.stdin }
func (p *process) Stdout() io.Reader     { return p.stdout }
func (p *process) Stderr() io.Reader     { return p.stderr }

// Close kills the runner and waits for it to exit.
func (p *process) Close() error {
	p.once.Do(func() {
		var errs []error
		if p.cmd.Process != nil {
			if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				errs = append(errs, fmt.Errorf("failed to kill runner: %w", err))
			}
		}
		// Killed runners always exit with an error.
		_ = p.cmd.Wait()
		for _, c := range p.closers {
			if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				errs = append(errs, err)
			}
		}
		p.err = errors.Join(errs...)
	})
	return p.err
}

func startPipes(c *exec.Cmd) (*process, error) {
	stdin, err := c.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin: %w", err)
	}
	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout: %w", err)
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr: %w", err)
	}
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", c.Path, err)
	}
	return &process{cmd: c, stdin: icrnlWriter{stdin}, stdout: stdout, stderr: stderr}, nil
}

// icrnlWriter maps CR to NL the way a terminal's line discipline does, so a
// runner reading lines from a plain pipe sees each submitted command.
type icrnlWriter struct {
	io.WriteCloser
}

func (w icrnlWriter) Write(p []byte) (int, error) {
	if bytes.IndexByte(p, '\r') < 0 {
		return w.WriteCloser.Write(p)
	}
	return w.WriteCloser.Write(bytes.ReplaceAll(p, []byte{'\r'}, []byte{'\n'}))
}
