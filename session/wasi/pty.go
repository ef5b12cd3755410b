package wasi

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"

	"r2tabs/session"
)

var _ session.Resizer = (*ptyProcess)(nil)

type ptyProcess struct {
	*process
	ptmx *os.File
}

// Resize updates the pseudo terminal's window size.
func (p *ptyProcess) Resize(rows, cols int) error {
	return pty.Setsize(p.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

func startPTY(c *exec.Cmd, rows, cols int) (*ptyProcess, error) {
	ptmx, err := pty.StartWithSize(c, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s with PTY: %w", c.Path, err)
	}
	return &ptyProcess{
		process: &process{
			cmd:     c,
			stdin:   nopWriteCloser{ptmx},
			stdout:  ptyReader{ptmx},
			closers: []io.Closer{ptmx},
		},
		ptmx: ptmx,
	}, nil
}

// ptyReader reports the EIO a pseudo terminal returns once the child has
// exited as a plain EOF.
type ptyReader struct {
	f *os.File
}

func (r ptyReader) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	if err != nil && errors.Is(err, syscall.EIO) {
		err = io.EOF
	}
	return n, err
}

// nopWriteCloser leaves the pseudo terminal open; the process closes it.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
