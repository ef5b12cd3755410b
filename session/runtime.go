package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"r2tabs/loader"
	"r2tabs/session/vfs"
)

var (
	ErrNoFileProvided    = errors.New("no file provided")
	ErrNoPackage         = errors.New("no package loaded")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNotRunning        = errors.New("instance is not running")
	ErrSessionNotFound   = errors.New("session not found")
)

// Handle is one running instance with its three byte streams.
type Handle interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader
	// Close frees the instance. Pending reads on Stdout and Stderr return.
	Close() error
}

// Resizer is implemented by handles that run on a pseudo terminal.
type Resizer interface {
	Resize(rows, cols int) error
}

// LaunchSpec describes an instance to launch. Dir is mounted as the
// instance's root directory and already holds the primary file.
type LaunchSpec struct {
	Package *loader.Package
	Dir     *vfs.Dir
	Args    []string
}

// Runtime launches instances of a package.
type Runtime interface {
	Launch(ctx context.Context, spec LaunchSpec) (Handle, error)
}

// Terminal is the surface an instance renders to.
type Terminal interface {
	io.Writer
	// WriteError shows msg inline without disturbing the session.
	WriteError(msg string)
	// Clear wipes the visible screen.
	Clear()
	// LastLine returns the text of the most recently rendered line.
	LastLine() string
	// Close unbinds the terminal; later output is dropped.
	Close()
}

// Clipboard reads the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
}

// Prompter asks the user for a single line of text.
type Prompter interface {
	Prompt(label string) (string, error)
}

// File is the primary file an instance analyses.
type File struct {
	Name string
	Data []byte
}

// StartupArgs returns the fixed arguments every instance is launched with.
func StartupArgs(analysisDepth int, fileName string) []string {
	return []string{
		"-e", "io.cache=true",
		"-e", fmt.Sprintf("anal.depth=%d", analysisDepth),
		fileName,
	}
}
