// Package vfs provides the mounted directory shared between one instance
// and the host: user files go in, scrape output comes back out.
package vfs

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"r2tabs/log"
)

// ErrReleased is returned by operations on a released directory.
var ErrReleased = errors.New("directory released")

// Dir is a flat namespace of named blobs. A disk-backed Dir can be mounted
// into an external runtime through HostPath.
type Dir struct {
	id       string
	fs       afero.Fs
	hostPath string

	mu       sync.Mutex
	released bool
}

// NewMemory returns a Dir held entirely in memory.
func NewMemory() *Dir {
	return &Dir{id: uuid.NewString(), fs: afero.NewMemMapFs()}
}

// NewTemp returns a Dir backed by a fresh directory under parent (the
// system temp dir when empty).
func NewTemp(parent string) (*Dir, error) {
	host, err := os.MkdirTemp(parent, "r2tabs-mnt-")
	if err != nil {
		return nil, fmt.Errorf("failed to create mount directory: %w", err)
	}
	return &Dir{
		id:       uuid.NewString(),
		fs:       afero.NewBasePathFs(afero.NewOsFs(), host),
		hostPath: host,
	}, nil
}

// ID uniquely identifies this allocation.
func (d *Dir) ID() string {
	return d.id
}

// HostPath returns the directory on the host, or "" for memory-backed dirs.
func (d *Dir) HostPath() string {
	return d.hostPath
}

func (d *Dir) check(name string) (string, error) {
	d.mu.Lock()
	released := d.released
	d.mu.Unlock()
	if released {
		return "", ErrReleased
	}
	clean := path.Clean("/" + name)
	if clean == "/" || strings.Count(clean, "/") != 1 {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return clean, nil
}

// WriteFile stores data under name, replacing any previous content.
func (d *Dir) WriteFile(name string, data []byte) error {
	p, err := d.check(name)
	if err != nil {
		return err
	}
	return afero.WriteFile(d.fs, p, data, 0644)
}

// ReadFile returns the content stored under name.
func (d *Dir) ReadFile(name string) ([]byte, error) {
	p, err := d.check(name)
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(d.fs, p)
}

// Exists reports whether name is present.
func (d *Dir) Exists(name string) bool {
	p, err := d.check(name)
	if err != nil {
		return false
	}
	ok, err := afero.Exists(d.fs, p)
	return err == nil && ok
}

// Remove deletes name. Removing a missing file is not an error.
func (d *Dir) Remove(name string) error {
	p, err := d.check(name)
	if err != nil {
		return err
	}
	if err := d.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the stored names in lexical order.
func (d *Dir) List() ([]string, error) {
	if _, err := d.check("x"); err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(d.fs, "/")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Release discards the directory and its contents. Safe to call twice.
func (d *Dir) Release() {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return
	}
	d.released = true
	d.mu.Unlock()

	if d.hostPath != "" {
		if err := os.RemoveAll(d.hostPath); err != nil {
			log.WarningLog.Printf("failed to remove mount directory %s: %v", d.hostPath, err)
		}
		return
	}
	if err := d.fs.RemoveAll("/"); err != nil {
		log.WarningLog.Printf("failed to clear memory directory %s: %v", d.id, err)
	}
}

// Released reports whether Release was called.
func (d *Dir) Released() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}
