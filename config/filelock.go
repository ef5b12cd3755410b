package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const lockFileName = "state.lock"

// ErrLockHeld is returned when a FileLock is taken twice.
var ErrLockHeld = errors.New("lock already held")

// FileLock serializes access to state.json across r2tabs processes. Each
// terminal window runs its own process, and they all save tabs to the same
// file.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock returns a lock living next to path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: filepath.Join(filepath.Dir(path), lockFileName)}
}

// Lock blocks until an exclusive lock is held.
func (l *FileLock) Lock() error {
	return l.acquire(os.O_CREATE|os.O_RDWR, true)
}

// RLock blocks until a shared lock is held. Readers do not block each other.
func (l *FileLock) RLock() error {
	return l.acquire(os.O_CREATE|os.O_RDONLY, false)
}

func (l *FileLock) acquire(flag int, exclusive bool) error {
	if l.file != nil {
		return ErrLockHeld
	}
	f, err := os.OpenFile(l.path, flag, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := lockFile(f, exclusive); err != nil {
		f.Close()
		mode := "shared"
		if exclusive {
			mode = "exclusive"
		}
		return fmt.Errorf("failed to acquire %s lock on %s: %w", mode, l.path, err)
	}
	l.file = f
	return nil
}

// Unlock releases the lock. Unlocking a lock that is not held is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	if err := unlockFile(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close lock file: %w", err)
	}
	return nil
}
