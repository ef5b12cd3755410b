// Package cache is a durable store of downloaded binaries keyed by version.
//
// Each entry is one file in a single namespace directory. The file name is
// the version escaped as a URL path segment, so keys can be recovered when
// enumerating and any version string is a valid key. Values are the raw
// payload bytes with no framing. There is no eviction: entries live until
// they are deleted.
package cache

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"r2tabs/log"
)

const tmpPrefix = ".tmp-"

// BinaryCache is a content store keyed by version string.
type BinaryCache struct {
	fs afero.Fs
}

// New returns a cache rooted at dir on the local filesystem. The directory
// is created if it does not exist.
func New(dir string) (*BinaryCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return NewWithFs(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// NewWithFs returns a cache on top of an arbitrary filesystem. Tests use an
// in-memory one.
func NewWithFs(fs afero.Fs) *BinaryCache {
	return &BinaryCache{fs: fs}
}

func fileName(key string) string {
	name := url.PathEscape(key)
	// Dot segments would address the namespace directory itself.
	if name == "." || name == ".." {
		name = strings.Repeat("%2E", len(name))
	}
	return "/" + name
}

// Get returns the payload stored under key. A missing key is reported with
// ok == false and a nil error.
func (c *BinaryCache) Get(key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	data, err := afero.ReadFile(c.fs, fileName(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}
	return data, true, nil
}

// Has reports whether key is present without reading the payload.
func (c *BinaryCache) Has(key string) bool {
	if key == "" {
		return false
	}
	info, err := c.fs.Stat(fileName(key))
	return err == nil && !info.IsDir()
}

// Size returns the payload size of key, or -1 if absent.
func (c *BinaryCache) Size(key string) int64 {
	if !c.Has(key) {
		return -1
	}
	info, err := c.fs.Stat(fileName(key))
	if err != nil {
		return -1
	}
	return info.Size()
}

// Put stores payload under key, replacing any existing value. The payload
// is written to a temporary file first and renamed into place, so a reader
// never observes a partially written entry. Concurrent puts of the same key
// are last-write-wins.
func (c *BinaryCache) Put(key string, payload []byte) error {
	if key == "" {
		return fmt.Errorf("cache key cannot be empty")
	}
	tmp := "/" + tmpPrefix + uuid.NewString()
	if err := afero.WriteFile(c.fs, tmp, payload, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry %q: %w", key, err)
	}
	if err := c.fs.Rename(tmp, fileName(key)); err != nil {
		_ = c.fs.Remove(tmp)
		return fmt.Errorf("failed to commit cache entry %q: %w", key, err)
	}
	log.InfoLog.Printf("cached %d bytes for version %s", len(payload), key)
	return nil
}

// Keys lists every stored key. The order is unspecified.
func (c *BinaryCache) Keys() ([]string, error) {
	infos, err := afero.ReadDir(c.fs, "/")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}

	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		name := filepath.Base(info.Name())
		if info.IsDir() || strings.HasPrefix(name, tmpPrefix) {
			continue
		}
		key, err := url.PathUnescape(name)
		if err != nil {
			log.WarningLog.Printf("skipping unrecognized cache file %q: %v", name, err)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *BinaryCache) Delete(key string) error {
	if err := c.fs.Remove(fileName(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cache entry %q: %w", key, err)
	}
	return nil
}

// Clear removes every entry.
func (c *BinaryCache) Clear() error {
	keys, err := c.Keys()
	if err != nil {
		return err
	}
	var errs []error
	for _, key := range keys {
		if err := c.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
