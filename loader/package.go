package loader

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// ErrInvalidPackage is returned when a payload is not a WebAssembly module.
var ErrInvalidPackage = errors.New("invalid package")

var wasmMagic = []byte{0x00, 'a', 's', 'm'}

// Source records where a package's bytes came from.
type Source int

const (
	SourceNetwork Source = iota
	SourceCache
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceNetwork:
		return "network"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Package is a loaded binary image. It is never mutated after Decode and is
// shared read-only by every instance created from it.
type Package struct {
	Version string
	Source  Source

	data   []byte
	digest [32]byte
}

// Decode validates data as a WebAssembly module and wraps it. The slice is
// retained; callers must not modify it afterwards.
func Decode(version string, data []byte, source Source) (*Package, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], wasmMagic) {
		return nil, fmt.Errorf("%w: version %s is not a wasm module", ErrInvalidPackage, version)
	}
	return &Package{
		Version: version,
		Source:  source,
		data:    data,
		digest:  blake3.Sum256(data),
	}, nil
}

// Size returns the image size in bytes.
func (p *Package) Size() int {
	return len(p.data)
}

// Digest returns the hex BLAKE3-256 digest of the image.
func (p *Package) Digest() string {
	return hex.EncodeToString(p.digest[:])
}

// Reader returns a fresh reader over the image.
func (p *Package) Reader() io.Reader {
	return bytes.NewReader(p.data)
}

// WriteTo writes the image to w.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.data)
	return int64(n), err
}
