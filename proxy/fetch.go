// Package proxy fetches versioned release archives and streams out the single
// binary embedded in them. It backs the `r2tabs serve` HTTP endpoint and can
// also be used in-process.
package proxy

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"r2tabs/log"
)

var (
	// ErrFetchFailed means the upstream archive could not be downloaded.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrExtractionFailed means the archive was downloaded but holds no
	// usable binary entry, or is corrupt.
	ErrExtractionFailed = errors.New("extraction failed")
)

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	// URLTemplate is the archive location; every {version} is replaced.
	URLTemplate string
	// EntrySuffix selects the first archive entry whose name ends with it.
	EntrySuffix string
	// Client defaults to http.DefaultClient.
	Client *http.Client
	// TempDir is where zip archives are spooled. Defaults to os.TempDir().
	TempDir string
}

// Fetcher downloads release archives and extracts the embedded binary.
type Fetcher struct {
	urlTemplate string
	suffix      string
	client      *http.Client
	tempDir     string
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		urlTemplate: cfg.URLTemplate,
		suffix:      cfg.EntrySuffix,
		client:      client,
		tempDir:     cfg.TempDir,
	}
}

// ArchiveURL returns the upstream archive location for version. The version
// is not validated; a malformed one surfaces as an upstream error.
func (f *Fetcher) ArchiveURL(version string) string {
	return strings.ReplaceAll(f.urlTemplate, "{version}", url.PathEscape(version))
}

// Payload is the extracted binary, readable as a stream. Size is -1 when the
// archive format does not announce it up front.
type Payload struct {
	io.Reader
	Size  int64
	Entry string

	closers []func() error
}

// Close releases the connection and any spooled data.
func (p *Payload) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fetch streams the binary for version into w and returns the number of
// bytes written.
func (f *Fetcher) Fetch(ctx context.Context, version string, w io.Writer) (int64, error) {
	payload, err := f.Open(ctx, version)
	if err != nil {
		return 0, err
	}
	defer payload.Close()

	tw := &trackingWriter{w: w}
	n, err := io.Copy(tw, payload)
	if err != nil {
		if tw.err != nil {
			return n, tw.err
		}
		return n, err
	}
	return n, nil
}

// Open starts the download and positions a reader at the start of the
// binary entry. Read errors later in the stream are reported as
// ErrExtractionFailed.
func (f *Fetcher) Open(ctx context.Context, version string) (*Payload, error) {
	archiveURL := f.ArchiveURL(version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetchFailed, archiveURL, resp.Status)
	}
	log.InfoLog.Printf("fetching archive %s", archiveURL)

	br := bufio.NewReaderSize(resp.Body, 64*1024)
	magic, _ := br.Peek(4)

	var payload *Payload
	switch {
	case bytes.HasPrefix(magic, zipMagic):
		payload, err = f.openZip(br)
	case bytes.HasPrefix(magic, gzipMagic):
		payload, err = f.openGzipTar(br)
	case bytes.HasPrefix(magic, zstdMagic):
		payload, err = f.openZstdTar(br)
	default:
		err = fmt.Errorf("%w: unrecognized archive format from %s", ErrExtractionFailed, archiveURL)
	}
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	payload.Reader = &extractionReader{r: payload.Reader}
	payload.closers = append([]func() error{resp.Body.Close}, payload.closers...)
	return payload, nil
}

// openZip spools the archive to disk. Zip keeps its directory at the end of
// the file, so the entry table is only trustworthy once the whole archive is
// present, but it never needs to be held in memory.
func (f *Fetcher) openZip(body io.Reader) (*Payload, error) {
	spool, err := os.CreateTemp(f.tempDir, "r2tabs-archive-*.zip")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool file: %w", err)
	}
	cleanup := func() error {
		closeErr := spool.Close()
		if err := os.Remove(spool.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return closeErr
	}

	size, err := io.Copy(spool, body)
	if err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("%w: reading archive: %v", ErrFetchFailed, err)
	}

	zr, err := zip.NewReader(spool, size)
	if err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() || !strings.HasSuffix(entry.Name, f.suffix) {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			_ = cleanup()
			return nil, fmt.Errorf("%w: opening %s: %v", ErrExtractionFailed, entry.Name, err)
		}
		return &Payload{
			Reader:  rc,
			Size:    int64(entry.UncompressedSize64),
			Entry:   entry.Name,
			closers: []func() error{cleanup, rc.Close},
		}, nil
	}

	_ = cleanup()
	return nil, fmt.Errorf("%w: no entry matching *%s", ErrExtractionFailed, f.suffix)
}

func (f *Fetcher) openGzipTar(body io.Reader) (*Payload, error) {
	gz, err := gzip.NewReader(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	payload, err := f.scanTar(gz)
	if err != nil {
		gz.Close()
		return nil, err
	}
	payload.closers = append(payload.closers, gz.Close)
	return payload, nil
}

func (f *Fetcher) openZstdTar(body io.Reader) (*Payload, error) {
	dec, err := zstd.NewReader(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	payload, err := f.scanTar(dec)
	if err != nil {
		dec.Close()
		return nil, err
	}
	payload.closers = append(payload.closers, func() error {
		dec.Close()
		return nil
	})
	return payload, nil
}

// scanTar walks entries one at a time and stops at the first match, so the
// rest of the archive is never decompressed.
func (f *Fetcher) scanTar(r io.Reader) (*Payload, error) {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: no entry matching *%s", ErrExtractionFailed, f.suffix)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		if header.Typeflag != tar.TypeReg || !strings.HasSuffix(header.Name, f.suffix) {
			continue
		}
		return &Payload{
			Reader: tr,
			Size:   header.Size,
			Entry:  header.Name,
		}, nil
	}
}

// extractionReader tags mid-stream failures as extraction errors.
type extractionReader struct {
	r io.Reader
}

func (e *extractionReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return n, err
}

// trackingWriter remembers write failures so they are not mistaken for
// archive errors.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
