// Package loader resolves a version string to a Package, from the binary
// cache when possible and from the network otherwise.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"r2tabs/config"
	"r2tabs/log"
)

// ErrLoadFailed wraps every network or upstream failure during resolve.
var ErrLoadFailed = errors.New("load failed")

const chunkSize = 32 * 1024

// Cache is the subset of the binary cache used by the loader.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, payload []byte) error
}

// Request selects a version and how to obtain it.
type Request struct {
	Version string
	// UseProxy selects the hosted proxy endpoint over the local one.
	UseProxy bool
	// WantCache stores a downloaded payload for later runs.
	WantCache bool
}

func (r Request) key() string {
	mode := "local"
	if r.UseProxy {
		mode = "hosted"
	}
	return r.Version + "|" + mode
}

// Options configures a Loader.
type Options struct {
	// Cache may be nil, in which case every resolve hits the network.
	Cache  Cache
	Client *http.Client

	DefaultVersion    string
	DefaultVersionURL string
	LocalProxyURL     string
	HostedProxyURL    string
}

// Loader resolves packages. Concurrent resolves of the same version and
// mode share one download.
type Loader struct {
	opts   Options
	client *http.Client
	group  singleflight.Group

	mu sync.Mutex
	// flights holds the context of each shared download, canceled once
	// every caller waiting on it has given up.
	flights map[string]*flight

	// pending tracks background cache writes.
	pending sync.WaitGroup
}

// New creates a Loader.
func New(opts Options) *Loader {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{opts: opts, client: client, flights: make(map[string]*flight)}
}

type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// join registers a caller on the download for key. The download's context
// keeps the values of the first caller's ctx but none of its cancellation.
func (l *Loader) join(ctx context.Context, key string) *flight {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		l.flights[key] = f
	}
	f.waiters++
	return f
}

// leave unregisters a caller. The last one out cancels the download and
// makes the next resolve of key start afresh.
func (l *Loader) leave(key string, f *flight) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if l.flights[key] == f {
		delete(l.flights, key)
		l.group.Forget(key)
	}
}

// NewFromConfig creates a Loader using the URLs from cfg.
func NewFromConfig(cfg *config.Config, cache Cache) *Loader {
	return New(Options{
		Cache:             cache,
		DefaultVersion:    cfg.DefaultVersion,
		DefaultVersionURL: cfg.DefaultVersionURL,
		LocalProxyURL:     cfg.LocalProxyURL,
		HostedProxyURL:    cfg.HostedProxyURL,
	})
}

// SourceURL returns where a cache miss for req is downloaded from.
func (l *Loader) SourceURL(req Request) string {
	if req.Version == l.opts.DefaultVersion && l.opts.DefaultVersionURL != "" {
		return l.opts.DefaultVersionURL
	}
	base := l.opts.LocalProxyURL
	if req.UseProxy {
		base = l.opts.HostedProxyURL
	}
	return strings.TrimRight(base, "/") + "/wasm/" + url.PathEscape(req.Version)
}

// Resolve returns the package for req. A cache hit returns immediately
// without reporting progress. Otherwise the payload is downloaded with
// progress reported to onProgress, which may be nil. When another resolve
// of the same version and mode is already downloading, this call waits for
// it and receives no progress reports of its own. Canceling ctx only gives
// up this call; the download goes on while any other caller waits for it.
func (l *Loader) Resolve(ctx context.Context, req Request, onProgress ProgressFunc) (*Package, error) {
	if pkg := l.fromCache(req.Version); pkg != nil {
		return pkg, nil
	}

	key := req.key()
	f := l.join(ctx, key)
	defer l.leave(key, f)

	relay := &progressRelay{fn: onProgress}
	defer relay.detach()

	ch := l.group.DoChan(key, func() (interface{}, error) {
		return l.download(f.ctx, req, relay.report)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.InfoLog.Printf("joined in-flight download of %s", req.Version)
		}
		return res.Val.(*Package), nil
	}
}

func (l *Loader) fromCache(version string) *Package {
	if l.opts.Cache == nil {
		return nil
	}
	data, ok, err := l.opts.Cache.Get(version)
	if err != nil {
		log.WarningLog.Printf("cache lookup for %s failed: %v", version, err)
		return nil
	}
	if !ok {
		return nil
	}
	pkg, err := Decode(version, data, SourceCache)
	if err != nil {
		log.WarningLog.Printf("ignoring cached payload for %s: %v", version, err)
		return nil
	}
	return pkg
}

func (l *Loader) download(ctx context.Context, req Request, onProgress ProgressFunc) (*Package, error) {
	progress := &progressReporter{fn: onProgress}
	progress.report(PhaseInitializing, 0, 0, -1)

	src := l.SourceURL(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	resp, err := l.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrLoadFailed, src, resp.Status)
	}

	total := resp.ContentLength
	progress.report(PhaseDownloading, 10, 0, total)

	var buf bytes.Buffer
	if total > 0 {
		buf.Grow(int(total))
	}
	chunk := make([]byte, chunkSize)
	var loaded int64
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			loaded += int64(n)
			if total > 0 {
				progress.report(PhaseDownloading, downloadPercent(loaded, total), loaded, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrLoadFailed, src, readErr)
		}
	}

	progress.report(PhaseProcessing, 80, loaded, total)
	data := buf.Bytes()
	pkg, err := Decode(req.Version, data, SourceNetwork)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	progress.report(PhaseProcessing, 95, loaded, total)

	if req.WantCache && l.opts.Cache != nil {
		l.storeAsync(req.Version, data)
	}

	progress.report(PhaseComplete, 100, loaded, total)
	log.InfoLog.Printf("loaded %s from %s (%d bytes, blake3 %s)", req.Version, src, pkg.Size(), pkg.Digest()[:16])
	return pkg, nil
}

// storeAsync writes the payload to the cache in the background. A failure
// is logged and never reaches the caller of Resolve.
func (l *Loader) storeAsync(version string, data []byte) {
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		if err := l.opts.Cache.Put(version, data); err != nil {
			log.WarningLog.Printf("failed to cache %s: %v", version, err)
		}
	}()
}

// Wait blocks until background cache writes have finished.
func (l *Loader) Wait() {
	l.pending.Wait()
}
