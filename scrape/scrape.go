// Package scrape reads structured command output from a running instance by
// redirecting it into the instance's mounted directory and reading the file
// back once it appears.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"r2tabs/config"
	"r2tabs/log"
	"r2tabs/session/vfs"
)

var (
	ErrScrapeTimeout = errors.New("scrape output did not appear in time")
	ErrParse         = errors.New("failed to parse scrape output")
	ErrCanceled      = errors.New("scrape canceled")
)

var preamble = []string{"clear", "?e loading..."}

const (
	pollInitialDelay = 25 * time.Millisecond
	pollMaxDelay     = 250 * time.Millisecond
)

// Target is an instance that output can be scraped from.
type Target interface {
	// SendLine writes one command line to the instance.
	SendLine(line string) error
	// MountedDir returns the directory the instance sees as its root.
	MountedDir() (*vfs.Dir, error)
	// BeginCancelable registers the scrape so an interrupt can end it.
	BeginCancelable(parent context.Context) (context.Context, func())
}

// Protocol issues scrape commands. The instance gives no completion signal,
// so the output file is read after Delay and then polled until Timeout.
type Protocol struct {
	Delay   time.Duration
	Timeout time.Duration
}

// New creates a Protocol.
func New(delay, timeout time.Duration) *Protocol {
	if timeout < delay {
		timeout = delay
	}
	return &Protocol{Delay: delay, Timeout: timeout}
}

// NewFromConfig creates a Protocol from the application config.
func NewFromConfig(cfg *config.Config) *Protocol {
	return New(cfg.ScrapeDelay(), cfg.ScrapeTimeout())
}

// Scrape sends commands with their output redirected to outputFile and
// returns the file's contents. The file is removed before the commands are
// sent and after it has been read, so a failed scrape can be retried.
func (p *Protocol) Scrape(ctx context.Context, target Target, commands []string, outputFile string) ([]byte, error) {
	dir, err := target.MountedDir()
	if err != nil {
		return nil, err
	}
	if err := dir.Remove(outputFile); err != nil {
		return nil, fmt.Errorf("failed to clear %s: %w", outputFile, err)
	}

	ctx, end := target.BeginCancelable(ctx)
	defer end()

	start := time.Now()
	for _, line := range preamble {
		if err := target.SendLine(line); err != nil {
			return nil, err
		}
	}
	for _, command := range commands {
		line := command + " > " + outputFile
		log.ScrapeTrace("send %q", line)
		if err := target.SendLine(line); err != nil {
			return nil, err
		}
	}

	data, err := p.await(ctx, dir, outputFile, start)
	if err != nil {
		// Anything written after we gave up is removed by the next scrape.
		_ = dir.Remove(outputFile)
		log.WarningLog.Printf("scrape of %s failed after %s: %v", outputFile, time.Since(start).Round(time.Millisecond), err)
		return nil, err
	}
	if err := dir.Remove(outputFile); err != nil {
		log.WarningLog.Printf("failed to remove %s: %v", outputFile, err)
	}
	log.ScrapeTrace("read %d bytes from %s in %s", len(data), outputFile, time.Since(start))
	return data, nil
}

// await waits Delay, then polls for outputFile with backoff. A file is only
// returned once two consecutive reads agree, so output still being written
// is not cut short.
func (p *Protocol) await(ctx context.Context, dir *vfs.Dir, name string, start time.Time) ([]byte, error) {
	deadline := start.Add(p.Timeout)
	if err := sleep(ctx, p.Delay); err != nil {
		return nil, err
	}

	var last []byte
	seen := false
	wait := pollInitialDelay
	for {
		if dir.Exists(name) {
			data, err := dir.ReadFile(name)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", name, err)
			}
			if seen && len(data) == len(last) {
				return data, nil
			}
			last, seen = data, true
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			if seen {
				return last, nil
			}
			return nil, fmt.Errorf("%w: %s after %s", ErrScrapeTimeout, name, p.Timeout)
		}
		if wait > remaining {
			wait = remaining
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
		wait *= 2
		if wait > pollMaxDelay {
			wait = pollMaxDelay
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return checkCanceled(ctx)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return checkCanceled(ctx)
	case <-t.C:
		return nil
	}
}

func checkCanceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCanceled, err)
	}
	return nil
}

// Run scrapes commands into outputFile and parses the result.
func Run[T any](ctx context.Context, p *Protocol, target Target, commands []string, outputFile string, parse func([]byte) (T, error)) (T, error) {
	var zero T
	data, err := p.Scrape(ctx, target, commands, outputFile)
	if err != nil {
		return zero, err
	}
	v, err := parse(data)
	if err != nil {
		log.WarningLog.Printf("failed to parse %s: %v", outputFile, err)
		return zero, err
	}
	return v, nil
}

// Strings lists the strings found in the whole binary.
func (p *Protocol) Strings(ctx context.Context, target Target) ([]StringRecord, error) {
	return Run(ctx, p, target, []string{"izzq"}, "strings.txt", ParseStrings)
}

// Hexdump dumps length bytes starting at addr, 256 when length is not
// positive.
func (p *Protocol) Hexdump(ctx context.Context, target Target, addr string, length int) ([]HexLine, error) {
	if length <= 0 {
		length = 256
	}
	return Run(ctx, p, target, []string{at(fmt.Sprintf("px %d", length), addr)}, "hexdump.txt", ParseHexdump)
}

// Graph returns the control-flow graph of the function at addr in
// graphviz dot format.
func (p *Protocol) Graph(ctx context.Context, target Target, addr string) (string, error) {
	return Run(ctx, p, target, []string{at("agfd", addr)}, "graph.dot", ParseGraph)
}

// at applies a temporary seek. An empty addr keeps the current one.
func at(command, addr string) string {
	if addr == "" {
		return command
	}
	return command + " @ " + addr
}
