package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Debug mode is enabled by setting R2TABS_DEBUG=1.
var (
	DebugEnabled bool
	DebugLog     *log.Logger
	debugLogFile *os.File
)

var debugLogFileName = filepath.Join(os.TempDir(), "r2tabs-debug.log")

// InitDebug initializes debug logging if R2TABS_DEBUG=1 is set.
func InitDebug() {
	if os.Getenv("R2TABS_DEBUG") != "1" {
		DebugLog = log.New(io.Discard, "", 0)
		return
	}

	DebugEnabled = true

	f, err := os.OpenFile(debugLogFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		ErrorLog.Printf("could not open debug log file: %s", err)
		DebugLog = log.New(io.Discard, "", 0)
		return
	}

	DebugLog = log.New(f, "DEBUG:", log.Ldate|log.Ltime|log.Lmicroseconds)
	debugLogFile = f

	DebugLog.Printf("Debug log: %s", debugLogFileName)
}

// CloseDebug closes the debug log file.
func CloseDebug() {
	if debugLogFile != nil {
		_ = debugLogFile.Close()
		debugLogFile = nil
		fmt.Println("wrote debug logs to " + debugLogFileName)
	}
}

// Debug logs a debug message if debug mode is enabled.
func Debug(format string, v ...interface{}) {
	if DebugEnabled && DebugLog != nil {
		DebugLog.Printf(format, v...)
	}
}

// StreamProfiler tracks how long it takes to render instance output chunks
// into terminal buffers, per stream.
type StreamProfiler struct {
	mu      sync.RWMutex
	streams map[string]*StreamMetrics
}

// StreamMetrics holds counters for a single stream.
type StreamMetrics struct {
	Name       string
	Chunks     int64
	Bytes      int64
	TotalTime  time.Duration
	MaxTime    time.Duration
	LastChunk  time.Time
	RenderErrs int64
}

var profiler = &StreamProfiler{
	streams: make(map[string]*StreamMetrics),
}

// GetProfiler returns the global stream profiler.
func GetProfiler() *StreamProfiler {
	return profiler
}

// StartChunk begins timing one chunk render. The returned function must be
// called with the number of bytes rendered and the render error, if any.
func (p *StreamProfiler) StartChunk(stream string) func(n int, err error) {
	if !DebugEnabled {
		return func(int, error) {}
	}

	start := time.Now()
	return func(n int, err error) {
		p.record(stream, n, time.Since(start), err)
	}
}

func (p *StreamProfiler) record(stream string, n int, elapsed time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.streams[stream]
	if !ok {
		m = &StreamMetrics{Name: stream}
		p.streams[stream] = m
	}
	m.Chunks++
	m.Bytes += int64(n)
	m.TotalTime += elapsed
	m.LastChunk = time.Now()
	if elapsed > m.MaxTime {
		m.MaxTime = elapsed
	}
	if err != nil {
		m.RenderErrs++
	}

	if elapsed > 16*time.Millisecond && DebugLog != nil {
		DebugLog.Printf("SLOW CHUNK on %s: %v (%d bytes)", stream, elapsed, n)
	}
}

// GetStats returns a summary of stream statistics, busiest stream first.
func (p *StreamProfiler) GetStats() string {
	if !DebugEnabled {
		return ""
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var sorted []*StreamMetrics
	for _, m := range p.streams {
		sorted = append(sorted, m)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TotalTime > sorted[j].TotalTime
	})

	var sb strings.Builder
	sb.WriteString("\n=== Stream Profile ===\n")
	for _, m := range sorted {
		avg := time.Duration(0)
		if m.Chunks > 0 {
			avg = m.TotalTime / time.Duration(m.Chunks)
		}
		sb.WriteString(fmt.Sprintf("  %s: chunks=%d bytes=%d avg=%v max=%v errors=%d\n",
			m.Name, m.Chunks, m.Bytes, avg, m.MaxTime, m.RenderErrs))
	}
	return sb.String()
}

// LogStats logs the current stream statistics.
func (p *StreamProfiler) LogStats() {
	if DebugEnabled && DebugLog != nil {
		DebugLog.Print(p.GetStats())
	}
}

// Reset clears all profiling data.
func (p *StreamProfiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streams = make(map[string]*StreamMetrics)
}

// ComponentTrace logs lifecycle events of one component, such as a session.
type ComponentTrace struct {
	component string
	startTime time.Time
}

// TraceComponent creates a new component trace. Returns nil when debug is off;
// methods on a nil trace are no-ops.
func TraceComponent(component string) *ComponentTrace {
	if !DebugEnabled {
		return nil
	}
	return &ComponentTrace{
		component: component,
		startTime: time.Now(),
	}
}

// Event logs a component event.
func (t *ComponentTrace) Event(event string, details ...interface{}) {
	if t == nil || !DebugEnabled || DebugLog == nil {
		return
	}

	elapsed := time.Since(t.startTime)
	if len(details) > 0 {
		DebugLog.Printf("[%s] %s (+%v): %v", t.component, event, elapsed, details)
	} else {
		DebugLog.Printf("[%s] %s (+%v)", t.component, event, elapsed)
	}
}

// InputTrace logs input routing events.
func InputTrace(format string, v ...interface{}) {
	if DebugEnabled && DebugLog != nil {
		DebugLog.Printf("[INPUT] "+format, v...)
	}
}

// ScrapeTrace logs side-channel scrape events.
func ScrapeTrace(format string, v ...interface{}) {
	if DebugEnabled && DebugLog != nil {
		DebugLog.Printf("[SCRAPE] "+format, v...)
	}
}
