package log

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestDebugDisabledByDefault(t *testing.T) {
	DebugEnabled = false
	DebugLog = nil

	os.Unsetenv("R2TABS_DEBUG")
	InitDebug()

	if DebugEnabled {
		t.Error("Debug should be disabled by default")
	}
	if DebugLog == nil {
		t.Error("DebugLog should be a no-op logger, not nil")
	}
}

func TestDebugEnabledWithEnvVar(t *testing.T) {
	DebugEnabled = false
	DebugLog = nil

	os.Setenv("R2TABS_DEBUG", "1")
	defer os.Unsetenv("R2TABS_DEBUG")

	InitDebug()
	defer func() {
		CloseDebug()
		DebugEnabled = false
	}()

	if !DebugEnabled {
		t.Error("Debug should be enabled with R2TABS_DEBUG=1")
	}
	if DebugLog == nil {
		t.Error("DebugLog should be initialized")
	}
}

func TestDebugFunction(t *testing.T) {
	DebugEnabled = false
	DebugLog = nil
	Debug("test message %s", "arg")

	DebugEnabled = true
	DebugLog = nil
	Debug("test message %s", "arg")
	DebugEnabled = false
}

func TestStreamProfiler(t *testing.T) {
	defer func() { DebugEnabled = false }()

	t.Run("StartChunk is a noop when disabled", func(t *testing.T) {
		DebugEnabled = false
		profiler.Reset()
		done := profiler.StartChunk("session-1/stdout")
		done(10, nil)

		if len(profiler.streams) != 0 {
			t.Error("Should not record when disabled")
		}
	})

	t.Run("chunks accumulate per stream", func(t *testing.T) {
		DebugEnabled = true
		profiler.Reset()

		for i := 0; i < 3; i++ {
			done := profiler.StartChunk("session-1/stdout")
			time.Sleep(time.Millisecond)
			done(4, nil)
		}
		done := profiler.StartChunk("session-1/stdout")
		done(2, errors.New("boom"))

		m := profiler.streams["session-1/stdout"]
		if m == nil {
			t.Fatal("Expected metrics for session-1/stdout")
		}
		if m.Chunks != 4 {
			t.Errorf("Expected 4 chunks, got %d", m.Chunks)
		}
		if m.Bytes != 14 {
			t.Errorf("Expected 14 bytes, got %d", m.Bytes)
		}
		if m.RenderErrs != 1 {
			t.Errorf("Expected 1 render error, got %d", m.RenderErrs)
		}
		if m.TotalTime < 3*time.Millisecond {
			t.Errorf("Expected total time >= 3ms, got %v", m.TotalTime)
		}
	})

	t.Run("stats mention every stream", func(t *testing.T) {
		DebugEnabled = true
		profiler.Reset()
		profiler.StartChunk("a")(1, nil)
		profiler.StartChunk("b")(1, nil)

		stats := profiler.GetStats()
		if !strings.Contains(stats, "Stream Profile") {
			t.Error("Expected 'Stream Profile' in stats")
		}
		if !strings.Contains(stats, "a:") || !strings.Contains(stats, "b:") {
			t.Errorf("Expected both streams in stats, got %q", stats)
		}
	})
}

func TestComponentTrace(t *testing.T) {
	DebugEnabled = false
	trace := TraceComponent("test")
	if trace != nil {
		t.Error("Expected nil trace when disabled")
	}
	trace.Event("nil trace must not panic")

	DebugEnabled = true
	defer func() { DebugEnabled = false }()
	trace = TraceComponent("test")
	if trace == nil {
		t.Error("Expected non-nil trace when enabled")
	}

	DebugLog = nil
	trace.Event("test event")
	trace.Event("test event with details", "detail1", "detail2")
}

func TestTraceHelpers(t *testing.T) {
	DebugEnabled = false
	DebugLog = nil
	InputTrace("test %s", "arg")
	ScrapeTrace("test %s", "arg")

	DebugEnabled = true
	defer func() { DebugEnabled = false }()
	InputTrace("test %s", "arg")
	ScrapeTrace("test %s", "arg")
}

func TestEvery(t *testing.T) {
	e := NewEvery(time.Hour)
	if !e.ShouldLog() {
		t.Error("first call should log")
	}
	if e.ShouldLog() {
		t.Error("second call inside the window should not log")
	}
}
