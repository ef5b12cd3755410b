package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	require.Equal(t, "unstarted", StateUnstarted.String())
	require.Equal(t, "restarting", StateRestarting.String())
	require.Equal(t, "State(42)", State(42).String())
}

func TestStartupArgs(t *testing.T) {
	require.Equal(t,
		[]string{"-e", "io.cache=true", "-e", "anal.depth=24", "a.out"},
		StartupArgs(24, "a.out"))
}

func TestCreate(t *testing.T) {
	ti := newTestInstance().start()

	require.Equal(t, StateRunning, ti.State())
	require.Equal(t, 1, ti.rt.launches())

	_, spec := ti.rt.last()
	require.Equal(t, []string{"-e", "io.cache=true", "-e", "anal.depth=24", "a.out"}, spec.Args)
	require.Equal(t, "6.0.9", spec.Package.Version)

	data, err := spec.Dir.ReadFile("a.out")
	require.NoError(t, err)
	require.Equal(t, []byte("\x7fELF"), data)

	dir, err := ti.MountedDir()
	require.NoError(t, err)
	require.Same(t, spec.Dir, dir)
}

func TestCreateWithoutFile(t *testing.T) {
	for _, file := range []*File{nil, {Name: ""}} {
		ti := newTestInstance()
		err := ti.Create(context.Background(), testPackage("6.0.9"), file)
		require.ErrorIs(t, err, ErrNoFileProvided)
		require.Equal(t, StateUnstarted, ti.State())
		require.Zero(t, ti.dirs.n.Load(), "no directory may be allocated")
		require.Zero(t, ti.rt.launches())
		require.Len(t, ti.term.Errors(), 1)
		require.Nil(t, ti.Dir())
	}
}

func TestCreateWithoutPackage(t *testing.T) {
	ti := newTestInstance()
	err := ti.Create(context.Background(), nil, &File{Name: "a.out"})
	require.ErrorIs(t, err, ErrNoPackage)
	require.Equal(t, StateUnstarted, ti.State())
	require.Zero(t, ti.dirs.n.Load())
}

func TestCreateTwice(t *testing.T) {
	ti := newTestInstance().start()
	err := ti.Create(context.Background(), testPackage("6.0.9"), &File{Name: "b.out"})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, StateRunning, ti.State())
	require.Equal(t, 1, ti.rt.launches())
}

func TestCreateLaunchFailure(t *testing.T) {
	ti := newTestInstance()
	ti.rt.setFail(true)

	err := ti.Create(context.Background(), testPackage("6.0.9"), &File{Name: "a.out"})
	require.Error(t, err)
	require.Equal(t, StateUnstarted, ti.State())
	require.Nil(t, ti.Dir())
	require.Len(t, ti.dirs.dirs, 1)
	require.True(t, ti.dirs.dirs[0].Released())
	require.Contains(t, ti.term.Errors()[0], "Failed to start")

	// The instance can still be created once the runtime recovers.
	ti.rt.setFail(false)
	require.NoError(t, ti.Create(context.Background(), testPackage("6.0.9"), &File{Name: "a.out"}))
	require.Equal(t, StateRunning, ti.State())
}

func TestRestart(t *testing.T) {
	ti := newTestInstance().start()
	oldHandle, oldSpec := ti.rt.last()
	oldDir := oldSpec.Dir

	require.NoError(t, ti.Restart(context.Background()))
	require.Equal(t, StateRunning, ti.State())
	require.Equal(t, 2, ti.rt.launches())

	newHandle, newSpec := ti.rt.last()
	require.NotEqual(t, oldDir.ID(), newSpec.Dir.ID())
	require.True(t, oldDir.Released())
	require.False(t, newSpec.Dir.Released())
	require.True(t, oldHandle.closed.Load())
	require.True(t, oldHandle.stdin.Closed())
	require.False(t, newHandle.closed.Load())
	require.Equal(t, 1, ti.term.clears)

	require.True(t, newSpec.Dir.Exists("a.out"))
}

func TestRestartRequiresRunning(t *testing.T) {
	ti := newTestInstance()
	require.ErrorIs(t, ti.Restart(context.Background()), ErrInvalidTransition)

	ti.start()
	ti.Dispose()
	require.ErrorIs(t, ti.Restart(context.Background()), ErrInvalidTransition)
}

func TestRestartFailureStaysRestarting(t *testing.T) {
	ti := newTestInstance().start()
	ti.rt.setFail(true)

	require.Error(t, ti.Restart(context.Background()))
	require.Equal(t, StateRestarting, ti.State())
	require.Nil(t, ti.Dir())
	require.ErrorIs(t, ti.Restart(context.Background()), ErrInvalidTransition)
	require.ErrorIs(t, ti.HandleKey(context.Background(), Text("x")), ErrNotRunning)

	ti.Dispose()
	require.Equal(t, StateDisposed, ti.State())
}

func TestDispose(t *testing.T) {
	ti := newTestInstance().start()
	handle, spec := ti.rt.last()

	ti.Dispose()
	ti.Dispose()

	require.Equal(t, StateDisposed, ti.State())
	require.True(t, handle.closed.Load())
	require.True(t, handle.stdin.Closed())
	require.True(t, spec.Dir.Released())
	require.True(t, ti.term.closed)

	_, err := ti.MountedDir()
	require.ErrorIs(t, err, ErrNotRunning)
	require.ErrorIs(t, ti.SendLine("pd"), ErrNotRunning)
	// Dispose is final; a disposed instance is never recreated.
	err = ti.Create(context.Background(), testPackage("6.0.9"), &File{Name: "a.out", Data: []byte("\x7fELF")})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, StateDisposed, ti.State())
}

func TestDisposeUnstarted(t *testing.T) {
	ti := newTestInstance()
	ti.Dispose()
	require.Equal(t, StateDisposed, ti.State())
	require.Zero(t, ti.dirs.n.Load())
}

func TestDisposeSwallowsCloseErrors(t *testing.T) {
	ti := newTestInstance()
	ti.rt.closeErr = errors.New("already gone")
	ti.start()

	ti.Dispose()
	require.Equal(t, StateDisposed, ti.State())
}

func TestDisposeCancelsPendingOperation(t *testing.T) {
	ti := newTestInstance().start()
	ctx, end := ti.BeginCancelable(context.Background())
	defer end()

	ti.Dispose()
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestOutputRendersToTerminal(t *testing.T) {
	ti := newTestInstance().start()
	h, _ := ti.rt.last()

	_, err := h.stdoutW.Write([]byte("[0x00000000]> "))
	require.NoError(t, err)
	_, err = h.stderrW.Write([]byte("WARN: no debug info"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		out := ti.term.Output()
		return strings.Contains(out, "[0x00000000]> ") && strings.Contains(out, "WARN: no debug info")
	}, time.Second, 5*time.Millisecond)
}

func TestStaleOutputDropped(t *testing.T) {
	ti := newTestInstance()
	ti.rt.keepOpen = true
	ti.start()
	old, _ := ti.rt.last()

	require.NoError(t, ti.Restart(context.Background()))
	ti.term.resetOutput()

	_, err := old.stdoutW.Write([]byte("stale"))
	require.NoError(t, err)

	current, _ := ti.rt.last()
	_, err = current.stdoutW.Write([]byte("fresh"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(ti.term.Output(), "fresh")
	}, time.Second, 5*time.Millisecond)
	require.NotContains(t, ti.term.Output(), "stale")
}

func TestRenderErrorKeepsRunning(t *testing.T) {
	ti := newTestInstance().start()
	h, _ := ti.rt.last()

	ti.term.mu.Lock()
	ti.term.failWrite = true
	ti.term.mu.Unlock()

	_, err := h.stdoutW.Write([]byte("boom"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, msg := range ti.term.Errors() {
			if strings.Contains(msg, "render error") {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, StateRunning, ti.State())
}

func TestInstanceExitIsReported(t *testing.T) {
	ti := newTestInstance().start()
	h, _ := ti.rt.last()

	require.NoError(t, h.stdoutW.Close())

	require.Eventually(t, func() bool {
		for _, msg := range ti.term.Errors() {
			if strings.Contains(msg, "Ctrl+R") {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestSendLine(t *testing.T) {
	ti := newTestInstance().start()
	h, _ := ti.rt.last()

	require.NoError(t, ti.SendLine("izzq > out.txt"))
	require.Equal(t, "izzq > out.txt\r", h.stdin.String())
	require.Empty(t, ti.History())
}

func TestParallelRestart(t *testing.T) {
	running := newTestInstance().start()
	idle := newTestInstance()

	results := ParallelRestart(context.Background(), []*Instance{running.Instance, idle.Instance, nil})
	require.Len(t, results, 3)
	for _, res := range results {
		require.NoError(t, res.Error)
	}
	require.Equal(t, 2, running.rt.launches())
	require.Equal(t, StateUnstarted, idle.State())
}

func TestParallelDispose(t *testing.T) {
	a := newTestInstance().start()
	b := newTestInstance()

	ParallelDispose([]*Instance{a.Instance, nil, b.Instance})
	require.Equal(t, StateDisposed, a.State())
	require.Equal(t, StateDisposed, b.State())
}

func TestResize(t *testing.T) {
	ti := newTestInstance()
	require.NoError(t, ti.Resize(40, 120), "an unstarted instance has nothing to resize")

	ti.start()
	require.NoError(t, ti.Resize(40, 120))
	h, _ := ti.rt.last()
	require.Equal(t, [][2]int{{40, 120}}, h.resizes())
}
