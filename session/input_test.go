package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func typeLine(t *testing.T, ti *testInstance, s string) {
	t.Helper()
	require.NoError(t, ti.HandleKey(context.Background(), Text(s)))
	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeySubmit}))
}

func TestKeyKindString(t *testing.T) {
	require.Equal(t, "submit", KeySubmit.String())
	require.Equal(t, "history-prev", KeyHistoryPrev.String())
	require.Equal(t, "unknown", KeyKind(99).String())
}

func TestHandleKeyRequiresRunning(t *testing.T) {
	ti := newTestInstance()
	for _, kind := range []KeyKind{KeyText, KeySubmit, KeyInterrupt, KeyPaste, KeyRestart} {
		require.ErrorIs(t, ti.HandleKey(context.Background(), Key{Kind: kind}), ErrNotRunning, kind.String())
	}
}

func TestSubmitForwardsLine(t *testing.T) {
	ti := newTestInstance().start()
	h, _ := ti.rt.last()

	typeLine(t, ti, "pd")

	require.Equal(t, "pd\r", h.stdin.String())
	require.Equal(t, []string{"pd"}, ti.History())
	require.Empty(t, ti.Pending())
}

func TestSubmitRewritesWithPrompt(t *testing.T) {
	tests := []struct {
		name     string
		lastLine string
		want     string
	}{
		{
			name:     "address prompt",
			lastLine: "[0x00401000]> pd",
			want:     "\r\x1b[K[0x00401000]> pd\r\n",
		},
		{
			name:     "no prompt visible",
			lastLine: "loading...",
			want:     "\r\x1b[K> pd\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ti := newTestInstance().start()
			ti.term.last = tt.lastLine

			require.NoError(t, ti.HandleKey(context.Background(), Text("pd")))
			ti.term.resetOutput()
			require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeySubmit}))
			require.Equal(t, tt.want, ti.term.Output())
		})
	}
}

func TestEmptySubmit(t *testing.T) {
	ti := newTestInstance().start()
	h, _ := ti.rt.last()

	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeySubmit}))
	require.Equal(t, "\r", h.stdin.String())
	require.Empty(t, ti.History())
}

func TestHistoryNavigation(t *testing.T) {
	prev, next := KeyHistoryPrev, KeyHistoryNext
	tests := []struct {
		name    string
		submits []string
		keys    []KeyKind
		want    []string
	}{
		{
			// The first prev after a submit lands on the entry before it.
			name:    "three entries",
			submits: []string{"a", "b", "c"},
			keys:    []KeyKind{prev, prev, prev, next},
			want:    []string{"b", "a", "a", "b"},
		},
		{
			name:    "past the end clears",
			submits: []string{"a", "b"},
			keys:    []KeyKind{prev, prev, next, next, prev},
			want:    []string{"a", "a", "b", "", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ti := newTestInstance().start()
			for _, line := range tt.submits {
				typeLine(t, ti, line)
			}

			var seen []string
			for _, kind := range tt.keys {
				require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: kind}))
				seen = append(seen, ti.Pending())
			}
			require.Equal(t, tt.want, seen)
		})
	}
}

func TestHistoryEmpty(t *testing.T) {
	ti := newTestInstance().start()
	require.NoError(t, ti.HandleKey(context.Background(), Text("x")))
	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyHistoryPrev}))
	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyHistoryNext}))
	require.Equal(t, "x", ti.Pending())
}

func TestErase(t *testing.T) {
	ti := newTestInstance().start()
	require.NoError(t, ti.HandleKey(context.Background(), Text("ab漢")))

	ti.term.resetOutput()
	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyErase}))
	require.Equal(t, "ab", ti.Pending())
	require.Equal(t, "\b \b\b \b", ti.term.Output())

	ti.term.resetOutput()
	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyErase}))
	require.Equal(t, "a", ti.Pending())
	require.Equal(t, "\b \b", ti.term.Output())

	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyErase}))
	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyErase}))
	require.Empty(t, ti.Pending())
}

func TestInterrupt(t *testing.T) {
	ti := newTestInstance().start()
	h, _ := ti.rt.last()

	ctx, end := ti.BeginCancelable(context.Background())
	defer end()

	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyInterrupt}))
	require.ErrorIs(t, ctx.Err(), context.Canceled)
	require.Equal(t, "\r", h.stdin.String())
	require.Contains(t, ti.term.Output(), "^C")
	require.Equal(t, StateRunning, ti.State())
}

func TestInterruptWithoutOperation(t *testing.T) {
	ti := newTestInstance().start()
	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyInterrupt}))

	// A finished operation is no longer reachable by later interrupts.
	ctx, end := ti.BeginCancelable(context.Background())
	end()
	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyInterrupt}))
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestCancelToken(t *testing.T) {
	var tok CancelToken
	require.False(t, tok.CancellationRequested())
	tok.request()
	require.True(t, tok.CancellationRequested())
}

func TestPaste(t *testing.T) {
	ti := newTestInstance().start()
	ti.clip.text = "/bin/ls\n"

	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyPaste}))
	require.True(t, ti.WaitAsync(time.Second))
	require.Equal(t, "/bin/ls", ti.Pending())
	require.Contains(t, ti.term.Output(), "/bin/ls")
}

func TestPasteFailure(t *testing.T) {
	ti := newTestInstance().start()
	ti.clip.err = errors.New("no clipboard owner")

	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyPaste}))
	require.True(t, ti.WaitAsync(time.Second))
	require.Empty(t, ti.Pending())
	require.Equal(t, []string{"Failed to read from clipboard."}, ti.term.Errors())
	require.Equal(t, StateRunning, ti.State())
}

func TestFindAndGoto(t *testing.T) {
	ti := newTestInstance().start()
	h, _ := ti.rt.last()
	ti.asker.answers["Search"] = "main"
	ti.asker.answers["Address"] = " 0x401000 "

	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyFind}))
	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyGoto}))
	require.Equal(t, "/ main\rs 0x401000\r", h.stdin.String())
	require.Equal(t, []string{"Search", "Address"}, ti.asker.asked)
}

func TestFindCanceled(t *testing.T) {
	ti := newTestInstance().start()
	h, _ := ti.rt.last()

	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyFind}))
	require.Empty(t, h.stdin.String())
}

func TestClearKey(t *testing.T) {
	ti := newTestInstance().start()
	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyClear}))
	require.Equal(t, 1, ti.term.clears)
	require.Equal(t, 1, ti.rt.launches())
}

func TestRestartKey(t *testing.T) {
	ti := newTestInstance().start()
	require.NoError(t, ti.HandleKey(context.Background(), Text("p")))

	require.NoError(t, ti.HandleKey(context.Background(), Key{Kind: KeyRestart}))
	require.Equal(t, 2, ti.rt.launches())
	require.Empty(t, ti.Pending())
	require.Equal(t, StateRunning, ti.State())
}
