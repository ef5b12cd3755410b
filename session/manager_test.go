package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"r2tabs/cache"
	"r2tabs/loader"
)

type stubPackages struct {
	mu   sync.Mutex
	err  error
	reqs []loader.Request
}

func (s *stubPackages) Get(ctx context.Context, req loader.Request, onProgress loader.ProgressFunc) (*loader.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return testPackage(req.Version), nil
}

type testManager struct {
	*Manager
	rt    *fakeRuntime
	pkgs  *stubPackages
	mu    sync.Mutex
	terms map[int]*fakeTerminal
}

func newTestManager(pkgs PackageSource) *testManager {
	tm := &testManager{rt: &fakeRuntime{}, terms: make(map[int]*fakeTerminal)}
	if pkgs == nil {
		tm.pkgs = &stubPackages{}
		pkgs = tm.pkgs
	}
	tm.Manager = NewManager(ManagerOptions{
		Packages: pkgs,
		Runtime:  tm.rt,
		NewTerminal: func(id int) Terminal {
			term := &fakeTerminal{}
			tm.mu.Lock()
			tm.terms[id] = term
			tm.mu.Unlock()
			return term
		},
		Clipboard:     fakeClipboard{},
		Prompter:      &fakePrompter{},
		AnalysisDepth: 24,
	})
	return tm
}

func (tm *testManager) open(t *testing.T, name string) int {
	t.Helper()
	id, err := tm.Open(context.Background(), OpenRequest{
		File:     &File{Name: name, Data: []byte("\x7fELF")},
		FilePath: "/tmp/" + name,
		Version:  "6.0.9",
	}, nil)
	require.NoError(t, err)
	return id
}

func TestOpenCachedVersionEndToEnd(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected download of %s", r.URL.Path)
		http.NotFound(w, r)
	}))
	defer origin.Close()

	bin := cache.NewWithFs(afero.NewMemMapFs())
	require.NoError(t, bin.Put("6.0.9", testImage))
	registry := loader.NewRegistry(loader.New(loader.Options{
		Cache:             bin,
		Client:            origin.Client(),
		DefaultVersion:    "6.0.9",
		DefaultVersionURL: origin.URL + "/radare2.wasm",
		LocalProxyURL:     origin.URL,
		HostedProxyURL:    origin.URL,
	}))

	tm := newTestManager(registry)

	var events []loader.Progress
	id, err := tm.Open(context.Background(), OpenRequest{
		File:      &File{Name: "a.out", Data: []byte("\x7fELF")},
		Version:   "6.0.9",
		WantCache: true,
	}, func(p loader.Progress) { events = append(events, p) })
	require.NoError(t, err)
	require.Empty(t, events)

	rec, err := tm.Get(id)
	require.NoError(t, err)
	require.Equal(t, StateRunning, rec.Instance.State())

	require.NoError(t, tm.HandleInput(context.Background(), Text("pd")))
	require.NoError(t, tm.HandleInput(context.Background(), Key{Kind: KeySubmit}))

	h, _ := tm.rt.last()
	require.Equal(t, "pd\r", h.stdin.String())
	require.Equal(t, "pd", rec.Instance.History()[0])
}

func TestOpenAssignsIDsAndActivates(t *testing.T) {
	tm := newTestManager(nil)
	require.Nil(t, tm.Active())

	first := tm.open(t, "a.out")
	second := tm.open(t, "libc.so")
	require.Equal(t, 1, first)
	require.Equal(t, 2, second)
	require.Equal(t, second, tm.Active().ID)
	require.Equal(t, "libc.so", tm.Active().Title)
	require.Equal(t, 2, tm.Len())

	list := tm.List()
	require.Equal(t, []int{1, 2}, []int{list[0].ID, list[1].ID})
}

func TestOpenPassesRequestMode(t *testing.T) {
	tm := newTestManager(nil)
	_, err := tm.Open(context.Background(), OpenRequest{
		File:      &File{Name: "a.out"},
		Version:   "5.9.8",
		UseProxy:  true,
		WantCache: true,
		Title:     "custom",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []loader.Request{{Version: "5.9.8", UseProxy: true, WantCache: true}}, tm.pkgs.reqs)
	require.Equal(t, "custom", tm.Active().Title)
}

func TestOpenLoadFailure(t *testing.T) {
	tm := newTestManager(nil)
	tm.pkgs.err = errors.New("404 Not Found")

	id, err := tm.Open(context.Background(), OpenRequest{File: &File{Name: "a.out"}, Version: "0.0.1"}, nil)
	require.Error(t, err)

	rec, getErr := tm.Get(id)
	require.NoError(t, getErr)
	require.ErrorIs(t, rec.Err, err)
	require.Equal(t, StateUnstarted, rec.Instance.State())
	require.Contains(t, tm.terms[id].Errors()[0], "Failed to load radare2 0.0.1")
	require.Zero(t, tm.rt.launches())
}

func TestOpenWithoutFile(t *testing.T) {
	tm := newTestManager(nil)
	id, err := tm.Open(context.Background(), OpenRequest{Version: "6.0.9"}, nil)
	require.ErrorIs(t, err, ErrNoFileProvided)

	rec, _ := tm.Get(id)
	require.Regexp(t, `^[a-z]+_[a-z]+$`, rec.Title)
	require.ErrorIs(t, rec.Err, ErrNoFileProvided)
}

func TestNextPrevWrap(t *testing.T) {
	tm := newTestManager(nil)
	tm.open(t, "a")
	tm.open(t, "b")
	tm.open(t, "c")

	require.Equal(t, 1, tm.Next())
	require.Equal(t, 2, tm.Next())
	require.Equal(t, 1, tm.Prev())
	require.Equal(t, 3, tm.Prev())

	require.NoError(t, tm.Activate(2))
	require.Equal(t, 2, tm.Active().ID)
	require.ErrorIs(t, tm.Activate(9), ErrSessionNotFound)
}

func TestNextPrevEmpty(t *testing.T) {
	tm := newTestManager(nil)
	require.Zero(t, tm.Next())
	require.Zero(t, tm.Prev())
	require.ErrorIs(t, tm.HandleInput(context.Background(), Text("x")), ErrSessionNotFound)
}

func TestClose(t *testing.T) {
	tm := newTestManager(nil)
	tm.open(t, "a")
	tm.open(t, "b")
	tm.open(t, "c")
	require.NoError(t, tm.Activate(2))
	rec, _ := tm.Get(2)

	require.NoError(t, tm.Close(2))
	require.Equal(t, StateDisposed, rec.Instance.State())
	require.Equal(t, 3, tm.Active().ID)

	require.NoError(t, tm.Close(3))
	require.Equal(t, 1, tm.Active().ID)

	require.NoError(t, tm.Close(1))
	require.Nil(t, tm.Active())
	require.ErrorIs(t, tm.Close(1), ErrSessionNotFound)

	// Ids are never reused.
	require.Equal(t, 4, tm.open(t, "d"))
}

func TestCloseInactiveKeepsFocus(t *testing.T) {
	tm := newTestManager(nil)
	tm.open(t, "a")
	tm.open(t, "b")

	require.NoError(t, tm.Close(1))
	require.Equal(t, 2, tm.Active().ID)
}

func TestCloseAll(t *testing.T) {
	tm := newTestManager(nil)
	tm.open(t, "a")
	tm.open(t, "b")
	recs := tm.List()

	tm.CloseAll()
	require.Zero(t, tm.Len())
	require.Nil(t, tm.Active())
	for _, rec := range recs {
		require.Equal(t, StateDisposed, rec.Instance.State())
	}
}

func TestRestartAll(t *testing.T) {
	tm := newTestManager(nil)
	tm.open(t, "a")
	tm.open(t, "b")

	require.NoError(t, tm.RestartAll(context.Background()))
	require.Equal(t, 4, tm.rt.launches())

	require.NoError(t, tm.Restart(context.Background(), 1))
	require.Equal(t, 5, tm.rt.launches())
	require.ErrorIs(t, tm.Restart(context.Background(), 7), ErrSessionNotFound)

	tm.rt.setFail(true)
	require.Error(t, tm.RestartAll(context.Background()))
}

func TestSnapshotAndSummaries(t *testing.T) {
	tm := newTestManager(nil)
	tm.open(t, "a")
	tm.pkgs.err = errors.New("offline")
	_, err := tm.Open(context.Background(), OpenRequest{File: &File{Name: "b"}, Version: "1.0.0"}, nil)
	require.Error(t, err)

	snap := tm.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "a", snap[0].Title)
	require.Error(t, snap[1].Err)

	s := NewSummarizer()
	first := tm.UpdateNextSummary(s)
	require.NotNil(t, first)
	second := tm.UpdateNextSummary(s)
	require.NotNil(t, second)
	require.NotEqual(t, first.ID, second.ID)

	rec, _ := tm.Get(2)
	require.Equal(t, "Failed: offline", rec.Summary)
}
