package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"r2tabs/loader"
	"r2tabs/ui/overlay"
)

type fetchDoneMsg struct {
	pkg *loader.Package
	err error
}

// fetchModel shows the progress of a single package download.
type fetchModel struct {
	cancel  context.CancelFunc
	resolve tea.Cmd
	ch      <-chan loader.Progress
	spinner spinner.Model
	loading *overlay.LoadingOverlay

	pkg *loader.Package
	err error
}

func newFetchModel(ctx context.Context, resolver loader.Resolver, req loader.Request) *fetchModel {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan loader.Progress, 16)
	m := &fetchModel{
		cancel:  cancel,
		ch:      ch,
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot)),
	}
	m.loading = overlay.NewLoadingOverlay(fmt.Sprintf("Fetching radare2 %s", req.Version), &m.spinner)
	m.loading.SetWidth(60)
	m.resolve = func() tea.Msg {
		defer close(ch)
		pkg, err := resolver.Resolve(ctx, req, func(p loader.Progress) {
			select {
			case ch <- p:
			default:
			}
		})
		return fetchDoneMsg{pkg: pkg, err: err}
	}
	return m
}

func (m *fetchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.resolve, waitForProgress(m.ch))
}

func (m *fetchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.loading.SetProgress(msg.progress)
		return m, waitForProgress(msg.ch)
	case fetchDoneMsg:
		m.pkg, m.err = msg.pkg, msg.err
		m.cancel()
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.loading.SetStatus("canceling")
			m.cancel()
		}
	case tea.WindowSizeMsg:
		m.loading.SetWidth(min(msg.Width, 60))
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *fetchModel) View() string {
	if m.pkg != nil || m.err != nil {
		return ""
	}
	return m.loading.Render() + "\n"
}

// Fetch downloads the package for req with a progress display.
func Fetch(ctx context.Context, resolver loader.Resolver, req loader.Request) (*loader.Package, error) {
	m := newFetchModel(ctx, resolver, req)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return nil, err
	}
	return m.pkg, m.err
}
