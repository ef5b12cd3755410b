package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"r2tabs/app"
	"r2tabs/config"
	"r2tabs/loader"
	"r2tabs/scrape"
	"r2tabs/session"
	"r2tabs/session/terminal"
	"r2tabs/session/wasi"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7"))

// runScrape opens path in one instance and prints the view named kind.
func runScrape(ctx context.Context, cfg *config.Config, kind, path string) error {
	switch kind {
	case "strings", "hex", "graph":
	default:
		return fmt.Errorf("unknown view %q, expected strings, hex or graph", kind)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	env, err := newEnvironment(cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	req := loader.Request{Version: cfg.DefaultVersion, UseProxy: cfg.UseProxy, WantCache: cfg.WantCache}
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	var pkg *loader.Package
	if interactive {
		pkg, err = app.Fetch(ctx, env.loader, req)
	} else {
		pkg, err = env.loader.Resolve(ctx, req, nil)
	}
	if err != nil {
		return err
	}

	rows, cols := 24, 80
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		rows, cols = h, w
	}
	screen := terminal.NewScreen(rows, cols, env.runtime.Mode() == wasi.ModePipe)
	if showFlag {
		if err := screen.Attach(os.Stderr); err != nil {
			return err
		}
	}
	inst := session.NewInstance(session.InstanceOptions{
		Runtime:       env.runtime,
		NewDir:        env.newDir,
		Terminal:      screen,
		AnalysisDepth: cfg.AnalysisDepth,
	})
	defer inst.Dispose()
	if err := inst.Create(ctx, pkg, &session.File{Name: filepath.Base(path), Data: data}); err != nil {
		return err
	}

	p := scrape.NewFromConfig(cfg)
	var out string
	switch kind {
	case "strings":
		records, err := p.Strings(ctx, inst)
		if err != nil {
			return err
		}
		out = app.FormatStrings(records)
	case "hex":
		lines, err := p.Hexdump(ctx, inst, addrFlag, lengthFlag)
		if err != nil {
			return err
		}
		out = app.FormatHexdump(lines)
	case "graph":
		if out, err = p.Graph(ctx, inst, addrFlag); err != nil {
			return err
		}
	}

	if interactive {
		fmt.Println(headerStyle.Render(fmt.Sprintf("%s of %s (radare2 %s)", kind, filepath.Base(path), pkg.Version)))
	}
	fmt.Print(out)
	return nil
}
