package session

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"r2tabs/log"
)

const (
	lineTerminator = "\r"
	genericPrompt  = "> "
	interruptMark  = "^C"
)

var promptPattern = regexp.MustCompile(`^\[0x[0-9a-fA-F]+\]>`)

// KeyKind classifies one unit of terminal input.
type KeyKind int

const (
	KeyText KeyKind = iota
	KeyInterrupt
	KeyPaste
	KeyRestart
	KeyClear
	KeyFind
	KeyGoto
	KeySubmit
	KeyHistoryPrev
	KeyHistoryNext
	KeyErase
)

func (k KeyKind) String() string {
	switch k {
	case KeyText:
		return "text"
	case KeyInterrupt:
		return "interrupt"
	case KeyPaste:
		return "paste"
	case KeyRestart:
		return "restart"
	case KeyClear:
		return "clear"
	case KeyFind:
		return "find"
	case KeyGoto:
		return "goto"
	case KeySubmit:
		return "submit"
	case KeyHistoryPrev:
		return "history-prev"
	case KeyHistoryNext:
		return "history-next"
	case KeyErase:
		return "erase"
	default:
		return "unknown"
	}
}

// Key is one atomic unit of input. Text is only set for KeyText.
type Key struct {
	Kind KeyKind
	Text string
}

// Text returns a KeyText unit.
func Text(s string) Key {
	return Key{Kind: KeyText, Text: s}
}

// CancelToken tracks one cancelable UI operation. An interrupt only sets
// the flag and cancels the operation's context; it never reaches the work
// the instance itself is doing.
type CancelToken struct {
	mu        sync.Mutex
	requested bool
	cancel    context.CancelFunc
}

// CancellationRequested reports whether an interrupt arrived.
func (t *CancelToken) CancellationRequested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requested
}

func (t *CancelToken) request() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requested = true
	if t.cancel != nil {
		t.cancel()
	}
}

// BeginCancelable starts an operation that the next interrupt cancels. The
// returned context is done on interrupt or when parent is; end must be
// called when the operation finishes.
func (i *Instance) BeginCancelable(parent context.Context) (ctx context.Context, end func()) {
	ctx, cancel := context.WithCancel(parent)
	token := &CancelToken{cancel: cancel}

	i.mu.Lock()
	i.token = token
	i.mu.Unlock()

	return ctx, func() {
		cancel()
		i.mu.Lock()
		if i.token == token {
			i.token = nil
		}
		i.mu.Unlock()
	}
}

// HandleKey routes one input unit. Units are processed strictly one at a
// time and only while the instance is running.
func (i *Instance) HandleKey(ctx context.Context, key Key) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != StateRunning {
		return ErrNotRunning
	}
	log.InputTrace("key %s %q", key.Kind, key.Text)

	switch key.Kind {
	case KeyInterrupt:
		if i.token != nil {
			i.token.request()
		}
		i.echo(interruptMark)
		return i.forwardLocked(lineTerminator)

	case KeyPaste:
		i.pasteAsync()
		return nil

	case KeyRestart:
		return i.restartLocked(ctx)

	case KeyClear:
		i.term.Clear()
		return nil

	case KeyFind:
		return i.promptAndForward("Search", "/ ")

	case KeyGoto:
		return i.promptAndForward("Address", "s ")

	case KeySubmit:
		return i.submitLocked()

	case KeyHistoryPrev:
		if len(i.history) == 0 {
			return nil
		}
		if i.cursor > 0 {
			i.cursor--
		}
		i.replacePending(i.history[i.cursor])
		return nil

	case KeyHistoryNext:
		if len(i.history) == 0 {
			return nil
		}
		if i.cursor < len(i.history) {
			i.cursor++
		}
		if i.cursor < len(i.history) {
			i.replacePending(i.history[i.cursor])
		} else {
			i.replacePending("")
		}
		return nil

	case KeyErase:
		if len(i.pending) == 0 {
			return nil
		}
		last := i.pending[len(i.pending)-1]
		i.pending = i.pending[:len(i.pending)-1]
		width := runewidth.RuneWidth(last)
		if width < 1 {
			width = 1
		}
		i.echo(strings.Repeat("\b \b", width))
		return nil

	default:
		i.pending = append(i.pending, []rune(key.Text)...)
		i.echo(key.Text)
		return nil
	}
}

// submitLocked pushes the pending line onto the history and forwards it.
// The cursor is set to the old length before the push, so the first
// "previous" after a submit lands on the entry before the one just sent.
func (i *Instance) submitLocked() error {
	line := string(i.pending)
	if line != "" {
		i.cursor = len(i.history)
		i.history = append(i.history, line)
	}
	i.echo("\r\x1b[K" + i.promptLocked() + line + "\r\n")
	i.pending = i.pending[:0]
	return i.forwardLocked(line + lineTerminator)
}

// promptLocked returns the prompt marker last printed by the instance, or a
// generic one when the last line holds none.
func (i *Instance) promptLocked() string {
	if m := promptPattern.FindString(i.term.LastLine()); m != "" {
		return m + " "
	}
	return genericPrompt
}

func (i *Instance) replacePending(s string) {
	prompt := i.promptLocked()
	i.pending = []rune(s)
	i.echo("\r\x1b[K" + prompt + s)
}

func (i *Instance) promptAndForward(label, prefix string) error {
	if i.prompter == nil {
		return nil
	}
	answer, err := i.prompter.Prompt(label)
	if err != nil {
		log.WarningLog.Printf("%s prompt failed: %v", label, err)
		return nil
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil
	}
	return i.forwardLocked(prefix + answer + lineTerminator)
}

// pasteAsync reads the clipboard off the input path and applies the
// result once it arrives.
func (i *Instance) pasteAsync() {
	if i.clipboard == nil {
		i.term.WriteError("Clipboard is not available.")
		return
	}
	gen := i.generation
	i.async.Add(1)
	go func() {
		defer i.async.Done()
		text, err := i.clipboard.ReadAll()

		i.mu.Lock()
		defer i.mu.Unlock()
		if i.state != StateRunning || gen != i.generation {
			return
		}
		if err != nil {
			log.WarningLog.Printf("clipboard read failed: %v", err)
			i.term.WriteError("Failed to read from clipboard.")
			return
		}
		text = strings.TrimRight(text, "\r\n")
		i.pending = append(i.pending, []rune(text)...)
		i.echo(text)
	}()
}

func (i *Instance) echo(s string) {
	if _, err := i.term.Write([]byte(s)); err != nil {
		log.WarningLog.Printf("failed to echo input: %v", err)
	}
}
