package overlay

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/afero"
)

// BinaryKind is the executable format recognized from a file's magic bytes.
type BinaryKind string

const (
	KindNone  BinaryKind = ""
	KindELF   BinaryKind = "elf"
	KindPE    BinaryKind = "pe"
	KindMachO BinaryKind = "mach-o"
	KindWasm  BinaryKind = "wasm"
)

var magics = []struct {
	prefix []byte
	kind   BinaryKind
}{
	{[]byte("\x7fELF"), KindELF},
	{[]byte("MZ"), KindPE},
	{[]byte{0xfe, 0xed, 0xfa, 0xce}, KindMachO},
	{[]byte{0xfe, 0xed, 0xfa, 0xcf}, KindMachO},
	{[]byte{0xce, 0xfa, 0xed, 0xfe}, KindMachO},
	{[]byte{0xcf, 0xfa, 0xed, 0xfe}, KindMachO},
	{[]byte{0xca, 0xfe, 0xba, 0xbe}, KindMachO},
	{[]byte("\x00asm"), KindWasm},
}

// DetectKind classifies data by its leading magic bytes.
func DetectKind(data []byte) BinaryKind {
	for _, m := range magics {
		if bytes.HasPrefix(data, m.prefix) {
			return m.kind
		}
	}
	return KindNone
}

func sniff(fs afero.Fs, path string) BinaryKind {
	f, err := fs.Open(path)
	if err != nil {
		return KindNone
	}
	defer f.Close()
	head := make([]byte, 4)
	n, _ := io.ReadFull(f, head)
	return DetectKind(head[:n])
}

// FileEntry represents a file or directory in the file browser
type FileEntry struct {
	Name     string
	Path     string
	IsDir    bool
	Kind     BinaryKind
	Size     int64
	Expanded bool
	Depth    int
	Parent   *FileEntry
	Children []*FileEntry
}

// FileBrowserOverlay picks a file to open in a new tab.
type FileBrowserOverlay struct {
	fs            afero.Fs
	root          *FileEntry
	entries       []*FileEntry // Flattened list for display
	selectedIdx   int
	Submitted     bool
	Canceled      bool
	SelectedPath  string
	width, height int
	scrollOffset  int
	message       string    // Feedback message to display
	messageTime   time.Time // When the message was set
}

// NewFileBrowserOverlay creates a new file browser overlay starting at the given path
func NewFileBrowserOverlay(fs afero.Fs, startPath string) (*FileBrowserOverlay, error) {
	fb := &FileBrowserOverlay{fs: fs}
	if err := fb.NavigateToPath(startPath); err != nil {
		return nil, err
	}
	return fb, nil
}

// loadChildren loads the children of a directory entry
func (fb *FileBrowserOverlay) loadChildren(entry *FileEntry) error {
	if !entry.IsDir {
		return nil
	}

	infos, err := afero.ReadDir(fb.fs, entry.Path)
	if err != nil {
		return err
	}

	entry.Children = make([]*FileEntry, 0, len(infos))
	for _, info := range infos {
		name := info.Name()

		// Skip hidden files
		if strings.HasPrefix(name, ".") {
			continue
		}

		childPath := filepath.Join(entry.Path, name)
		child := &FileEntry{
			Name:   name,
			Path:   childPath,
			IsDir:  info.IsDir(),
			Depth:  entry.Depth + 1,
			Parent: entry,
		}
		if !child.IsDir {
			if !info.Mode().IsRegular() {
				continue
			}
			child.Size = info.Size()
			child.Kind = sniff(fb.fs, childPath)
		}
		entry.Children = append(entry.Children, child)
	}

	// Directories first, then recognized binaries, then the rest.
	rank := func(e *FileEntry) int {
		switch {
		case e.IsDir:
			return 0
		case e.Kind != KindNone:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(entry.Children, func(i, j int) bool {
		a, b := entry.Children[i], entry.Children[j]
		if rank(a) != rank(b) {
			return rank(a) < rank(b)
		}
		return a.Name < b.Name
	})

	return nil
}

// flattenEntries creates a flat list of entries for display
func (fb *FileBrowserOverlay) flattenEntries() {
	fb.entries = fb.entries[:0]
	for _, child := range fb.root.Children {
		fb.flattenEntry(child)
	}
	if fb.selectedIdx >= len(fb.entries) {
		fb.selectedIdx = max(len(fb.entries)-1, 0)
	}
}

func (fb *FileBrowserOverlay) flattenEntry(entry *FileEntry) {
	fb.entries = append(fb.entries, entry)
	if entry.Expanded {
		for _, child := range entry.Children {
			fb.flattenEntry(child)
		}
	}
}

// SetSize sets the size of the file browser
func (fb *FileBrowserOverlay) SetSize(width, height int) {
	fb.width = width
	fb.height = height
	fb.adjustScroll()
}

// setMessage sets a temporary feedback message
func (fb *FileBrowserOverlay) setMessage(msg string) {
	fb.message = msg
	fb.messageTime = time.Now()
}

// getMessage returns the current message if it's still valid (within 2 seconds)
func (fb *FileBrowserOverlay) getMessage() string {
	if fb.message != "" && time.Since(fb.messageTime) < 2*time.Second {
		return fb.message
	}
	fb.message = ""
	return ""
}

func (fb *FileBrowserOverlay) selected() *FileEntry {
	if fb.selectedIdx < len(fb.entries) {
		return fb.entries[fb.selectedIdx]
	}
	return nil
}

func (fb *FileBrowserOverlay) move(delta int) {
	fb.selectedIdx = min(max(fb.selectedIdx+delta, 0), max(len(fb.entries)-1, 0))
	fb.adjustScroll()
}

func (fb *FileBrowserOverlay) expand(entry *FileEntry) {
	if entry == nil || !entry.IsDir || entry.Expanded {
		return
	}
	if entry.Children == nil {
		if err := fb.loadChildren(entry); err != nil {
			fb.setMessage(err.Error())
			return
		}
	}
	entry.Expanded = true
	fb.flattenEntries()
}

// collapse folds an open directory, or selects the parent of anything else.
func (fb *FileBrowserOverlay) collapse(entry *FileEntry) {
	if entry == nil {
		return
	}
	if entry.IsDir && entry.Expanded {
		entry.Expanded = false
		fb.flattenEntries()
		return
	}
	for i, e := range fb.entries {
		if e == entry.Parent {
			fb.selectedIdx = i
			fb.adjustScroll()
			return
		}
	}
}

// HandleKeyPress processes a key press and updates the state accordingly
// Returns true if the overlay should be closed
func (fb *FileBrowserOverlay) HandleKeyPress(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "up", "k":
		fb.move(-1)
	case "down", "j":
		fb.move(1)
	case "right", "l":
		fb.expand(fb.selected())
	case "left", "h":
		fb.collapse(fb.selected())
	case "enter":
		entry := fb.selected()
		if entry == nil {
			return false
		}
		if entry.IsDir {
			if entry.Expanded {
				fb.collapse(entry)
			} else {
				fb.expand(entry)
			}
			return false
		}
		if entry.Size == 0 {
			fb.setMessage("File is empty")
			return false
		}
		fb.SelectedPath = entry.Path
		fb.Submitted = true
		return true
	case "esc":
		fb.Canceled = true
		return true
	case "~":
		if home, err := os.UserHomeDir(); err == nil {
			fb.navigate(home)
		}
	case "u", "-":
		fb.GoUp()
	case "g":
		fb.selectedIdx = 0
		fb.scrollOffset = 0
	case "G":
		fb.move(len(fb.entries))
	}
	return false
}

func (fb *FileBrowserOverlay) navigate(path string) {
	if err := fb.NavigateToPath(path); err != nil {
		fb.setMessage(err.Error())
	}
}

// adjustScroll adjusts the scroll offset to keep the selected item visible
func (fb *FileBrowserOverlay) adjustScroll() {
	visibleRows := fb.getVisibleRows()
	if visibleRows <= 0 {
		return
	}

	if fb.selectedIdx < fb.scrollOffset {
		fb.scrollOffset = fb.selectedIdx
	} else if fb.selectedIdx >= fb.scrollOffset+visibleRows {
		fb.scrollOffset = fb.selectedIdx - visibleRows + 1
	}
}

// getVisibleRows returns the number of visible rows in the file browser
func (fb *FileBrowserOverlay) getVisibleRows() int {
	// Title, path, two separators, scroll info, message, help and the frame.
	rows := fb.height - 12
	if rows < 1 {
		return 10
	}
	return rows
}

// IsSubmitted returns whether the form was submitted
func (fb *FileBrowserOverlay) IsSubmitted() bool {
	return fb.Submitted
}

// IsCanceled returns whether the form was canceled
func (fb *FileBrowserOverlay) IsCanceled() bool {
	return fb.Canceled
}

// GetSelectedPath returns the selected path
func (fb *FileBrowserOverlay) GetSelectedPath() string {
	return fb.SelectedPath
}

// Render renders the file browser overlay
func (fb *FileBrowserOverlay) Render() string {
	pathStyle := lipgloss.NewStyle().
		Foreground(colorDim)

	selectedStyle := lipgloss.NewStyle().
		Background(colorAccent).
		Foreground(lipgloss.Color("0")).
		Bold(true)

	binaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#51bd73")).
		Bold(true)

	dirStyle := lipgloss.NewStyle().
		Foreground(colorMuted)

	plainStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	messageStyle := lipgloss.NewStyle().
		Foreground(colorWarning).
		Italic(true)

	separatorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#444444"))

	inner := max(fb.width-8, 20)
	separator := separatorStyle.Render(strings.Repeat("─", inner)) + "\n"

	content := titleStyle.Render("Open a Binary") + "\n"
	content += pathStyle.Render(runewidth.Truncate(fb.root.Path, inner, "…")) + "\n"
	content += separator

	visibleRows := fb.getVisibleRows()
	endIdx := min(fb.scrollOffset+visibleRows, len(fb.entries))

	if len(fb.entries) == 0 {
		content += dirStyle.Render("  (empty directory)") + "\n"
	}
	for i := fb.scrollOffset; i < endIdx; i++ {
		entry := fb.entries[i]

		prefix := "  "
		if entry.IsDir {
			prefix = "> "
			if entry.Expanded {
				prefix = "v "
			}
		}
		var tag string
		switch {
		case entry.IsDir:
			tag = "[dir] "
		case entry.Kind != KindNone:
			tag = fmt.Sprintf("[%s] ", entry.Kind)
		}
		line := strings.Repeat("  ", entry.Depth-1) + prefix + tag + entry.Name
		line = runewidth.Truncate(line, inner, "…")

		switch {
		case i == fb.selectedIdx:
			line = selectedStyle.Render(runewidth.FillRight(line, inner))
		case entry.IsDir:
			line = dirStyle.Render(line)
		case entry.Kind != KindNone:
			line = binaryStyle.Render(line)
		default:
			line = plainStyle.Render(line)
		}
		content += line + "\n"
	}

	if len(fb.entries) > visibleRows {
		content += pathStyle.Render(fmt.Sprintf("  (%d-%d of %d)", fb.scrollOffset+1, endIdx, len(fb.entries))) + "\n"
	} else {
		content += "\n"
	}

	if msg := fb.getMessage(); msg != "" {
		content += messageStyle.Render(msg) + "\n"
	} else {
		content += "\n"
	}

	content += separator
	content += helpStyle.Render("↑/↓ navigate  ←/→ fold  Enter open  -/u parent  ~ home  Esc cancel")

	return box(fb.width, content)
}

// NavigateToPath makes path the browsed directory.
func (fb *FileBrowserOverlay) NavigateToPath(path string) error {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, path[1:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	root := &FileEntry{
		Name:     filepath.Base(absPath),
		Path:     absPath,
		IsDir:    true,
		Expanded: true,
	}
	if err := fb.loadChildren(root); err != nil {
		return err
	}

	fb.root = root
	fb.selectedIdx = 0
	fb.scrollOffset = 0
	fb.flattenEntries()
	return nil
}

// GoUp navigates to the parent directory
func (fb *FileBrowserOverlay) GoUp() {
	parentPath := filepath.Dir(fb.root.Path)
	if parentPath == fb.root.Path {
		return
	}
	fb.navigate(parentPath)
}
