package app

import (
	"fmt"
	"strings"

	"r2tabs/keys"
)

var helpSections = []struct {
	title string
	keys  []keys.KeyName
}{
	{"Tabs", []keys.KeyName{keys.KeyNew, keys.KeyClose, keys.KeyNextTab, keys.KeyPrevTab, keys.KeyRestartAll, keys.KeyQuit}},
	{"Views", []keys.KeyName{keys.KeyStrings, keys.KeyHexdump, keys.KeyGraph}},
	{"Session", []keys.KeyName{
		keys.KeySubmit, keys.KeyInterrupt, keys.KeyPaste, keys.KeyRestart, keys.KeyClear,
		keys.KeyFind, keys.KeyGoto, keys.KeyHistoryPrev, keys.KeyHistoryNext, keys.KeyErase,
	}},
}

// helpText lists every key binding by section.
func helpText() string {
	var b strings.Builder
	for n, section := range helpSections {
		if n > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(section.title + "\n")
		for _, name := range section.keys {
			key, desc := keys.Help(name)
			fmt.Fprintf(&b, "  %-10s %s\n", key, desc)
		}
	}
	b.WriteString("\nIn a view, y copies its text to the clipboard.\n")
	return b.String()
}
