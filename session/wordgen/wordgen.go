// Package wordgen names tabs that have no file name to show.
package wordgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"packed", "stripped", "static", "dynamic", "signed",
	"aligned", "hidden", "inline", "naked", "opaque",
	"patched", "relocated", "sealed", "tainted", "virtual",
	"weak", "wild", "mapped", "mangled", "unwound",
}

var nouns = []string{
	"opcode", "symbol", "section", "segment", "import",
	"export", "thunk", "gadget", "stub", "trampoline",
	"vtable", "prologue", "epilogue", "relocation", "register",
	"syscall", "xref", "basicblock", "jumptable", "header",
}

// Generate creates a random pair in the format "adjective_noun". Returns an
// empty string on error.
func Generate() string {
	adj, err := selectRandom(adjectives)
	if err != nil {
		return ""
	}
	noun, err := selectRandom(nouns)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s_%s", adj, noun)
}

// GenerateUnique returns a name for which taken reports false. After a few
// random attempts a numeric suffix is appended.
func GenerateUnique(taken func(string) bool) string {
	name := ""
	for attempt := 0; attempt < 8; attempt++ {
		name = Generate()
		if name != "" && !taken(name) {
			return name
		}
	}
	if name == "" {
		name = "untitled"
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if !taken(candidate) {
			return candidate
		}
	}
}

func selectRandom(words []string) (string, error) {
	if len(words) == 0 {
		return "", fmt.Errorf("empty word list")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return words[n.Int64()], nil
}
