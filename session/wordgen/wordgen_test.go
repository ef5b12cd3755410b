package wordgen

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var namePattern = regexp.MustCompile(`^[a-z]+_[a-z]+$`)

func TestGenerate(t *testing.T) {
	for i := 0; i < 20; i++ {
		result := Generate()
		require.Regexp(t, namePattern, result)

		adj, noun, ok := strings.Cut(result, "_")
		require.True(t, ok)
		require.Contains(t, adjectives, adj)
		require.Contains(t, nouns, noun)
	}
}

func TestGenerateVariety(t *testing.T) {
	results := make(map[string]bool)
	for i := 0; i < 100; i++ {
		results[Generate()] = true
	}
	require.Greater(t, len(results), 50)
}

func TestGenerateUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		name := GenerateUnique(func(s string) bool { return seen[s] })
		require.False(t, seen[name], name)
		seen[name] = true
	}

	// Everything random is taken, so a suffix is used.
	name := GenerateUnique(func(s string) bool { return namePattern.MatchString(s) })
	require.Regexp(t, `^[a-z]+_[a-z]+_2$`, name)
}

func TestWordLists(t *testing.T) {
	for _, list := range [][]string{adjectives, nouns} {
		require.NotEmpty(t, list)
		for _, w := range list {
			require.Equal(t, strings.ToLower(w), w)
			require.GreaterOrEqual(t, len(w), 3)
		}
	}
}

func TestSelectRandom(t *testing.T) {
	words := []string{"alpha", "beta", "gamma"}
	result, err := selectRandom(words)
	require.NoError(t, err)
	require.Contains(t, words, result)

	_, err = selectRandom(nil)
	require.Error(t, err)
}
