package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"train", "trian", 2},
		{"héllo", "hello", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b), "%q -> %q", tt.a, tt.b)
	}
}

func TestFindSimilar(t *testing.T) {
	apps := []string{"train", "serve", "evaluate", "trainer"}

	assert.Equal(t, []string{"train"}, FindSimilar("trian", apps, nil))
	assert.Equal(t, []string{"train", "trainer"}, FindSimilar("trian", apps, &FuzzyMatchOptions{MaxDistance: 4}))
	assert.Equal(t, []string{"serve"}, FindSimilar("SERV", apps, nil))
	assert.Empty(t, FindSimilar("serve", apps, nil), "exact matches are not suggestions")
	assert.Empty(t, FindSimilar("Serv", apps, &FuzzyMatchOptions{CaseSensitive: true, MaxDistance: 1}))
	assert.Len(t, FindSimilar("t", []string{"a", "b", "c", "d"}, &FuzzyMatchOptions{MaxSuggestions: 2}), 2)
}
