package sources

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapses spaces", "a   b  c", "a b c"},
		{"collapses newlines and tabs", "a\n\tb\r\nc", "a b c"},
		{"trims", "  hello  ", "hello"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeWhitespace(tt.input))
		})
	}
}

func TestCleanAbstract(t *testing.T) {
	long := strings.Repeat("Results show significant improvement. ", 5)

	t.Run("keeps a real abstract", func(t *testing.T) {
		assert.Equal(t, NormalizeWhitespace(long), CleanAbstract(long))
	})

	t.Run("drops placeholders regardless of case", func(t *testing.T) {
		for _, s := range []string{"N/A", "n/a", "None", "Abstract not available", "No abstract available."} {
			assert.Empty(t, CleanAbstract(s), "placeholder %q should be dropped", s)
		}
	})

	t.Run("drops fragments below the minimum length", func(t *testing.T) {
		assert.Empty(t, CleanAbstract("Too short to be useful."))
	})

	t.Run("normalizes whitespace in kept abstracts", func(t *testing.T) {
		messy := strings.ReplaceAll(long, " ", "\n  ")
		assert.NotContains(t, CleanAbstract(messy), "\n")
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, CleanAbstract("   "))
	})
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain year", "2023", "2023"},
		{"iso date", "2021-06-15", "2021"},
		{"medline style", "2019 Jul-Aug", "2019"},
		{"embedded", "Published online 15 Mar 2020", "2020"},
		{"nineteenth century rejected", "1742", ""},
		{"no year", "Spring issue", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractYear(tt.input))
		})
	}
}
