package relayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single line", "Hi Alice", []string{"Hi Alice"}},
		{"two paragraphs", "Hi Alice\n\nQuick question about Acme", []string{"Hi Alice", "Quick question about Acme"}},
		{"line break kept inside a paragraph", "Hi Alice,\nhope you're well\n\nBye", []string{"Hi Alice,\nhope you're well", "Bye"}},
		{"whitespace only separator", "One\n  \t\nTwo", []string{"One", "Two"}},
		{"windows newlines", "One\r\n\r\nTwo", []string{"One", "Two"}},
		{"extra blank lines dropped", "\n\nOne\n\n\n\nTwo\n\n", []string{"One", "Two"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitParagraphs(tt.text))
		})
	}
}
