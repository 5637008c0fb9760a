package relayer

import (
	"regexp"
	"strings"
)

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// SplitParagraphs breaks a message on blank lines. Each paragraph goes out as its own
// Telegram message.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range blankLine.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
