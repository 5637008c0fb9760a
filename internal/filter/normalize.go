package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds accents and case so "Café Labs" matches "cafe labs".
func NormalizeText(str string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, str)
	return strings.ToLower(result)
}

// NormalizeHandle strips the leading "@" and whitespace and lowercases.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

// compact keeps only letters and digits.
func compact(s string) string {
	var b strings.Builder
	for _, r := range NormalizeText(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FirstName returns the first word of a display name, normalized.
func FirstName(name string) string {
	fields := strings.Fields(NormalizeText(name))
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,|-")
}

// IsFirstNameOnly reports whether a display name is a single word.
func IsFirstNameOnly(name string) bool {
	return len(strings.Fields(name)) == 1
}
