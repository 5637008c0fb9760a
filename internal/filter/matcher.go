package filter

import (
	"regexp"
	"strings"
)

var (
	telegramLinkRegex  = regexp.MustCompile(`(?i)(?:https?://)?(?:t\.me|telegram\.me)/([a-z][a-z0-9_]{4,31})\b`)
	telegramLabelRegex = regexp.MustCompile(`(?i)\b(?:tg|telegram)\s*[:\-]?\s*@([a-z][a-z0-9_]{4,31})\b`)
	telegramNameRegex  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{4,31}$`)
)

// t.me paths that are not usernames
var telegramPaths = map[string]struct{}{"joinchat": {}, "addstickers": {}, "share": {}, "proxy": {}, "socks": {}}

// BioMentions reports whether a bio names the company, either by its handle or by its
// name as a whole word.
func BioMentions(bio, handle, name string) bool {
	text := NormalizeText(bio)
	if text == "" {
		return false
	}
	if h := NormalizeHandle(handle); h != "" {
		if strings.Contains(text, "@"+h) || containsWord(text, h) {
			return true
		}
	}
	if n := NormalizeText(strings.TrimSpace(name)); len(n) >= 3 {
		if containsWord(text, n) {
			return true
		}
		if c := compact(n); len(c) >= 5 && strings.Contains(compact(text), c) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	re, err := regexp.Compile(`(^|[^\pL\pN_])` + regexp.QuoteMeta(word) + `($|[^\pL\pN_])`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// IsCompanyLookalike reports whether a username is the company account or a variant of
// it (acme, acme_hq, teamacme).
func IsCompanyLookalike(username, handle, name string) bool {
	u := compact(NormalizeHandle(username))
	if u == "" {
		return false
	}
	for _, base := range []string{compact(NormalizeHandle(handle)), compact(name)} {
		if len(base) < 3 {
			continue
		}
		if u == base || strings.HasPrefix(u, base) || strings.HasSuffix(u, base) {
			return true
		}
	}
	return false
}

// ExtractTelegramHandle finds a Telegram username advertised in a bio, as a t.me link or
// a "tg: @name" label.
func ExtractTelegramHandle(bio string) (string, bool) {
	if hs := ExtractTelegramHandles(bio); len(hs) > 0 {
		return hs[0], true
	}
	return "", false
}

// ExtractTelegramHandles lists every Telegram username in a bio, links first, without
// repeats.
func ExtractTelegramHandles(bio string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, re := range []*regexp.Regexp{telegramLinkRegex, telegramLabelRegex} {
		for _, m := range re.FindAllStringSubmatch(bio, -1) {
			key := strings.ToLower(m[1])
			if _, skip := telegramPaths[key]; skip || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, m[1])
		}
	}
	return out
}

// IsTelegramUsername reports whether s is syntactically a Telegram username.
func IsTelegramUsername(s string) bool {
	return telegramNameRegex.MatchString(strings.TrimPrefix(s, "@"))
}
