package filter

// reservedUsernames are X paths and platform accounts that show up in search results but
// are never people.
var reservedUsernames = map[string]struct{}{
	"home": {}, "explore": {}, "search": {}, "settings": {}, "i": {}, "messages": {},
	"notifications": {}, "login": {}, "logout": {}, "signup": {}, "tos": {}, "privacy": {},
	"compose": {}, "intent": {}, "share": {}, "hashtag": {}, "lists": {}, "bookmarks": {},
	"communities": {}, "jobs": {}, "premium": {}, "verified": {}, "x": {}, "twitter": {},
	"support": {}, "safety": {}, "xdevelopers": {}, "twitterdev": {}, "premium_tier": {},
}

func IsReservedUsername(username string) bool {
	_, ok := reservedUsernames[NormalizeHandle(username)]
	return ok
}
