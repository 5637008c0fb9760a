package dedup

import (
	"sync"

	"go-outreach-automation/internal/filter"
	"go-outreach-automation/internal/models"
)

// ContactIndex answers "do we already have this person at this company". A contact is a
// duplicate when it shares, within one company, the X username, the Telegram handle, or
// a first name where either side is recorded by first name only.
type ContactIndex struct {
	mu         sync.Mutex
	xUsers     map[string]struct{}
	tgHandles  map[string]struct{}
	firstNames map[string]struct{}
	soloNames  map[string]struct{}
}

func NewContactIndex(existing []models.Contact) *ContactIndex {
	ix := &ContactIndex{
		xUsers:     make(map[string]struct{}),
		tgHandles:  make(map[string]struct{}),
		firstNames: make(map[string]struct{}),
		soloNames:  make(map[string]struct{}),
	}
	for _, c := range existing {
		ix.add(c)
	}
	return ix
}

func key(company, v string) string {
	return filter.NormalizeText(company) + "\x00" + v
}

// Match returns the reason c duplicates an indexed contact, or "" if it does not.
func (ix *ContactIndex) Match(c models.Contact) string {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if u := filter.NormalizeHandle(c.XUsername); u != "" {
		if _, ok := ix.xUsers[key(c.Company, u)]; ok {
			return "x_username"
		}
	}
	if h := filter.NormalizeHandle(c.Handle()); h != "" {
		if _, ok := ix.tgHandles[key(c.Company, h)]; ok {
			return "telegram_handle"
		}
	}
	if fn := filter.FirstName(c.Name); fn != "" {
		k := key(c.Company, fn)
		if filter.IsFirstNameOnly(c.Name) {
			if _, ok := ix.firstNames[k]; ok {
				return "first_name"
			}
		} else if _, ok := ix.soloNames[k]; ok {
			return "first_name"
		}
	}
	return ""
}

// Seen is Match as a boolean.
func (ix *ContactIndex) Seen(c models.Contact) bool {
	return ix.Match(c) != ""
}

// Add indexes c so later candidates in the same run are checked against it.
func (ix *ContactIndex) Add(c models.Contact) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.add(c)
}

func (ix *ContactIndex) add(c models.Contact) {
	if u := filter.NormalizeHandle(c.XUsername); u != "" {
		ix.xUsers[key(c.Company, u)] = struct{}{}
	}
	if h := filter.NormalizeHandle(c.Handle()); h != "" {
		ix.tgHandles[key(c.Company, h)] = struct{}{}
	}
	if fn := filter.FirstName(c.Name); fn != "" {
		k := key(c.Company, fn)
		ix.firstNames[k] = struct{}{}
		if filter.IsFirstNameOnly(c.Name) {
			ix.soloNames[k] = struct{}{}
		}
	}
}
