package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBioMentions(t *testing.T) {
	tests := []struct {
		name   string
		bio    string
		handle string
		cname  string
		want   bool
	}{
		{"at-handle", "Engineer @acme | prev @foo", "acme", "Acme Labs", true},
		{"company name as phrase", "Building things at Acme Labs", "acmexyz", "Acme Labs", true},
		{"accents folded", "Growth lead, Café Nero", "cafenero_hq", "Café Nero", true},
		{"compact name", "bd @ acme-protocol", "acmeprotocol", "Acme Protocol", true},
		{"substring is not a mention", "I love acmeology", "acme", "", false},
		{"empty bio", "", "acme", "Acme", false},
		{"unrelated", "Photographer. Coffee.", "acme", "Acme", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BioMentions(tt.bio, tt.handle, tt.cname))
		})
	}
}

func TestIsCompanyLookalike(t *testing.T) {
	tests := []struct {
		username string
		want     bool
	}{
		{"acme", true},
		{"@ACME", true},
		{"acme_hq", true},
		{"teamacme", true},
		{"acmelabs", true},
		{"alice", false},
		{"bob_builds", false},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCompanyLookalike(tt.username, "acme", "Acme Labs"))
		})
	}
}

func TestExtractTelegramHandle(t *testing.T) {
	tests := []struct {
		bio    string
		want   string
		wantOK bool
	}{
		{"DMs open. t.me/alice_w", "alice_w", true},
		{"https://telegram.me/CarolDev for BD", "CarolDev", true},
		{"tg: @bob_smith", "bob_smith", true},
		{"Telegram @dave_eth | ex-acme", "dave_eth", true},
		{"join t.me/joinchat", "", false},
		{"t.me/abc", "", false},
		{"no handle here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.bio, func(t *testing.T) {
			got, ok := ExtractTelegramHandle(tt.bio)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTelegramHandles(t *testing.T) {
	bio := "BD @ Acme. News: t.me/acme_official, DMs: tg: @alice_w or t.me/ACME_official"
	assert.Equal(t, []string{"acme_official", "alice_w"}, ExtractTelegramHandles(bio))
	assert.Empty(t, ExtractTelegramHandles("no handle here"))
}

func TestIsReservedUsername(t *testing.T) {
	assert.True(t, IsReservedUsername("@Explore"))
	assert.True(t, IsReservedUsername("x"))
	assert.False(t, IsReservedUsername("alice"))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "ana", FirstName("  Ana María López"))
	assert.Equal(t, "", FirstName(""))
	assert.True(t, IsFirstNameOnly("Alice"))
	assert.False(t, IsFirstNameOnly("Alice Doe"))
	assert.True(t, IsTelegramUsername("@alice_w"))
	assert.False(t, IsTelegramUsername("bob"))
	assert.False(t, IsTelegramUsername("1alice"))
}
