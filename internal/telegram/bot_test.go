package telegram

import (
	"errors"
	"testing"

	"go-outreach-automation/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestLinks(t *testing.T) {
	assert.Equal(t, "https://t.me/alice_w", ProfileURL("@alice_w"))
	assert.Equal(t, "tg://resolve?domain=alice_w", ResolveURI(" alice_w "))
}

func TestSendDraftPreview(t *testing.T) {
	api := &fakeAPI{}
	b := &Bot{api: api, chatID: 7}
	handle := "alice_w"

	c := models.Contact{Name: "Alice W.", Company: "Acme", TelegramHandle: &handle, XUsername: "alice"}
	d := models.Draft{Status: models.DraftQueued, MessageText: "Hi Alice! Quick one."}
	require.NoError(t, b.SendDraftPreview(c, d))

	require.Len(t, api.sent, 1)
	msg := api.sent[0]
	assert.Equal(t, "MarkdownV2", msg.ParseMode)
	assert.Contains(t, msg.Text, "*Alice W\\.*")
	assert.Contains(t, msg.Text, "Hi Alice\\! Quick one\\.")
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, "https://t.me/alice_w", *kb.InlineKeyboard[0][0].URL)
}

func TestSendDraftPreviewWithoutChannels(t *testing.T) {
	api := &fakeAPI{}
	b := &Bot{api: api, chatID: 7}

	require.NoError(t, b.SendDraftPreview(models.Contact{Name: "Bob", Company: "Acme"}, models.Draft{Status: models.DraftQueued}))
	assert.Nil(t, api.sent[0].ReplyMarkup)
}

func TestSendErrorAndStatus(t *testing.T) {
	api := &fakeAPI{}
	b := &Bot{api: api, chatID: 7}

	require.NoError(t, b.SendError(errors.New("draft for Alice not written")))
	require.NoError(t, b.SendStatus("Outreach server started"))

	require.Len(t, api.sent, 2)
	assert.Equal(t, "❌ Error: draft for Alice not written", api.sent[0].Text)
	assert.Equal(t, int64(7), api.sent[0].ChatID)
	assert.Equal(t, "ℹ️ Outreach server started", api.sent[1].Text)
}
