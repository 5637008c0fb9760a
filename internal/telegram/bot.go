package telegram

import (
	"fmt"
	"strings"

	"go-outreach-automation/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ProfileURL is the public web link for a username.
func ProfileURL(handle string) string {
	return "https://t.me/" + strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

// ResolveURI opens a chat with handle in the desktop app.
func ResolveURI(handle string) string {
	return "tg://resolve?domain=" + strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot posts draft previews to the sales chat so a human can review them from a phone.
type Bot struct {
	api    sender
	chatID int64
}

func NewBot(token string, chatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:    api,
		chatID: chatID,
	}, nil
}

func (b *Bot) escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
		")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
		"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
		"}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}

func (b *Bot) previewText(c models.Contact, d models.Draft) string {
	msgText := fmt.Sprintf("👤 *%s*\n", b.escapeMarkdown(c.Name))
	msgText += fmt.Sprintf("🏢 %s\n", b.escapeMarkdown(c.Company))
	if c.Title != "" {
		msgText += fmt.Sprintf("💼 %s\n", b.escapeMarkdown(c.Title))
	}
	if h := c.Handle(); h != "" {
		msgText += fmt.Sprintf("✈️ @%s\n", b.escapeMarkdown(h))
	}
	if c.XUsername != "" {
		msgText += fmt.Sprintf("🐦 @%s\n", b.escapeMarkdown(c.XUsername))
	}
	msgText += fmt.Sprintf("🔖 Status: %s\n\n", b.escapeMarkdown(string(d.Status)))
	msgText += b.escapeMarkdown(d.MessageText)
	return msgText
}

// SendDraftPreview posts one draft with links to the contact's profiles.
func (b *Bot) SendDraftPreview(c models.Contact, d models.Draft) error {
	var row []tgbotapi.InlineKeyboardButton
	if h := c.Handle(); h != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("✈️ Telegram", ProfileURL(h)))
	}
	if c.XUsername != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("🐦 X profile", "https://x.com/"+c.XUsername))
	}

	msg := tgbotapi.NewMessage(b.chatID, b.previewText(c, d))
	msg.ParseMode = "MarkdownV2"
	if len(row) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}

	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendError(err error) error {
	msg := tgbotapi.NewMessage(b.chatID, fmt.Sprintf("❌ Error: %v", err))
	_, sendErr := b.api.Send(msg)
	return sendErr
}

func (b *Bot) SendStatus(message string) error {
	msg := tgbotapi.NewMessage(b.chatID, "ℹ️ "+message)
	_, err := b.api.Send(msg)
	return err
}
