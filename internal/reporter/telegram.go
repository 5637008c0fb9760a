package reporter

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// RunSummary is what an operator sees after one discovery run.
type RunSummary struct {
	Company       string
	Handle        string
	Candidates    int
	Valid         int
	Invalid       int
	Indeterminate int
	Duplicates    int
	Drafts        int
	DraftErrors   int
	Err           error
}

// Reporter tells the operator about discovery runs and things that need a human.
type Reporter interface {
	ReportRun(s RunSummary) error
	Alert(text string) error
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramReporter struct {
	bot    sender
	chatID int64
}

func NewTelegramReporter(token string, chatID int64) (*TelegramReporter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	//turn this on in case of debug
	//bot.Debug = true

	return &TelegramReporter{
		bot:    bot,
		chatID: chatID,
	}, nil
}

func (t *TelegramReporter) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "HTML" //use HTML for bold/italic
	_, err := t.bot.Send(msg)
	return err
}

func (t *TelegramReporter) ReportRun(s RunSummary) error {
	return t.SendMessage(FormatRun(s))
}

func (t *TelegramReporter) Alert(text string) error {
	return t.SendMessage(fmt.Sprintf("⚠️ <b>Outreach alert</b>:\n%s", html.EscapeString(text)))
}

// FormatRun renders a summary as Telegram HTML.
func FormatRun(s RunSummary) string {
	var b strings.Builder
	name := s.Company
	if name == "" {
		name = s.Handle
	}
	if s.Err != nil {
		fmt.Fprintf(&b, "❌ <b>Discovery failed</b> for %s\n%s", html.EscapeString(name), html.EscapeString(s.Err.Error()))
		return b.String()
	}
	fmt.Fprintf(&b, "🔎 <b>Discovery</b> %s", html.EscapeString(name))
	if s.Handle != "" && s.Handle != name {
		fmt.Fprintf(&b, " (@%s)", html.EscapeString(strings.TrimPrefix(s.Handle, "@")))
	}
	fmt.Fprintf(&b, "\n👥 Candidates: %d\n", s.Candidates)
	fmt.Fprintf(&b, "✅ Valid: %d  🚫 Invalid: %d  ❔ Unchecked: %d\n", s.Valid, s.Invalid, s.Indeterminate)
	if s.Duplicates > 0 {
		fmt.Fprintf(&b, "♻️ Duplicates skipped: %d\n", s.Duplicates)
	}
	fmt.Fprintf(&b, "📝 Drafts: %d", s.Drafts)
	if s.DraftErrors > 0 {
		fmt.Fprintf(&b, " (%d failed)", s.DraftErrors)
	}
	return b.String()
}

// LogReporter writes reports to the log. It is used when no bot token is configured.
type LogReporter struct {
	Log *zap.SugaredLogger
}

func (r LogReporter) ReportRun(s RunSummary) error {
	if s.Err != nil {
		r.Log.Warnf("❌ Discovery failed for %s: %v", s.Handle, s.Err)
		return nil
	}
	r.Log.Infof("🔎 Discovery %s: %d candidates, %d valid, %d invalid, %d unchecked, %d duplicates, %d drafts (%d failed)",
		s.Handle, s.Candidates, s.Valid, s.Invalid, s.Indeterminate, s.Duplicates, s.Drafts, s.DraftErrors)
	return nil
}

func (r LogReporter) Alert(text string) error {
	r.Log.Errorf("⚠️ %s", text)
	return nil
}
