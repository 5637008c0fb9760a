package reporter

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestFormatRun(t *testing.T) {
	tests := []struct {
		name     string
		in       RunSummary
		contains []string
		absent   []string
	}{
		{
			name:     "success",
			in:       RunSummary{Company: "Acme", Handle: "acme", Candidates: 3, Valid: 2, Invalid: 1, Drafts: 2},
			contains: []string{"<b>Discovery</b> Acme (@acme)", "Candidates: 3", "Valid: 2", "Drafts: 2"},
			absent:   []string{"Duplicates", "failed"},
		},
		{
			name:     "partial drafts",
			in:       RunSummary{Handle: "acme", Valid: 2, Drafts: 1, DraftErrors: 1, Duplicates: 4},
			contains: []string{"Duplicates skipped: 4", "(1 failed)"},
		},
		{
			name:     "failure escapes",
			in:       RunSummary{Handle: "a<b>", Err: errors.New("x rate_limited: <banner>")},
			contains: []string{"Discovery failed", "a&lt;b&gt;", "&lt;banner&gt;"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatRun(tt.in)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestTelegramReporterSends(t *testing.T) {
	bot := &fakeBot{}
	r := &TelegramReporter{bot: bot, chatID: 42}

	require.NoError(t, r.ReportRun(RunSummary{Handle: "acme"}))
	require.NoError(t, r.Alert("relayer offline"))

	require.Len(t, bot.sent, 2)
	assert.Equal(t, int64(42), bot.sent[1].ChatID)
	assert.Equal(t, "HTML", bot.sent[1].ParseMode)
	assert.Contains(t, bot.sent[1].Text, "relayer offline")
}
