package relayer

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	cmds   []string
	failOn string
	shot   []byte
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	r.cmds = append(r.cmds, line)
	if r.failOn != "" && strings.Contains(line, r.failOn) {
		return errors.New("exit status 1")
	}
	if name == "import" && r.shot != nil {
		return os.WriteFile(args[len(args)-1], r.shot, 0o644)
	}
	return nil
}

type fakeClipboard struct {
	content string
	writes  []string
}

func (c *fakeClipboard) ReadAll() (string, error) { return c.content, nil }

func (c *fakeClipboard) WriteAll(text string) error {
	c.writes = append(c.writes, text)
	c.content = text
	return nil
}

func newTestDesktop(t *testing.T, goos string) (*Desktop, *fakeRunner, *fakeClipboard) {
	t.Helper()
	r := &fakeRunner{}
	clip := &fakeClipboard{content: "previous"}
	return &Desktop{
		runner: r,
		clip:   clip,
		sleep:  browser.NoSleep,
		goos:   goos,
		log:    zap.NewNop().Sugar(),
		tmpDir: t.TempDir(),
	}, r, clip
}

func TestDesktopSendPastesEachParagraph(t *testing.T) {
	d, r, clip := newTestDesktop(t, "linux")
	ps := models.PendingSend{
		Draft:          models.Draft{ID: "d1", MessageText: "Hi Alice\n\nQuick question about Acme"},
		TelegramHandle: "alice_w",
	}

	require.NoError(t, d.Send(context.Background(), ps))

	assert.Equal(t, []string{
		"xdg-open tg://resolve?domain=alice_w",
		"xdotool search --onlyvisible --class Telegram windowactivate --sync",
		"xdotool key --clearmodifiers ctrl+v",
		"xdotool key --clearmodifiers Return",
		"xdotool key --clearmodifiers ctrl+v",
		"xdotool key --clearmodifiers Return",
	}, r.cmds)
	assert.Equal(t, []string{"Hi Alice", "Quick question about Acme", "previous"}, clip.writes)
}

func TestDesktopSendOnMac(t *testing.T) {
	d, r, _ := newTestDesktop(t, "darwin")
	ps := models.PendingSend{Draft: models.Draft{MessageText: "Hello"}, TelegramHandle: "bob"}

	require.NoError(t, d.Send(context.Background(), ps))

	require.Len(t, r.cmds, 4)
	assert.Equal(t, "open tg://resolve?domain=bob", r.cmds[0])
	assert.Contains(t, r.cmds[2], "keystroke \"v\" using command down")
}

func TestDesktopSendErrors(t *testing.T) {
	t.Run("unsupported os", func(t *testing.T) {
		d, r, _ := newTestDesktop(t, "windows")
		err := d.Send(context.Background(), models.PendingSend{Draft: models.Draft{MessageText: "Hi"}})
		assert.ErrorIs(t, err, ErrUnsupportedOS)
		assert.Empty(t, r.cmds)
	})
	t.Run("empty draft", func(t *testing.T) {
		d, r, _ := newTestDesktop(t, "linux")
		err := d.Send(context.Background(), models.PendingSend{Draft: models.Draft{MessageText: " \n\n "}})
		assert.Error(t, err)
		assert.Empty(t, r.cmds)
	})
	t.Run("paste fails and clipboard is restored", func(t *testing.T) {
		d, r, clip := newTestDesktop(t, "linux")
		r.failOn = "ctrl+v"
		err := d.Send(context.Background(), models.PendingSend{Draft: models.Draft{MessageText: "Hi"}, TelegramHandle: "alice_w"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "paste chunk 1")
		assert.Equal(t, "previous", clip.content)
	})
}

func TestDesktopCaptureReadsScreenshot(t *testing.T) {
	d, r, _ := newTestDesktop(t, "linux")
	r.shot = []byte("\x89PNG fake")

	res, err := d.Capture(context.Background(), models.CaptureRequest{ID: "c1", TelegramHandle: "alice_w"})

	require.NoError(t, err)
	assert.Equal(t, r.shot, res.Screenshot)
	assert.Equal(t, "xdg-open tg://resolve?domain=alice_w", r.cmds[0])
	assert.True(t, strings.HasPrefix(r.cmds[2], "import -window root "))

	entries, err := os.ReadDir(d.tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "screenshot file is removed")
}
