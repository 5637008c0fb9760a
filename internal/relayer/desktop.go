package relayer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/models"
	"go-outreach-automation/internal/telegram"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

var ErrUnsupportedOS = errors.New("desktop automation is not supported on this OS")

// CommandRunner runs an OS command to completion.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Desktop drives the Telegram desktop app: open the chat by deep link, paste each
// paragraph and press Enter.
type Desktop struct {
	runner    CommandRunner
	clip      Clipboard
	sleep     browser.SleepFunc
	goos      string
	log       *zap.SugaredLogger
	tmpDir    string
	OpenDelay time.Duration
	// ChunkDelay is the pause between paragraphs, jittered by up to half again.
	ChunkDelay time.Duration
}

func NewDesktop(log *zap.SugaredLogger) *Desktop {
	return &Desktop{
		runner:     execRunner{},
		clip:       systemClipboard{},
		sleep:      browser.Sleep,
		goos:       runtime.GOOS,
		log:        log,
		tmpDir:     os.TempDir(),
		OpenDelay:  3 * time.Second,
		ChunkDelay: 1500 * time.Millisecond,
	}
}

type keys struct {
	open       []string
	activate   []string
	paste      []string
	enter      []string
	screenshot func(path string) []string
}

func (d *Desktop) keys() (keys, error) {
	switch d.goos {
	case "darwin":
		return keys{
			open:     []string{"open"},
			activate: []string{"osascript", "-e", `tell application "Telegram" to activate`},
			paste:    []string{"osascript", "-e", `tell application "System Events" to keystroke "v" using command down`},
			enter:    []string{"osascript", "-e", `tell application "System Events" to key code 36`},
			screenshot: func(p string) []string {
				return []string{"screencapture", "-x", p}
			},
		}, nil
	case "linux":
		return keys{
			open:     []string{"xdg-open"},
			activate: []string{"xdotool", "search", "--onlyvisible", "--class", "Telegram", "windowactivate", "--sync"},
			paste:    []string{"xdotool", "key", "--clearmodifiers", "ctrl+v"},
			enter:    []string{"xdotool", "key", "--clearmodifiers", "Return"},
			screenshot: func(p string) []string {
				return []string{"import", "-window", "root", p}
			},
		}, nil
	}
	return keys{}, fmt.Errorf("%w: %s", ErrUnsupportedOS, d.goos)
}

func (d *Desktop) run(ctx context.Context, argv []string, extra ...string) error {
	return d.runner.Run(ctx, argv[0], append(argv[1:len(argv):len(argv)], extra...)...)
}

func (d *Desktop) openChat(ctx context.Context, k keys, handle string) error {
	if err := d.run(ctx, k.open, telegram.ResolveURI(handle)); err != nil {
		return fmt.Errorf("open chat @%s: %w", handle, err)
	}
	if err := d.sleep(ctx, d.OpenDelay); err != nil {
		return err
	}
	if err := d.run(ctx, k.activate); err != nil {
		return fmt.Errorf("activate telegram: %w", err)
	}
	return nil
}

// Send pastes the draft paragraph by paragraph. The clipboard is restored afterwards.
func (d *Desktop) Send(ctx context.Context, ps models.PendingSend) error {
	k, err := d.keys()
	if err != nil {
		return err
	}
	chunks := SplitParagraphs(ps.MessageText)
	if len(chunks) == 0 {
		return errors.New("draft has no text")
	}

	if prev, err := d.clip.ReadAll(); err == nil {
		defer func() {
			if err := d.clip.WriteAll(prev); err != nil {
				d.log.Debugf("clipboard not restored: %v", err)
			}
		}()
	}

	if err := d.openChat(ctx, k, ps.TelegramHandle); err != nil {
		return err
	}
	for i, chunk := range chunks {
		if i > 0 {
			if err := d.sleep(ctx, browser.Jitter(d.ChunkDelay, d.ChunkDelay*3/2)); err != nil {
				return err
			}
		}
		if err := d.clip.WriteAll(chunk); err != nil {
			return fmt.Errorf("clipboard write: %w", err)
		}
		if err := d.run(ctx, k.paste); err != nil {
			return fmt.Errorf("paste chunk %d: %w", i+1, err)
		}
		if err := d.run(ctx, k.enter); err != nil {
			return fmt.Errorf("send chunk %d: %w", i+1, err)
		}
	}
	d.log.Debugf("sent %d chunks to @%s", len(chunks), ps.TelegramHandle)
	return nil
}

// Capture opens the chat and screenshots it. The server turns the image into text.
func (d *Desktop) Capture(ctx context.Context, req models.CaptureRequest) (models.CaptureResult, error) {
	k, err := d.keys()
	if err != nil {
		return models.CaptureResult{}, err
	}
	if err := d.openChat(ctx, k, req.TelegramHandle); err != nil {
		return models.CaptureResult{}, err
	}

	path := filepath.Join(d.tmpDir, fmt.Sprintf("capture-%s.png", req.ID))
	defer os.Remove(path)
	if err := d.run(ctx, k.screenshot(path)); err != nil {
		return models.CaptureResult{}, fmt.Errorf("screenshot: %w", err)
	}
	png, err := os.ReadFile(path)
	if err != nil {
		return models.CaptureResult{}, fmt.Errorf("read screenshot: %w", err)
	}
	return models.CaptureResult{Screenshot: png}, nil
}
