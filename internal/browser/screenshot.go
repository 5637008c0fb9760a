package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ScreenshotDebugger saves full-page captures when a scrape hits a blocked state.
type ScreenshotDebugger struct {
	outputDir string
	log       *zap.SugaredLogger
}

func NewScreenshotDebugger(dir string, log *zap.SugaredLogger) *ScreenshotDebugger {
	if dir == "" {
		dir = filepath.Join(".", "logs", "screenshots")
	}
	return &ScreenshotDebugger{outputDir: dir, log: log}
}

func (s *ScreenshotDebugger) Capture(page Page, name, message string) (string, error) {
	if s == nil {
		return "", nil
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.png", name, time.Now().Format("2006-01-02_15-04-05")))
	s.log.Infof("📸 %s", message)
	if err := page.Screenshot(path); err != nil {
		s.log.Warnf("⚠️ Failed to capture screenshot: %v", err)
		return "", err
	}
	s.log.Infof("   Screenshot saved: %s", path)
	return path, nil
}
