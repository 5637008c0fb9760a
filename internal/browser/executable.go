package browser

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

var executableNames = []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"}

var commonExecutablePaths = []string{
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/snap/bin/chromium",
	"/opt/google/chrome/chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// ExecutableFinder locates a system Chromium. Every lookup is injectable so the search
// order can be tested without touching the host.
type ExecutableFinder struct {
	Getenv      func(string) string
	LookPath    func(string) (string, error)
	Stat        func(string) (os.FileInfo, error)
	StoreSearch func(ctx context.Context) ([]string, error)

	StoreTimeout time.Duration
	CommonPaths  []string
}

func NewExecutableFinder() *ExecutableFinder {
	return &ExecutableFinder{
		Getenv:       os.Getenv,
		LookPath:     exec.LookPath,
		Stat:         os.Stat,
		StoreSearch:  searchNixStore,
		StoreTimeout: 5 * time.Second,
		CommonPaths:  commonExecutablePaths,
	}
}

// Find returns the first executable that exists, along with every candidate it looked at.
// The tried list is returned on failure too, for the fatal launch diagnostic.
func (f *ExecutableFinder) Find(ctx context.Context) (string, []string, error) {
	var tried []string
	exists := func(p string) bool {
		if p == "" {
			return false
		}
		tried = append(tried, p)
		info, err := f.Stat(p)
		return err == nil && !info.IsDir()
	}

	for _, env := range []string{"BROWSER_EXECUTABLE_PATH", "CHROME_PATH"} {
		if p := f.Getenv(env); exists(p) {
			return p, tried, nil
		}
	}

	for _, name := range executableNames {
		tried = append(tried, "which "+name)
		if p, err := f.LookPath(name); err == nil && p != "" {
			return p, tried, nil
		}
	}

	if f.StoreSearch != nil {
		sctx, cancel := context.WithTimeout(ctx, f.StoreTimeout)
		found, err := f.StoreSearch(sctx)
		cancel()
		if err != nil {
			tried = append(tried, fmt.Sprintf("/nix/store (%v)", err))
		}
		for _, p := range found {
			if exists(p) {
				return p, tried, nil
			}
		}
	}

	for _, p := range f.CommonPaths {
		if exists(p) {
			return p, tried, nil
		}
	}
	return "", tried, ErrExecutableNotFound
}

func searchNixStore(ctx context.Context) ([]string, error) {
	if _, err := os.Stat("/nix/store"); err != nil {
		return nil, nil
	}
	out, err := exec.CommandContext(ctx, "find", "/nix/store", "-maxdepth", "3", "-path", "*/bin/chromium*", "-type", "f").Output()
	if err != nil && len(out) == 0 {
		return nil, err
	}
	var paths []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}
