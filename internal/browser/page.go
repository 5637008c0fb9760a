package browser

import (
	"context"
	"time"

	"go-outreach-automation/internal/models"
)

// Page is one browser tab. It is the narrow surface the validators and the discoverer
// drive, so they can run against captured HTML in tests.
type Page interface {
	Goto(url string, timeout time.Duration) error
	Content() (string, error)
	URL() string
	SetViewport(width, height int) error
	SetExtraHeaders(headers map[string]string) error
	Scroll(pixels int) error
	Screenshot(path string) error
	Close() error
	IsClosed() bool
}

// Handle is a live browser process (or persistent context).
type Handle interface {
	NewPage() (Page, error)
	IsConnected() bool
	OnDisconnected(fn func())
	Cookies(urls ...string) ([]models.Cookie, error)
	AddCookies(cookies []models.Cookie) error
	Close() error
}

// LaunchOptions is the resolved launch configuration for one attempt.
type LaunchOptions struct {
	Headless       bool
	ExecutablePath string
	// ProfileDir enables a persistent profile so session cookies survive restarts.
	ProfileDir string
	Args       []string
	UserAgent  string
	Viewport   Viewport
	Timeout    time.Duration
}

type Viewport struct {
	Width  int
	Height int
}

// Launcher starts browsers.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Handle, error)
}

// Leaser hands out tabs. *Manager implements it.
type Leaser interface {
	NewLease(ctx context.Context) (*Lease, error)
}
