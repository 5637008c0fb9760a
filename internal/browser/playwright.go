package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go-outreach-automation/internal/models"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher launches Chromium through playwright. The driver is started lazily
// on the first launch and reused by later ones.
type PlaywrightLauncher struct {
	mu sync.Mutex
	pw *playwright.Playwright
}

func NewPlaywright() *PlaywrightLauncher {
	return &PlaywrightLauncher{}
}

func (l *PlaywrightLauncher) driver() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw != nil {
		return l.pw, nil
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	l.pw = pw
	return pw, nil
}

func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := l.driver()
	if err != nil {
		return nil, err
	}

	timeout := playwright.Float(float64(opts.Timeout.Milliseconds()))
	viewport := &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height}
	var execPath *string
	if opts.ExecutablePath != "" {
		execPath = playwright.String(opts.ExecutablePath)
	}

	if opts.ProfileDir != "" {
		bctx, err := pw.Chromium.LaunchPersistentContext(opts.ProfileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:       playwright.Bool(opts.Headless),
			ExecutablePath: execPath,
			Args:           opts.Args,
			UserAgent:      playwright.String(opts.UserAgent),
			Viewport:       viewport,
			Timeout:        timeout,
		})
		if err != nil {
			return nil, classifyLaunchError(err)
		}
		h := &pwHandle{ctx: bctx}
		bctx.OnClose(func(playwright.BrowserContext) { h.disconnect() })
		return h, nil
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless:       playwright.Bool(opts.Headless),
		ExecutablePath: execPath,
		Args:           opts.Args,
		Timeout:        timeout,
	})
	if err != nil {
		return nil, classifyLaunchError(err)
	}
	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(opts.UserAgent),
		Viewport:  viewport,
		Locale:    playwright.String("en-US"),
	})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}
	h := &pwHandle{ctx: bctx, browser: b}
	b.OnDisconnected(func(playwright.Browser) { h.disconnect() })
	return h, nil
}

// Stop shuts the playwright driver down.
func (l *PlaywrightLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	return err
}

// classifyLaunchError maps Chromium's profile-lock failures onto ErrProfileInUse. This is
// the only place that looks at launch error text.
func classifyLaunchError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, sig := range []string{"processsingleton", "singletonlock", "profile appears to be in use", "user data directory is already in use"} {
		if strings.Contains(msg, sig) {
			return fmt.Errorf("%w: %v", ErrProfileInUse, err)
		}
	}
	return err
}

type pwHandle struct {
	ctx     playwright.BrowserContext
	browser playwright.Browser // nil for persistent contexts
	closed  atomic.Bool

	mu        sync.Mutex
	listeners []func()
}

func (h *pwHandle) NewPage() (Page, error) {
	p, err := h.ctx.NewPage()
	if err != nil {
		return nil, err
	}
	return &pwPage{page: p}, nil
}

func (h *pwHandle) IsConnected() bool {
	if h.closed.Load() {
		return false
	}
	if h.browser != nil {
		return h.browser.IsConnected()
	}
	return true
}

func (h *pwHandle) OnDisconnected(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

func (h *pwHandle) disconnect() {
	if h.closed.Swap(true) {
		return
	}
	h.mu.Lock()
	listeners := append([]func(){}, h.listeners...)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (h *pwHandle) Cookies(urls ...string) ([]models.Cookie, error) {
	cookies, err := h.ctx.Cookies(urls...)
	if err != nil {
		return nil, err
	}
	out := make([]models.Cookie, len(cookies))
	for i, c := range cookies {
		out[i] = FromPlaywright(c)
	}
	return out, nil
}

func (h *pwHandle) AddCookies(cookies []models.Cookie) error {
	pwCookies := make([]playwright.OptionalCookie, len(cookies))
	for i, c := range cookies {
		pwCookies[i] = ToPlaywright(c)
	}
	return h.ctx.AddCookies(pwCookies)
}

func (h *pwHandle) Close() error {
	var err error
	if h.browser != nil {
		err = h.browser.Close()
	} else {
		err = h.ctx.Close()
	}
	h.disconnect()
	return err
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

func (p *pwPage) Content() (string, error) { return p.page.Content() }

func (p *pwPage) URL() string { return p.page.URL() }

func (p *pwPage) SetViewport(width, height int) error {
	return p.page.SetViewportSize(width, height)
}

func (p *pwPage) SetExtraHeaders(headers map[string]string) error {
	return p.page.SetExtraHTTPHeaders(headers)
}

func (p *pwPage) Scroll(pixels int) error {
	return p.page.Mouse().Wheel(0, float64(pixels))
}

func (p *pwPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *pwPage) Close() error { return p.page.Close() }

func (p *pwPage) IsClosed() bool { return p.page.IsClosed() }
