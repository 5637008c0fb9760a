package relayer

import (
	"context"
	"fmt"
	"time"

	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/models"

	"go.uber.org/zap"
)

const (
	xLoginURL    = "https://x.com/i/flow/login"
	xAuthCookie  = "auth_token"
	loginTimeout = 5 * time.Minute
)

// SessionBrowser is the browser manager as the login flow uses it.
type SessionBrowser interface {
	browser.Leaser
	Cookies(ctx context.Context, urls ...string) ([]models.Cookie, error)
}

// BrowserAuthenticator opens the X login page in a visible browser and waits for the
// employee to sign in. The session cookies are saved locally and returned for upload.
type BrowserAuthenticator struct {
	browser     SessionBrowser
	cookiesPath string
	log         *zap.SugaredLogger

	Timeout time.Duration
	Poll    time.Duration
	Sleep   browser.SleepFunc
	Now     func() time.Time
}

func NewBrowserAuthenticator(b SessionBrowser, cookiesPath string, log *zap.SugaredLogger) *BrowserAuthenticator {
	return &BrowserAuthenticator{
		browser:     b,
		cookiesPath: cookiesPath,
		log:         log,
		Timeout:     loginTimeout,
		Poll:        2 * time.Second,
		Sleep:       browser.Sleep,
		Now:         time.Now,
	}
}

func (a *BrowserAuthenticator) Authenticate(ctx context.Context, req models.AuthRequest) ([]models.Cookie, error) {
	if req.Platform != "" && req.Platform != "x" {
		return nil, fmt.Errorf("login for platform %q is not supported", req.Platform)
	}

	lease, err := a.browser.NewLease(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	defer lease.Release()

	// A re-auth usually means the saved session expired. Its token is already in the
	// browser, so only a different token counts as a fresh login.
	before, err := a.browser.Cookies(ctx, "https://x.com")
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	stale := cookieValue(before, xAuthCookie)

	if err := lease.Page.Goto(xLoginURL, 30*time.Second); err != nil {
		return nil, fmt.Errorf("open login page: %w", err)
	}
	a.log.Info("🔐 Waiting for the X login to finish in the browser window...")

	deadline := a.Now().Add(a.Timeout)
	for {
		cookies, err := a.browser.Cookies(ctx, "https://x.com")
		if err != nil {
			return nil, fmt.Errorf("read cookies: %w", err)
		}
		if v := cookieValue(cookies, xAuthCookie); v != "" && v != stale {
			if a.cookiesPath != "" {
				if err := browser.SaveCookies(a.cookiesPath, cookies); err != nil {
					a.log.Warnf("Cookies not saved locally: %v", err)
				}
			}
			a.log.Infof("✅ X login captured (%d cookies)", len(cookies))
			return cookies, nil
		}
		if !a.Now().Before(deadline) {
			return nil, fmt.Errorf("login not completed within %s", a.Timeout)
		}
		if err := a.Sleep(ctx, a.Poll); err != nil {
			return nil, err
		}
	}
}

func cookieValue(cookies []models.Cookie, name string) string {
	for _, c := range cookies {
		if c.Name == name && c.Value != "" {
			return c.Value
		}
	}
	return ""
}
