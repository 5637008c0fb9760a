package relayer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/browser/browsertest"
	"go-outreach-automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthManager(t *testing.T, cookiesPath ...string) (*browser.Manager, *browsertest.Launcher) {
	t.Helper()
	var cfg browser.Config
	if len(cookiesPath) > 0 {
		cfg.CookiesPath = cookiesPath[0]
	}
	l := browsertest.NewLauncher(nil)
	m := browser.NewManager(cfg, l, zap.NewNop().Sugar(),
		browser.WithProcessKiller(&browsertest.Killer{}),
		browser.WithSleep(browser.NoSleep),
	)
	t.Cleanup(func() { _ = m.Close() })
	return m, l
}

func TestBrowserAuthenticatorWaitsForLogin(t *testing.T) {
	m, l := newAuthManager(t)
	path := filepath.Join(t.TempDir(), "x_cookies.json")
	a := NewBrowserAuthenticator(m, path, zap.NewNop().Sugar())
	polls := 0
	a.Sleep = func(context.Context, time.Duration) error {
		polls++
		if polls == 2 {
			return l.Current().AddCookies([]models.Cookie{{Name: "auth_token", Value: "secret", Domain: ".x.com"}})
		}
		return nil
	}

	cookies, err := a.Authenticate(context.Background(), models.AuthRequest{ID: "a1", Platform: "x"})

	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.Equal(t, 2, polls)
	assert.Equal(t, 1, l.Site.Visits(xLoginURL))

	saved, err := browser.LoadCookies(path)
	require.NoError(t, err)
	assert.Equal(t, cookies, saved)
	assert.Zero(t, m.Stats().ActiveLeases, "lease is released")
}

func TestBrowserAuthenticatorIgnoresExpiredSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x_cookies.json")
	require.NoError(t, browser.SaveCookies(path, []models.Cookie{{Name: "auth_token", Value: "expired", Domain: ".x.com", Path: "/"}}))
	m, l := newAuthManager(t, path)
	a := NewBrowserAuthenticator(m, path, zap.NewNop().Sugar())
	polls := 0
	a.Sleep = func(context.Context, time.Duration) error {
		polls++
		if polls == 3 {
			return l.Current().AddCookies([]models.Cookie{{Name: "auth_token", Value: "fresh", Domain: ".x.com", Path: "/"}})
		}
		return nil
	}

	cookies, err := a.Authenticate(context.Background(), models.AuthRequest{ID: "a1", Platform: "x"})

	require.NoError(t, err)
	assert.Equal(t, 3, polls, "the expired token does not end the wait")
	require.Len(t, cookies, 1)
	assert.Equal(t, "fresh", cookies[0].Value)

	saved, err := browser.LoadCookies(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved[0].Value)
}

func TestBrowserAuthenticatorTimesOut(t *testing.T) {
	m, _ := newAuthManager(t)
	a := NewBrowserAuthenticator(m, "", zap.NewNop().Sugar())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a.Now = func() time.Time { return now }
	a.Sleep = func(_ context.Context, d time.Duration) error {
		now = now.Add(d)
		return nil
	}

	_, err := a.Authenticate(context.Background(), models.AuthRequest{Platform: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not completed")
}

func TestBrowserAuthenticatorRejectsOtherPlatforms(t *testing.T) {
	m, l := newAuthManager(t)
	a := NewBrowserAuthenticator(m, "", zap.NewNop().Sugar())

	_, err := a.Authenticate(context.Background(), models.AuthRequest{Platform: "linkedin"})

	assert.Error(t, err)
	assert.Zero(t, l.Launches())
}
