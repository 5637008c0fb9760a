package browser

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go-outreach-automation/internal/models"

	"go.uber.org/zap"
)

var (
	cloudArgs = []string{
		"--no-sandbox",
		"--disable-setuid-sandbox",
		"--disable-dev-shm-usage",
		"--disable-gpu",
		"--no-zygote",
	}
	localArgs = []string{
		"--disable-blink-features=AutomationControlled",
	}
)

type Config struct {
	// Cloud forces headless mode with the minimal argument set and requires a system
	// executable.
	Cloud          bool
	Headless       bool
	ExecutablePath string
	ProfileDir     string
	CookiesPath    string
	// RecycleAfter is the operation count after which ShouldRecycle reports true.
	RecycleAfter   int
	RetryDelay     time.Duration
	LaunchTimeout  time.Duration
	AcceptLanguage string
	UserAgents     []string
}

func (c *Config) defaults() {
	if c.RecycleAfter <= 0 {
		c.RecycleAfter = 50
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.LaunchTimeout <= 0 {
		c.LaunchTimeout = 60 * time.Second
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = "en-US,en;q=0.9"
	}
	if c.Cloud {
		c.Headless = true
	}
}

// Manager owns the one browser process shared by validators and the discoverer. Callers
// borrow tabs through leases and must release every lease they take.
type Manager struct {
	cfg      Config
	launcher Launcher
	finder   *ExecutableFinder
	killer   ProcessKiller
	sleep    SleepFunc
	log      *zap.SugaredLogger

	mu        sync.Mutex
	handle    Handle
	userAgent string
	ops       int
	active    int
	launches  int
	closed    bool
}

type Option func(*Manager)

func WithExecutableFinder(f *ExecutableFinder) Option { return func(m *Manager) { m.finder = f } }

func WithProcessKiller(k ProcessKiller) Option { return func(m *Manager) { m.killer = k } }

func WithSleep(s SleepFunc) Option { return func(m *Manager) { m.sleep = s } }

func NewManager(cfg Config, launcher Launcher, log *zap.SugaredLogger, opts ...Option) *Manager {
	cfg.defaults()
	m := &Manager{
		cfg:      cfg,
		launcher: launcher,
		finder:   NewExecutableFinder(),
		killer:   NewProcessKiller(),
		sleep:    Sleep,
		log:      log,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Handle returns the live browser, launching one if there is none or the previous one
// disconnected.
func (m *Manager) Handle(ctx context.Context) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handleLocked(ctx)
}

func (m *Manager) handleLocked(ctx context.Context) (Handle, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if m.handle != nil {
		if m.handle.IsConnected() {
			return m.handle, nil
		}
		m.log.Warn("⚠️ Browser disconnected, relaunching")
		m.handle = nil
	}
	h, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}
	m.handle = h
	return h, nil
}

func (m *Manager) launchOptions(ctx context.Context) (LaunchOptions, []string, error) {
	opts := LaunchOptions{
		Headless:       m.cfg.Headless,
		ExecutablePath: m.cfg.ExecutablePath,
		UserAgent:      randomUserAgent(m.cfg.UserAgents),
		Viewport:       randomViewport(),
		Timeout:        m.cfg.LaunchTimeout,
	}
	if !m.cfg.Cloud {
		opts.ProfileDir = m.cfg.ProfileDir
		opts.Args = append([]string(nil), localArgs...)
		return opts, nil, nil
	}

	opts.Headless = true
	opts.Args = append([]string(nil), cloudArgs...)
	if opts.ExecutablePath != "" {
		return opts, []string{opts.ExecutablePath}, nil
	}
	path, tried, err := m.finder.Find(ctx)
	if err != nil {
		return opts, tried, err
	}
	opts.ExecutablePath = path
	return opts, tried, nil
}

// prepareProfile removes stale Singleton* locks and kills processes still holding the
// profile. A crashed Chromium otherwise blocks every later launch.
func (m *Manager) prepareProfile(ctx context.Context, dir string) {
	if dir == "" {
		return
	}
	if err := m.killer.KillOrphans(ctx, dir); err != nil {
		m.log.Debugf("orphan kill for %s: %v", dir, err)
	}
	if err := m.killer.ClearLocks(dir); err != nil {
		m.log.Warnf("⚠️ Could not clear profile locks in %s: %v", dir, err)
	}
}

func (m *Manager) launch(ctx context.Context) (Handle, error) {
	opts, tried, err := m.launchOptions(ctx)
	if err != nil {
		m.log.Errorf("❌ No browser executable found (cloud=%v). Tried: %v", m.cfg.Cloud, tried)
		return nil, &LaunchError{Cloud: m.cfg.Cloud, PathsTried: tried, Err: err}
	}

	for attempt := 1; ; attempt++ {
		m.prepareProfile(ctx, opts.ProfileDir)
		m.launches++
		m.log.Infof("🚀 Launching browser (attempt %d, headless=%v, cloud=%v)", attempt, opts.Headless, m.cfg.Cloud)
		h, err := m.launcher.Launch(ctx, opts)
		if err == nil {
			m.userAgent = opts.UserAgent
			h.OnDisconnected(func() { m.log.Warn("⚠️ Browser process disconnected") })
			m.loadCookies(h)
			return h, nil
		}
		if errors.Is(err, ErrProfileInUse) && attempt == 1 {
			m.log.Warnf("⚠️ Profile in use, cleaning up and retrying in %s", m.cfg.RetryDelay)
			if serr := m.sleep(ctx, m.cfg.RetryDelay); serr != nil {
				return nil, &LaunchError{Attempts: attempt, Cloud: m.cfg.Cloud, PathsTried: tried, Err: serr}
			}
			continue
		}
		m.log.Errorf("❌ Browser launch failed: %v", err)
		return nil, &LaunchError{Attempts: attempt, Cloud: m.cfg.Cloud, PathsTried: tried, Err: err}
	}
}

func (m *Manager) loadCookies(h Handle) {
	if m.cfg.CookiesPath == "" {
		return
	}
	cookies, err := LoadCookies(m.cfg.CookiesPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.log.Warnf("⚠️ Failed to load cookies: %v", err)
		}
		return
	}
	if err := h.AddCookies(cookies); err != nil {
		m.log.Warnf("⚠️ Failed to add cookies: %v", err)
		return
	}
	m.log.Infof("🍪 Loaded %d cookies", len(cookies))
}

// Lease is one tab owned by a single operation.
type Lease struct {
	Page Page
	m    *Manager
	once sync.Once
}

// NewLease opens a tab with a randomized viewport and browser-like headers. The lease is
// counted from the moment the handle is taken, so a recycle cannot close the browser
// under a tab that is still opening.
func (m *Manager) NewLease(ctx context.Context) (*Lease, error) {
	m.mu.Lock()
	h, err := m.handleLocked(ctx)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.active++
	m.mu.Unlock()

	page, err := m.openPage(h)
	if err != nil {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	m.ops++
	m.mu.Unlock()
	return &Lease{Page: page, m: m}, nil
}

func (m *Manager) openPage(h Handle) (Page, error) {
	page, err := h.NewPage()
	if err != nil {
		return nil, err
	}
	vp := randomViewport()
	if err := page.SetViewport(vp.Width, vp.Height); err != nil {
		_ = page.Close()
		return nil, err
	}
	if err := page.SetExtraHeaders(map[string]string{"Accept-Language": m.cfg.AcceptLanguage}); err != nil {
		_ = page.Close()
		return nil, err
	}
	return page, nil
}

// Release closes the tab if it is still open. Calling it more than once is safe.
func (l *Lease) Release() {
	l.once.Do(func() {
		if !l.Page.IsClosed() {
			if err := l.Page.Close(); err != nil {
				l.m.log.Debugf("page close: %v", err)
			}
		}
		l.m.mu.Lock()
		l.m.active--
		l.m.mu.Unlock()
	})
}

func (m *Manager) ShouldRecycle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops >= m.cfg.RecycleAfter
}

// Restart closes the browser and launches a fresh one. The operation counter starts over.
func (m *Manager) Restart(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restartLocked(ctx)
}

func (m *Manager) restartLocked(ctx context.Context) error {
	m.log.Infof("♻️ Restarting browser after %d operations", m.ops)
	m.closeHandleLocked()
	m.ops = 0
	_, err := m.handleLocked(ctx)
	return err
}

// RecycleIfNeeded restarts only when the threshold is crossed and no lease is out, so a
// concurrent operation never loses its tab.
func (m *Manager) RecycleIfNeeded(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ops < m.cfg.RecycleAfter {
		return false, nil
	}
	if m.active > 0 {
		m.log.Debug("recycle due but leases are active, deferring")
		return false, nil
	}
	return true, m.restartLocked(ctx)
}

func (m *Manager) closeHandleLocked() {
	if m.handle == nil {
		return
	}
	if err := m.handle.Close(); err != nil {
		m.log.Debugf("browser close: %v", err)
	}
	m.handle = nil
	m.prepareProfile(context.Background(), m.profileDir())
}

func (m *Manager) profileDir() string {
	if m.cfg.Cloud {
		return ""
	}
	return m.cfg.ProfileDir
}

// Close shuts the browser down for good. Later calls to Handle fail with ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.closeHandleLocked()
	if s, ok := m.launcher.(interface{ Stop() error }); ok {
		return s.Stop()
	}
	return nil
}

type Stats struct {
	Connected    bool   `json:"connected"`
	ActiveLeases int    `json:"active_leases"`
	Operations   int    `json:"operations"`
	Launches     int    `json:"launches"`
	UserAgent    string `json:"user_agent,omitempty"`
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Connected:    m.handle != nil && m.handle.IsConnected(),
		ActiveLeases: m.active,
		Operations:   m.ops,
		Launches:     m.launches,
		UserAgent:    m.userAgent,
	}
}

// Cookies reads the current session cookies, launching the browser if needed.
func (m *Manager) Cookies(ctx context.Context, urls ...string) ([]models.Cookie, error) {
	h, err := m.Handle(ctx)
	if err != nil {
		return nil, err
	}
	return h.Cookies(urls...)
}

// AddCookies pushes cookies into the running browser. With no browser running it does
// nothing; the next launch picks them up from the cookie file.
func (m *Manager) AddCookies(cookies []models.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil || !m.handle.IsConnected() {
		return nil
	}
	return m.handle.AddCookies(cookies)
}
