// Package browsertest provides an in-memory browser that serves captured HTML by URL.
package browsertest

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/models"
)

// Response is what a URL serves. FinalURL simulates a redirect (for example to a login
// page).
type Response struct {
	HTML     string
	FinalURL string
	Err      error
	Delay    time.Duration
}

// Site maps URLs to responses. Unknown URLs serve Default.
type Site struct {
	mu      sync.Mutex
	pages   map[string]Response
	visits  map[string]int
	Default Response
}

func NewSite() *Site {
	return &Site{pages: make(map[string]Response), visits: make(map[string]int)}
}

func (s *Site) Serve(url string, r Response) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = r
	return s
}

func (s *Site) HTML(url, html string) *Site {
	return s.Serve(url, Response{HTML: html})
}

func (s *Site) Visits(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visits[url]
}

func (s *Site) lookup(url string) Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits[url]++
	if r, ok := s.pages[url]; ok {
		return r
	}
	return s.Default
}

// Launcher hands out fake handles. Errs is consumed one entry per launch; a nil entry
// (or an exhausted slice) means success.
type Launcher struct {
	Site *Site

	mu       sync.Mutex
	Errs     []error
	launches int
	last     browser.LaunchOptions
	handles  []*Handle
}

func NewLauncher(site *Site) *Launcher {
	if site == nil {
		site = NewSite()
	}
	return &Launcher{Site: site}
}

func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	l.last = opts
	if len(l.Errs) > 0 {
		err := l.Errs[0]
		l.Errs = l.Errs[1:]
		if err != nil {
			return nil, err
		}
	}
	h := &Handle{site: l.Site}
	h.connected.Store(true)
	l.handles = append(l.handles, h)
	return h, nil
}

func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

func (l *Launcher) LastOptions() browser.LaunchOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Current returns the most recently launched handle.
func (l *Launcher) Current() *Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.handles) == 0 {
		return nil
	}
	return l.handles[len(l.handles)-1]
}

type Handle struct {
	site      *Site
	connected atomic.Bool

	mu        sync.Mutex
	pages     []*Page
	cookies   []models.Cookie
	listeners []func()
	closes    int
	onNewPage func()
}

// OnNewPage runs fn at the start of every later NewPage call, before the tab exists.
func (h *Handle) OnNewPage(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onNewPage = fn
}

func (h *Handle) NewPage() (browser.Page, error) {
	h.mu.Lock()
	hook := h.onNewPage
	h.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !h.connected.Load() {
		return nil, errors.New("browser has been closed")
	}
	p := &Page{site: h.site}
	h.mu.Lock()
	h.pages = append(h.pages, p)
	h.mu.Unlock()
	return p, nil
}

func (h *Handle) IsConnected() bool { return h.connected.Load() }

func (h *Handle) OnDisconnected(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Crash simulates the browser process dying.
func (h *Handle) Crash() {
	if !h.connected.Swap(false) {
		return
	}
	h.mu.Lock()
	listeners := append([]func(){}, h.listeners...)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (h *Handle) Cookies(...string) ([]models.Cookie, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.Cookie(nil), h.cookies...), nil
}

// AddCookies replaces cookies with the same name, domain and path, as a browser does.
func (h *Handle) AddCookies(cookies []models.Cookie) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range cookies {
		i := slices.IndexFunc(h.cookies, func(o models.Cookie) bool {
			return o.Name == c.Name && o.Domain == c.Domain && o.Path == c.Path
		})
		if i >= 0 {
			h.cookies[i] = c
			continue
		}
		h.cookies = append(h.cookies, c)
	}
	return nil
}

func (h *Handle) Close() error {
	h.mu.Lock()
	h.closes++
	h.mu.Unlock()
	h.Crash()
	return nil
}

func (h *Handle) Pages() []*Page {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Page(nil), h.pages...)
}

type Page struct {
	site *Site

	mu       sync.Mutex
	url      string
	html     string
	viewport browser.Viewport
	headers  map[string]string
	scrolled int
	shots    []string
	closed   bool
	closes   int
}

func (p *Page) Goto(url string, timeout time.Duration) error {
	r := p.site.lookup(url)
	if r.Delay > 0 {
		if r.Delay > timeout && timeout > 0 {
			time.Sleep(timeout)
			return errors.New("Timeout exceeded while navigating to " + url)
		}
		time.Sleep(r.Delay)
	}
	if r.Err != nil {
		return r.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	if r.FinalURL != "" {
		p.url = r.FinalURL
	}
	p.html = r.HTML
	return nil
}

func (p *Page) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) SetViewport(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewport = browser.Viewport{Width: width, Height: height}
	return nil
}

func (p *Page) SetExtraHeaders(headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.headers = headers
	return nil
}

func (p *Page) Scroll(pixels int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolled += pixels
	return nil
}

func (p *Page) Screenshot(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shots = append(p.shots, path)
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	p.closed = true
	return nil
}

func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func (p *Page) Headers() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.headers
}

func (p *Page) Viewport() browser.Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport
}

// Killer records cleanup calls instead of touching processes.
type Killer struct {
	mu          sync.Mutex
	ClearCalls  int
	KillCalls   int
	LastProfile string
}

func (k *Killer) ClearLocks(profileDir string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ClearCalls++
	k.LastProfile = profileDir
	return nil
}

func (k *Killer) KillOrphans(_ context.Context, profileDir string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.KillCalls++
	k.LastProfile = profileDir
	return nil
}

func (k *Killer) Calls() (clear, kill int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ClearCalls, k.KillCalls
}
