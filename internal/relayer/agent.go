package relayer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go-outreach-automation/internal/models"

	"go.uber.org/zap"
)

// Sender delivers one approved draft through the local messaging app.
type Sender interface {
	Send(ctx context.Context, ps models.PendingSend) error
}

// Capturer reads the current conversation with a contact.
type Capturer interface {
	Capture(ctx context.Context, req models.CaptureRequest) (models.CaptureResult, error)
}

// Authenticator runs an interactive login and returns the session cookies.
type Authenticator interface {
	Authenticate(ctx context.Context, req models.AuthRequest) ([]models.Cookie, error)
}

// Alerter is told when the server has been unreachable for a while.
type Alerter interface {
	Alert(text string) error
}

type Options struct {
	PollInterval time.Duration
	// MaxAttempts is the local delivery budget per draft for this process.
	MaxAttempts int
	// FailureAlert is the number of consecutive server errors that raises an alert.
	FailureAlert int
}

// Agent polls for work and handles one item at a time. OS-level UI automation cannot run
// two sends at once on one desktop, so a tick that finds the agent busy does nothing.
type Agent struct {
	api      API
	sender   Sender
	capturer Capturer
	auth     Authenticator
	alerter  Alerter
	opts     Options
	log      *zap.SugaredLogger

	busy atomic.Bool

	mu          sync.Mutex
	attempts    map[string]int
	processed   map[string]bool
	consecutive int
}

func NewAgent(api API, sender Sender, capturer Capturer, auth Authenticator, opts Options, log *zap.SugaredLogger) *Agent {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 2
	}
	if opts.FailureAlert <= 0 {
		opts.FailureAlert = 5
	}
	return &Agent{
		api:       api,
		sender:    sender,
		capturer:  capturer,
		auth:      auth,
		opts:      opts,
		log:       log,
		attempts:  make(map[string]int),
		processed: make(map[string]bool),
	}
}

// SetAlerter adds an out-of-band channel for the consecutive failure alert.
func (a *Agent) SetAlerter(al Alerter) { a.alerter = al }

// Run polls until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Infof("🛰️ Relayer polling every %s", a.opts.PollInterval)
	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for {
		a.Tick(ctx)
		select {
		case <-ctx.Done():
			a.log.Info("Relayer stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one poll cycle: pending sends first, then capture requests, then auth
// requests. It reports whether it did any work.
func (a *Agent) Tick(ctx context.Context) bool {
	if !a.busy.CompareAndSwap(false, true) {
		a.log.Debug("Relayer busy, skipping poll")
		return false
	}
	defer a.busy.Store(false)

	sends, err := a.api.PendingSends(ctx)
	if a.serverResult(err) {
		return false
	}
	if sends = a.unprocessed(sends); len(sends) > 0 {
		for _, ps := range sends {
			if ctx.Err() != nil {
				break
			}
			a.deliver(ctx, ps)
		}
		return true
	}

	captures, err := a.api.CaptureRequests(ctx)
	if a.serverResult(err) {
		return false
	}
	if len(captures) > 0 {
		for _, req := range captures {
			a.capture(ctx, req)
		}
		return true
	}

	auths, err := a.api.AuthRequests(ctx)
	if a.serverResult(err) {
		return false
	}
	for _, req := range auths {
		a.authenticate(ctx, req)
	}
	return len(auths) > 0
}

// serverResult tracks consecutive server failures and reports whether err was one.
func (a *Agent) serverResult(err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err == nil {
		a.consecutive = 0
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	a.consecutive++
	a.log.Warnf("⚠️ Relayer request failed (%d in a row): %v", a.consecutive, err)
	if a.consecutive%a.opts.FailureAlert == 0 {
		msg := fmt.Sprintf("relayer has failed %d requests in a row, check the server URL, API key and network: %v", a.consecutive, err)
		a.log.Error("🚨 " + msg)
		if a.alerter != nil {
			if aerr := a.alerter.Alert(msg); aerr != nil {
				a.log.Warnf("Alert not sent: %v", aerr)
			}
		}
	}
	return true
}

// ConsecutiveFailures is the current run of failed server requests.
func (a *Agent) ConsecutiveFailures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.consecutive
}

func (a *Agent) unprocessed(sends []models.PendingSend) []models.PendingSend {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := sends[:0:0]
	for _, ps := range sends {
		if !a.processed[ps.ID] {
			out = append(out, ps)
		}
	}
	return out
}

// Attempts is how many local deliveries of draft id have failed.
func (a *Agent) Attempts(id string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempts[id]
}

func (a *Agent) deliver(ctx context.Context, ps models.PendingSend) {
	a.log.Infof("📨 Sending draft %s to @%s (%s)", ps.ID, ps.TelegramHandle, ps.ContactName)
	sendErr := a.sender.Send(ctx, ps)

	if sendErr == nil {
		// Delivered. Never send this draft again, even if the report below is lost.
		a.mu.Lock()
		a.processed[ps.ID] = true
		a.mu.Unlock()
		a.serverResult(a.api.MarkPrepared(ctx, ps.ID))
		a.log.Infof("✅ Draft %s delivered", ps.ID)
		return
	}

	a.mu.Lock()
	a.attempts[ps.ID]++
	n := a.attempts[ps.ID]
	exhausted := n >= a.opts.MaxAttempts
	if exhausted {
		a.processed[ps.ID] = true
	}
	a.mu.Unlock()

	if exhausted {
		a.log.Errorf("❌ Draft %s failed %d times, giving up until restart: %v", ps.ID, n, sendErr)
		return
	}
	a.log.Warnf("⚠️ Draft %s attempt %d/%d failed: %v", ps.ID, n, a.opts.MaxAttempts, sendErr)
	a.serverResult(a.api.MarkFailed(ctx, ps.ID, sendErr.Error()))
}

func (a *Agent) capture(ctx context.Context, req models.CaptureRequest) {
	a.log.Infof("📸 Capturing conversation with @%s", req.TelegramHandle)
	res, err := a.capturer.Capture(ctx, req)
	if err != nil {
		a.log.Warnf("⚠️ Capture %s failed: %v", req.ID, err)
		res = models.CaptureResult{Error: err.Error()}
	}
	a.serverResult(a.api.CompleteCapture(ctx, req.ID, res))
}

func (a *Agent) authenticate(ctx context.Context, req models.AuthRequest) {
	a.log.Infof("🔐 Starting %s login for request %s", req.Platform, req.ID)
	cookies, err := a.auth.Authenticate(ctx, req)
	res := models.AuthResult{Cookies: cookies}
	if err != nil {
		a.log.Warnf("⚠️ Login %s failed: %v", req.ID, err)
		res = models.AuthResult{Error: err.Error()}
	}
	a.serverResult(a.api.CompleteAuth(ctx, req.ID, res))
}
