// Package workflow runs the discovery pipeline: search a company's handle on X, confirm
// candidates' Telegram accounts, and turn them into contacts and outbound drafts.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-outreach-automation/internal/ai"
	"go-outreach-automation/internal/apollo"
	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/database"
	"go-outreach-automation/internal/dedup"
	"go-outreach-automation/internal/filter"
	"go-outreach-automation/internal/metrics"
	"go-outreach-automation/internal/models"
	"go-outreach-automation/internal/reporter"
	"go-outreach-automation/internal/scraper"

	"go.uber.org/zap"
)

var ErrNoHandle = errors.New("a target id or an X handle is required")

// BatchValidator checks Telegram usernames, one result per input at the input's index.
type BatchValidator interface {
	ValidateBatch(ctx context.Context, usernames []string, maxConcurrent int) []models.ValidationResult
}

type MessageGenerator interface {
	GenerateOutbound(ctx context.Context, req ai.OutboundRequest) (string, error)
}

// Recycler is the part of the browser manager the engine pokes after a run.
type Recycler interface {
	RecycleIfNeeded(ctx context.Context) (bool, error)
}

// Previewer posts fresh drafts, and drafts that could not be written, somewhere a human
// will see them.
type Previewer interface {
	SendDraftPreview(c models.Contact, d models.Draft) error
	SendError(err error) error
}

type Deps struct {
	Store      database.Store
	Discoverer scraper.Discoverer
	Validator  BatchValidator
	Generator  MessageGenerator
	// Optional below.
	Recycler  Recycler
	Apollo    apollo.Searcher
	Reporter  reporter.Reporter
	Previewer Previewer
	Metrics   *metrics.Metrics
	Log       *zap.SugaredLogger
}

type Options struct {
	Cooldown      time.Duration
	MaxResults    int
	MaxConcurrent int
	CompanyDelay  time.Duration
	EmployeeID    string
}

type Engine struct {
	Deps
	opts     Options
	cooldown *Cooldown

	now   func() time.Time
	sleep browser.SleepFunc
}

func New(deps Deps, opts Options) *Engine {
	if opts.Cooldown == 0 {
		opts.Cooldown = 5 * time.Second
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 5
	}
	if opts.CompanyDelay == 0 {
		opts.CompanyDelay = 5 * time.Second
	}
	if opts.EmployeeID == "" {
		opts.EmployeeID = "default"
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if deps.Reporter == nil {
		deps.Reporter = reporter.LogReporter{Log: deps.Log}
	}
	return &Engine{
		Deps:     deps,
		opts:     opts,
		cooldown: NewCooldown(opts.Cooldown),
		now:      time.Now,
		sleep:    browser.Sleep,
	}
}

// SetClock replaces the clock and sleeper of the engine and its cooldown.
func (e *Engine) SetClock(now func() time.Time, sleep browser.SleepFunc) {
	e.now, e.sleep = now, sleep
	e.cooldown.now, e.cooldown.sleep = now, sleep
}

func (e *Engine) Cooldown() *Cooldown { return e.cooldown }

// Request names the company to research: an existing target, or an X handle.
type Request struct {
	TargetID   string `json:"target_id,omitempty"`
	Handle     string `json:"handle,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type DraftError struct {
	ContactID string `json:"contact_id"`
	Username  string `json:"username"`
	Error     string `json:"error"`
}

// Result counts validation outcomes before de-duplication. Contacts and Drafts hold
// only what this run created.
type Result struct {
	TargetID      string           `json:"target_id"`
	Company       string           `json:"company"`
	Handle        string           `json:"handle"`
	Offset        int              `json:"offset"`
	StartedAt     time.Time        `json:"started_at"`
	Candidates    int              `json:"candidates"`
	Valid         int              `json:"valid"`
	Invalid       int              `json:"invalid"`
	Indeterminate []string         `json:"indeterminate"`
	Duplicates    int              `json:"duplicates"`
	Contacts      []models.Contact `json:"contacts"`
	Drafts        []models.Draft   `json:"drafts"`
	DraftErrors   []DraftError     `json:"draft_errors,omitempty"`
}

func (r *Result) summary(err error) reporter.RunSummary {
	return reporter.RunSummary{
		Company:       r.Company,
		Handle:        r.Handle,
		Candidates:    r.Candidates,
		Valid:         r.Valid,
		Invalid:       r.Invalid,
		Indeterminate: len(r.Indeterminate),
		Duplicates:    r.Duplicates,
		Drafts:        len(r.Drafts),
		DraftErrors:   len(r.DraftErrors),
		Err:           err,
	}
}

// Run executes one discovery for one company. The returned result is never nil, and on
// error it still lists whatever was persisted before the failure.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Handle: filter.NormalizeHandle(req.Handle), Indeterminate: []string{}, Contacts: []models.Contact{}, Drafts: []models.Draft{}}

	start, err := e.cooldown.Wait(ctx)
	if err != nil {
		return res, err
	}
	res.StartedAt = start

	err = e.run(ctx, req, res)
	e.finish(ctx, res, err)
	return res, err
}

func (e *Engine) run(ctx context.Context, req Request, res *Result) error {
	target, offset, err := e.resolveTarget(ctx, req)
	if err != nil {
		return err
	}
	res.TargetID = target.ID
	res.Company = target.TeamName
	res.Handle = filter.NormalizeHandle(target.XHandle)
	res.Offset = offset

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = e.opts.MaxResults
	}

	e.Log.Infof("🔎 Discovering @%s (%s) offset=%d max=%d", res.Handle, res.Company, offset, maxResults)
	candidates, err := e.Discoverer.Discover(ctx, scraper.Query{
		Handle:     res.Handle,
		Name:       target.TeamName,
		MaxResults: maxResults,
		Offset:     offset,
	})
	if err != nil {
		return fmt.Errorf("discover @%s: %w", res.Handle, err)
	}
	res.Candidates = len(candidates)
	if len(candidates) == 0 {
		e.Log.Infof("No bio-confirmed candidates for @%s", res.Handle)
		return e.touch(ctx, target.ID)
	}

	handles := make([]string, len(candidates))
	for i, c := range candidates {
		handles[i] = TelegramHandleFor(c, res.Handle, target.TeamName)
	}
	results := e.Validator.ValidateBatch(ctx, handles, e.opts.MaxConcurrent)
	if len(results) != len(candidates) {
		return fmt.Errorf("validator returned %d results for %d candidates", len(results), len(candidates))
	}

	existing, err := e.Store.ListContactsByCompany(ctx, target.TeamName)
	if err != nil {
		return fmt.Errorf("load contacts for %s: %w", target.TeamName, err)
	}
	index := dedup.NewContactIndex(existing)

	for i, cand := range candidates {
		vr := results[i]
		outcome := vr.Outcome()
		e.Metrics.Validation("telegram", string(outcome))

		if outcome == models.OutcomeIndeterminate {
			res.Indeterminate = append(res.Indeterminate, cand.Username)
			continue
		}

		contact := newContact(cand, target.TeamName, handles[i], outcome == models.OutcomeValid)
		if outcome == models.OutcomeValid {
			res.Valid++
		} else {
			res.Invalid++
		}

		if why := index.Match(contact); why != "" {
			e.Log.Debugf("♻️ @%s already recorded for %s (%s)", cand.Username, target.TeamName, why)
			res.Duplicates++
			continue
		}
		contact.CreatedAt = e.now()
		if err := e.Store.CreateContact(ctx, &contact); err != nil {
			return fmt.Errorf("create contact @%s: %w", cand.Username, err)
		}
		index.Add(contact)
		res.Contacts = append(res.Contacts, contact)
		e.Metrics.Contact(string(contact.Source), string(contact.TelegramValidated))

		if outcome != models.OutcomeValid {
			continue
		}
		draft, err := e.createDraft(ctx, contact, target)
		if err != nil {
			e.Log.Warnf("⚠️ Draft for @%s failed: %v", cand.Username, err)
			e.Metrics.Draft("generation_failed")
			res.DraftErrors = append(res.DraftErrors, DraftError{ContactID: contact.ID, Username: cand.Username, Error: err.Error()})
			if e.Previewer != nil {
				if perr := e.Previewer.SendError(fmt.Errorf("draft for %s (@%s) not written: %w", contact.Name, cand.Username, err)); perr != nil {
					e.Log.Warnf("Draft error for @%s not posted: %v", cand.Username, perr)
				}
			}
			continue
		}
		res.Drafts = append(res.Drafts, *draft)
		e.Metrics.Draft("created")
		if e.Previewer != nil {
			if err := e.Previewer.SendDraftPreview(contact, *draft); err != nil {
				e.Log.Warnf("Draft preview for @%s not sent: %v", cand.Username, err)
			}
		}
	}

	return e.touch(ctx, target.ID)
}

func (e *Engine) touch(ctx context.Context, targetID string) error {
	if err := e.Store.TouchTarget(ctx, targetID, e.now()); err != nil {
		return fmt.Errorf("touch target %s: %w", targetID, err)
	}
	return nil
}

func (e *Engine) finish(ctx context.Context, res *Result, err error) {
	label := "ok"
	if err != nil {
		label = "error"
		if k := scraper.KindOf(err); k != "" {
			label = string(k)
		}
		e.Log.Errorf("❌ Discovery @%s failed: %v", res.Handle, err)
	} else {
		e.Log.Infof("✅ Discovery @%s: %d valid, %d invalid, %d unchecked, %d duplicates, %d drafts",
			res.Handle, res.Valid, res.Invalid, len(res.Indeterminate), res.Duplicates, len(res.Drafts))
	}
	if !res.StartedAt.IsZero() {
		e.Metrics.DiscoveryRun(label, e.now().Sub(res.StartedAt).Seconds())
	}
	if rerr := e.Reporter.ReportRun(res.summary(err)); rerr != nil {
		e.Log.Warnf("Report not sent: %v", rerr)
	}

	if e.Recycler != nil {
		if recycled, rerr := e.Recycler.RecycleIfNeeded(context.WithoutCancel(ctx)); rerr != nil {
			e.Log.Warnf("Browser recycle failed: %v", rerr)
		} else if recycled {
			e.Log.Info("🔄 Browser recycled")
		}
	}
}

// resolveTarget loads the target by id, or finds/creates one for an ad hoc handle. Only
// runs for a known target page past contacts already discovered.
func (e *Engine) resolveTarget(ctx context.Context, req Request) (*models.Target, int, error) {
	if req.TargetID != "" {
		t, err := e.Store.GetTarget(ctx, req.TargetID)
		if err != nil {
			return nil, 0, fmt.Errorf("load target %s: %w", req.TargetID, err)
		}
		if req.Handle != "" {
			t.XHandle = req.Handle
		}
		if filter.NormalizeHandle(t.XHandle) == "" {
			return nil, 0, fmt.Errorf("target %s: %w", t.ID, ErrNoHandle)
		}
		offset, err := e.Store.CountContactsBySource(ctx, t.TeamName, models.SourceXDiscovery)
		if err != nil {
			return nil, 0, fmt.Errorf("count discovered contacts: %w", err)
		}
		return t, offset, nil
	}

	handle := filter.NormalizeHandle(req.Handle)
	if handle == "" {
		return nil, 0, ErrNoHandle
	}
	t, err := e.Store.FindTargetByHandle(ctx, handle)
	if err == nil {
		return t, 0, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, 0, fmt.Errorf("find target @%s: %w", handle, err)
	}

	now := e.now()
	t = &models.Target{
		TeamName:  handle,
		XHandle:   handle,
		Status:    models.TargetApproved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Store.CreateTarget(ctx, t); err != nil {
		return nil, 0, fmt.Errorf("create target @%s: %w", handle, err)
	}
	e.Log.Infof("🏢 Created target %s for ad hoc discovery", handle)
	return t, 0, nil
}

func (e *Engine) createDraft(ctx context.Context, c models.Contact, t *models.Target) (*models.Draft, error) {
	text, err := e.Generator.GenerateOutbound(ctx, ai.OutboundRequest{Contact: c, Target: t})
	if err != nil {
		return nil, fmt.Errorf("generate message: %w", err)
	}
	now := e.now()
	d := &models.Draft{
		ContactID:   c.ID,
		EmployeeID:  e.opts.EmployeeID,
		MessageText: text,
		Status:      models.DraftQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Store.CreateDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return d, nil
}

// TelegramHandleFor picks the handle to validate: the first Telegram username in the bio
// that is not the company's own channel, otherwise the X username on the bet that people
// reuse names.
func TelegramHandleFor(c models.CandidateProfile, companyHandle, companyName string) string {
	for _, h := range filter.ExtractTelegramHandles(c.Bio) {
		if !filter.IsCompanyLookalike(h, companyHandle, companyName) {
			return h
		}
	}
	return strings.TrimPrefix(c.Username, "@")
}

func newContact(c models.CandidateProfile, company, handle string, valid bool) models.Contact {
	name := strings.TrimSpace(c.DisplayName)
	if name == "" {
		name = c.Username
	}
	contact := models.Contact{
		Name:              name,
		Company:           company,
		XUsername:         c.Username,
		XBio:              c.Bio,
		Source:            models.SourceXDiscovery,
		TelegramValidated: models.TelegramInvalid,
	}
	if valid {
		h := handle
		contact.TelegramHandle = &h
		contact.TelegramValidated = models.TelegramValid
	}
	return contact
}
