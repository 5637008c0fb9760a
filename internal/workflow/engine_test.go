package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-outreach-automation/internal/ai"
	"go-outreach-automation/internal/database"
	"go-outreach-automation/internal/models"
	"go-outreach-automation/internal/reporter"
	"go-outreach-automation/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscoverer struct {
	mu      sync.Mutex
	byQuery map[string][]models.CandidateProfile
	errs    map[string]error
	queries []scraper.Query
}

func (f *fakeDiscoverer) Name() string { return "fake" }

func (f *fakeDiscoverer) Discover(_ context.Context, q scraper.Query) ([]models.CandidateProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if err := f.errs[q.Handle]; err != nil {
		return nil, err
	}
	return f.byQuery[q.Handle], nil
}

// fakeValidator maps a handle to an outcome. Unknown handles are invalid.
type fakeValidator struct {
	outcomes map[string]models.Outcome
	calls    [][]string
}

func (f *fakeValidator) ValidateBatch(_ context.Context, usernames []string, _ int) []models.ValidationResult {
	f.calls = append(f.calls, usernames)
	out := make([]models.ValidationResult, len(usernames))
	for i, u := range usernames {
		r := models.ValidationResult{Username: u}
		switch f.outcomes[u] {
		case models.OutcomeValid:
			r.Valid = true
		case models.OutcomeIndeterminate:
			r.ValidationFailed = true
		}
		out[i] = r
	}
	return out
}

type fakeGenerator struct {
	fail map[string]bool
	reqs []ai.OutboundRequest
}

func (f *fakeGenerator) GenerateOutbound(_ context.Context, req ai.OutboundRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	if f.fail[req.Contact.XUsername] {
		return "", errors.New("model overloaded")
	}
	return "Hi " + req.Contact.Name, nil
}

type fakeRecycler struct{ calls int }

func (f *fakeRecycler) RecycleIfNeeded(context.Context) (bool, error) {
	f.calls++
	return false, nil
}

type fakeReporter struct{ runs []reporter.RunSummary }

func (f *fakeReporter) ReportRun(s reporter.RunSummary) error {
	f.runs = append(f.runs, s)
	return nil
}

func (f *fakeReporter) Alert(string) error { return nil }

type fakePreviewer struct {
	previews []string
	errs     []error
}

func (f *fakePreviewer) SendDraftPreview(c models.Contact, _ models.Draft) error {
	f.previews = append(f.previews, c.XUsername)
	return nil
}

func (f *fakePreviewer) SendError(err error) error {
	f.errs = append(f.errs, err)
	return nil
}

// clock is a fake time source whose sleeps advance it.
type clock struct {
	mu     sync.Mutex
	t      time.Time
	sleeps []time.Duration
}

func newClock() *clock { return &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	return ctx.Err()
}

type harness struct {
	engine    *Engine
	store     *database.MemoryStore
	disc      *fakeDiscoverer
	validator *fakeValidator
	gen       *fakeGenerator
	recycler  *fakeRecycler
	rep       *fakeReporter
	clock     *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     database.NewMemoryStore(),
		disc:      &fakeDiscoverer{byQuery: map[string][]models.CandidateProfile{}, errs: map[string]error{}},
		validator: &fakeValidator{outcomes: map[string]models.Outcome{}},
		gen:       &fakeGenerator{fail: map[string]bool{}},
		recycler:  &fakeRecycler{},
		rep:       &fakeReporter{},
		clock:     newClock(),
	}
	h.engine = New(Deps{
		Store:      h.store,
		Discoverer: h.disc,
		Validator:  h.validator,
		Generator:  h.gen,
		Recycler:   h.recycler,
		Reporter:   h.rep,
	}, Options{EmployeeID: "emp-1"})
	h.engine.SetClock(h.clock.Now, h.clock.Sleep)
	return h
}

func (h *harness) target(t *testing.T, name, handle string) *models.Target {
	t.Helper()
	tg := &models.Target{TeamName: name, XHandle: handle, Status: models.TargetApproved}
	require.NoError(t, h.store.CreateTarget(context.Background(), tg))
	return tg
}

var acmeCandidates = []models.CandidateProfile{
	{Username: "alice", DisplayName: "Alice Wong", Bio: "BD @acme | tg: @alice_tg"},
	{Username: "bobby", DisplayName: "Bob Stone", Bio: "building @acme"},
	{Username: "carol", DisplayName: "Carol King", Bio: "growth at @acme"},
}

func TestRunDiscoversValidatesAndDrafts(t *testing.T) {
	h := newHarness(t)
	tg := h.target(t, "Acme", "acme")
	h.disc.byQuery["acme"] = acmeCandidates
	h.validator.outcomes = map[string]models.Outcome{"alice_tg": models.OutcomeValid, "bobby": models.OutcomeValid}

	res, err := h.engine.Run(context.Background(), Request{TargetID: tg.ID})

	require.NoError(t, err)
	assert.Equal(t, []string{"alice_tg", "bobby", "carol"}, h.validator.calls[0], "bio link wins over the X username")
	assert.Equal(t, 3, res.Candidates)
	assert.Equal(t, 2, res.Valid)
	assert.Equal(t, 1, res.Invalid)
	assert.Len(t, res.Contacts, 3)
	assert.Len(t, res.Drafts, 2)

	contacts, err := h.store.ListContactsByCompany(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, contacts, 3)
	assert.Equal(t, "alice_tg", contacts[0].Handle())
	assert.Equal(t, models.TelegramValid, contacts[0].TelegramValidated)
	assert.Nil(t, contacts[2].TelegramHandle)
	assert.Equal(t, models.TelegramInvalid, contacts[2].TelegramValidated)
	for _, c := range contacts {
		assert.Equal(t, models.SourceXDiscovery, c.Source)
	}

	drafts, err := h.store.ListDrafts(context.Background(), database.DraftFilter{})
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	for _, d := range drafts {
		assert.Equal(t, models.DraftQueued, d.Status)
		assert.Equal(t, "emp-1", d.EmployeeID)
		assert.NotEqual(t, contacts[2].ID, d.ContactID, "invalid contacts get no draft")
	}

	got, err := h.store.GetTarget(context.Background(), tg.ID)
	require.NoError(t, err)
	assert.Equal(t, h.clock.Now(), got.UpdatedAt, "target touched")
	assert.Equal(t, 1, h.recycler.calls)
	require.Len(t, h.rep.runs, 1)
	assert.Equal(t, 2, h.rep.runs[0].Drafts)
}

func TestRunIndeterminateIsNotPersisted(t *testing.T) {
	h := newHarness(t)
	tg := h.target(t, "Acme", "acme")
	h.disc.byQuery["acme"] = acmeCandidates
	h.validator.outcomes = map[string]models.Outcome{"alice_tg": models.OutcomeValid, "bobby": models.OutcomeIndeterminate}

	res, err := h.engine.Run(context.Background(), Request{TargetID: tg.ID})

	require.NoError(t, err)
	assert.Equal(t, []string{"bobby"}, res.Indeterminate)
	assert.Equal(t, 1, res.Valid)
	assert.Equal(t, 1, res.Invalid)
	assert.Len(t, res.Contacts, 2)
	assert.Len(t, res.Drafts, 1)
}

func TestRunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	tg := h.target(t, "Acme", "acme")
	h.disc.byQuery["acme"] = acmeCandidates
	h.validator.outcomes = map[string]models.Outcome{"alice_tg": models.OutcomeValid, "bobby": models.OutcomeValid}
	ctx := context.Background()

	_, err := h.engine.Run(ctx, Request{TargetID: tg.ID})
	require.NoError(t, err)
	second, err := h.engine.Run(ctx, Request{TargetID: tg.ID})
	require.NoError(t, err)

	assert.Equal(t, 0, h.disc.queries[0].Offset)
	assert.Equal(t, 3, h.disc.queries[1].Offset, "offset pages past discovered contacts")
	assert.Empty(t, second.Contacts)
	assert.Empty(t, second.Drafts)
	assert.Equal(t, 3, second.Duplicates)

	contacts, err := h.store.ListContactsByCompany(ctx, "Acme")
	require.NoError(t, err)
	assert.Len(t, contacts, 3)
}

func TestRunSkipsCompanyTelegramChannel(t *testing.T) {
	h := newHarness(t)
	tg := h.target(t, "Acme", "acme")
	h.disc.byQuery["acme"] = []models.CandidateProfile{
		{Username: "alice", DisplayName: "Alice Wong", Bio: "BD @acme. News: t.me/acme_official"},
		{Username: "bobby", DisplayName: "Bob Stone", Bio: "eng @acme, follow t.me/acme_official | tg: @bob_stone"},
	}
	h.validator.outcomes["acme_official"] = models.OutcomeValid
	h.validator.outcomes["alice"] = models.OutcomeValid
	h.validator.outcomes["bob_stone"] = models.OutcomeValid

	res, err := h.engine.Run(context.Background(), Request{TargetID: tg.ID})

	require.NoError(t, err)
	require.Len(t, h.validator.calls, 1)
	assert.Equal(t, []string{"alice", "bob_stone"}, h.validator.calls[0])
	assert.Zero(t, res.Duplicates)
	require.Len(t, res.Contacts, 2)
	assert.Equal(t, "alice", res.Contacts[0].Handle())
	assert.Equal(t, "bob_stone", res.Contacts[1].Handle())
	assert.Len(t, res.Drafts, 2)
}

func TestTelegramHandleFor(t *testing.T) {
	tests := []struct {
		bio  string
		want string
	}{
		{"t.me/alice_w", "alice_w"},
		{"t.me/acme_official", "alice"},
		{"t.me/AcmeLabsNews then tg: @alice_w", "alice_w"},
		{"no links", "alice"},
	}
	for _, tt := range tests {
		got := TelegramHandleFor(models.CandidateProfile{Username: "@alice", Bio: tt.bio}, "acme", "Acme Labs")
		assert.Equal(t, tt.want, got, tt.bio)
	}
}

func TestRunDedupsByFirstName(t *testing.T) {
	h := newHarness(t)
	tg := h.target(t, "Acme", "acme")
	require.NoError(t, h.store.CreateContact(context.Background(), &models.Contact{Name: "Alice", Company: "Acme", Source: models.SourceApollo}))
	h.disc.byQuery["acme"] = acmeCandidates[:1]
	h.validator.outcomes = map[string]models.Outcome{"alice_tg": models.OutcomeValid}

	res, err := h.engine.Run(context.Background(), Request{TargetID: tg.ID})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Duplicates)
	assert.Empty(t, res.Contacts)
	assert.Empty(t, h.gen.reqs)
}

func TestRunPartialDraftFailure(t *testing.T) {
	h := newHarness(t)
	tg := h.target(t, "Acme", "acme")
	h.disc.byQuery["acme"] = acmeCandidates
	h.validator.outcomes = map[string]models.Outcome{"alice_tg": models.OutcomeValid, "bobby": models.OutcomeValid}
	h.gen.fail["alice"] = true
	prev := &fakePreviewer{}
	h.engine.Previewer = prev

	res, err := h.engine.Run(context.Background(), Request{TargetID: tg.ID})

	require.NoError(t, err)
	assert.Len(t, res.Contacts, 3, "contacts survive a failed draft")
	require.Len(t, res.Drafts, 1)
	require.Len(t, res.DraftErrors, 1)
	assert.Equal(t, "alice", res.DraftErrors[0].Username)
	assert.Contains(t, res.DraftErrors[0].Error, "model overloaded")

	assert.Equal(t, []string{"bobby"}, prev.previews)
	require.Len(t, prev.errs, 1)
	assert.Contains(t, prev.errs[0].Error(), "Alice Wong (@alice)")
	assert.Contains(t, prev.errs[0].Error(), "model overloaded")
}

func TestRunAdHocHandle(t *testing.T) {
	h := newHarness(t)
	h.disc.byQuery["globex"] = nil
	ctx := context.Background()

	res, err := h.engine.Run(ctx, Request{Handle: "@Globex"})
	require.NoError(t, err)

	created, err := h.store.FindTargetByHandle(ctx, "globex")
	require.NoError(t, err)
	assert.Equal(t, models.TargetApproved, created.Status)
	assert.Equal(t, created.ID, res.TargetID)

	again, err := h.engine.Run(ctx, Request{Handle: "GLOBEX"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.TargetID, "handle match is case-insensitive")
	assert.Equal(t, 0, h.disc.queries[1].Offset, "ad hoc runs always start at zero")

	_, err = h.engine.Run(ctx, Request{})
	assert.ErrorIs(t, err, ErrNoHandle)
}

func TestRunPropagatesScrapeErrors(t *testing.T) {
	h := newHarness(t)
	tg := h.target(t, "Acme", "acme")
	h.disc.errs["acme"] = &scraper.Error{Kind: scraper.KindRateLimited, Platform: "x", Msg: "rate limit banner"}

	res, err := h.engine.Run(context.Background(), Request{TargetID: tg.ID})

	require.Error(t, err)
	assert.Equal(t, scraper.KindRateLimited, scraper.KindOf(err))
	assert.Equal(t, tg.ID, res.TargetID)
	assert.Empty(t, h.validator.calls)
	require.Len(t, h.rep.runs, 1)
	assert.Error(t, h.rep.runs[0].Err)
	assert.Equal(t, 1, h.recycler.calls, "recycle check runs after failures too")
}

func TestCooldownSpacesStarts(t *testing.T) {
	h := newHarness(t)
	h.disc.byQuery["acme"] = nil
	ctx := context.Background()

	first, err := h.engine.Run(ctx, Request{Handle: "acme"})
	require.NoError(t, err)
	second, err := h.engine.Run(ctx, Request{Handle: "acme"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, second.StartedAt.Sub(first.StartedAt), 5*time.Second)
	assert.Equal(t, []time.Duration{5 * time.Second}, h.clock.sleeps)
}

func TestCooldownReservesSlots(t *testing.T) {
	c := newClock()
	cd := NewCooldown(5 * time.Second)
	cd.now = c.Now
	var mu sync.Mutex
	var waited []time.Duration
	cd.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		waited = append(waited, d)
		mu.Unlock()
		return nil
	}

	var wg sync.WaitGroup
	starts := make([]time.Time, 3)
	for i := range starts {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := cd.Wait(context.Background())
			assert.NoError(t, err)
			starts[i] = s
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []time.Duration{5 * time.Second, 10 * time.Second}, waited)
	assert.Equal(t, 15*time.Second, cd.Remaining())
}

func TestCooldownCancelled(t *testing.T) {
	cd := NewCooldown(time.Hour)
	cd.now = newClock().Now
	_, err := cd.Wait(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cd.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, time.Hour, cd.Remaining(), "the abandoned slot is handed back")
}

func TestRunBatchContinuesPastFailures(t *testing.T) {
	h := newHarness(t)
	h.disc.byQuery["acme"] = acmeCandidates[:1]
	h.disc.byQuery["globex"] = nil
	h.disc.errs["initech"] = &scraper.Error{Kind: scraper.KindAuthExpired, Platform: "x", Msg: "redirected to login"}
	h.validator.outcomes = map[string]models.Outcome{"alice_tg": models.OutcomeValid}

	items, err := h.engine.RunBatch(context.Background(), []Request{{Handle: "acme"}, {Handle: "initech"}, {Handle: "globex"}})

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Empty(t, items[0].Error)
	assert.Len(t, items[0].Result.Drafts, 1)
	assert.Equal(t, scraper.KindAuthExpired, items[1].Kind)
	assert.Contains(t, items[1].Error, "redirected to login")
	assert.Empty(t, items[2].Error)
	assert.Len(t, h.disc.queries, 3)

	var companyPauses int
	for _, d := range h.clock.sleeps {
		if d == 5*time.Second {
			companyPauses++
		}
	}
	assert.Equal(t, 2, companyPauses, "one pause between each pair of companies")
}

func TestRunBatchStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	h.disc.byQuery["acme"] = nil
	ctx, cancel := context.WithCancel(context.Background())
	h.engine.SetClock(h.clock.Now, func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	})

	items, err := h.engine.RunBatch(ctx, []Request{{Handle: "acme"}, {Handle: "globex"}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, items, 1)
}
