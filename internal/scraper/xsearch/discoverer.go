// Package xsearch finds people on X whose bio mentions a company. It searches X's people
// tab for the company handle, then opens each candidate's profile to confirm the bio
// really names the company, because search matches on names and tweets too.
package xsearch

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/dom"
	"go-outreach-automation/internal/filter"
	"go-outreach-automation/internal/models"
	"go-outreach-automation/internal/scraper"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	platform          = "x"
	defaultMaxResults = 5
	// verifyWindow caps how many candidates past the offset get a profile visit per call.
	verifyWindow = 10
	// pages with less visible text than this and no main column are still loading
	minPageText = 200
)

var (
	profilePathRegex = regexp.MustCompile(`^/([A-Za-z0-9_]{1,15})$`)

	rateLimitSignals = []string{
		"rate limit exceeded",
		"you are being rate limited",
		"something went wrong. try reloading.",
		"try again later",
	}
	loginPaths = []string{"/login", "/i/flow/login", "/account/access", "/i/flow/signup"}
)

type Discoverer struct {
	leaser browser.Leaser
	shots  *browser.ScreenshotDebugger
	log    *zap.SugaredLogger

	NavTimeout time.Duration
	MinDelay   time.Duration
	MaxDelay   time.Duration
	Sleep      browser.SleepFunc
}

func New(leaser browser.Leaser, shots *browser.ScreenshotDebugger, log *zap.SugaredLogger) *Discoverer {
	return &Discoverer{
		leaser:     leaser,
		shots:      shots,
		log:        log,
		NavTimeout: 20 * time.Second,
		MinDelay:   3 * time.Second,
		MaxDelay:   6 * time.Second,
		Sleep:      browser.Sleep,
	}
}

func (d *Discoverer) Name() string { return "X" }

func SearchURL(handle string) string {
	return "https://x.com/search?q=" + url.QueryEscape(handle) + "&src=typed_query&f=user"
}

func ProfileURL(username string) string { return "https://x.com/" + username }

// Discover returns up to q.MaxResults candidates whose bio mentions the company. Blocked
// states come back as *scraper.Error; an empty result with a nil error means nobody
// matched.
func (d *Discoverer) Discover(ctx context.Context, q scraper.Query) ([]models.CandidateProfile, error) {
	handle := filter.NormalizeHandle(q.Handle)
	if handle == "" {
		return nil, fmt.Errorf("x discovery: empty company handle")
	}
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	lease, err := d.leaser.NewLease(ctx)
	if err != nil {
		return nil, fmt.Errorf("x discovery: %w", err)
	}
	defer lease.Release()
	page := lease.Page

	d.log.Infof("🔎 Searching X people for @%s (offset %d)", handle, q.Offset)
	doc, err := d.load(ctx, page, SearchURL(handle), "search")
	if err != nil {
		return nil, err
	}
	if err := browser.HumanScroll(ctx, page, d.Sleep); err != nil {
		d.log.Debugf("scroll: %v", err)
	} else if content, err := page.Content(); err == nil {
		if scrolled, err := dom.Parse(content); err == nil {
			doc = scrolled
		}
	}

	self := selfUsername(doc)
	var candidates []models.CandidateProfile
	for _, c := range extractCandidates(doc) {
		switch {
		case filter.IsReservedUsername(c.Username):
		case strings.EqualFold(c.Username, self):
		case filter.IsCompanyLookalike(c.Username, handle, q.Name):
		default:
			candidates = append(candidates, c)
		}
	}
	d.log.Infof("   Found %d candidates after filtering", len(candidates))

	if q.Offset >= len(candidates) {
		d.log.Infof("   Offset %d covers all %d candidates, nothing new", q.Offset, len(candidates))
		return []models.CandidateProfile{}, nil
	}
	window := candidates[max(q.Offset, 0):min(max(q.Offset, 0)+verifyWindow, len(candidates))]

	confirmed := []models.CandidateProfile{}
	for _, c := range window {
		if len(confirmed) >= maxResults {
			break
		}
		if err := d.Sleep(ctx, browser.Jitter(d.MinDelay, d.MaxDelay)); err != nil {
			return nil, err
		}
		profile, err := d.load(ctx, page, c.ProfileURL, "profile")
		if err != nil {
			if scraper.KindOf(err) == scraper.KindNavigationFailed {
				d.log.Warnf("   ⚠️ Skipping @%s: %v", c.Username, err)
				continue
			}
			return nil, err
		}
		c.Bio = dom.Text(profile.Find(dom.TestID("UserDescription")).First())
		if name := displayName(profile); name != "" {
			c.DisplayName = name
		}
		if !filter.BioMentions(c.Bio, handle, q.Name) {
			d.log.Debugf("   @%s bio does not mention @%s", c.Username, handle)
			continue
		}
		d.log.Infof("   ✅ @%s bio mentions @%s", c.Username, handle)
		confirmed = append(confirmed, c)
	}
	return confirmed, nil
}

// load navigates, waits a human-looking moment and checks for blocked states.
func (d *Discoverer) load(ctx context.Context, page browser.Page, target, step string) (*goquery.Document, error) {
	if err := page.Goto(target, d.NavTimeout); err != nil {
		return nil, &scraper.Error{Kind: scraper.KindNavigationFailed, Platform: platform, Msg: "could not open " + step + " page", Err: err}
	}
	if err := d.Sleep(ctx, browser.Jitter(d.MinDelay, d.MaxDelay)); err != nil {
		return nil, err
	}
	content, err := page.Content()
	if err != nil {
		return nil, &scraper.Error{Kind: scraper.KindNavigationFailed, Platform: platform, Msg: "could not read " + step + " page", Err: err}
	}
	doc, err := dom.Parse(content)
	if err != nil {
		return nil, &scraper.Error{Kind: scraper.KindNavigationFailed, Platform: platform, Msg: "unparseable " + step + " page", Err: err}
	}
	if serr := blockedState(page.URL(), doc); serr != nil {
		_, _ = d.shots.Capture(page, "x-"+string(serr.Kind), "🚨 X: "+serr.Msg+" on "+step+" page")
		d.log.Errorf("❌ %v", serr)
		return nil, serr
	}
	return doc, nil
}

func blockedState(current string, doc *goquery.Document) *scraper.Error {
	if u, err := url.Parse(current); err == nil {
		for _, p := range loginPaths {
			if strings.HasPrefix(u.Path, p) {
				return &scraper.Error{Kind: scraper.KindAuthExpired, Platform: platform, Msg: "redirected to login"}
			}
		}
	}
	text := strings.ToLower(dom.Text(doc.Selection))
	for _, sig := range rateLimitSignals {
		if strings.Contains(text, sig) {
			return &scraper.Error{Kind: scraper.KindRateLimited, Platform: platform, Msg: "rate limit banner shown"}
		}
	}
	if len(text) < minPageText && doc.Find(dom.TestID("primaryColumn")).Length() == 0 {
		return &scraper.Error{Kind: scraper.KindStuckLoading, Platform: platform, Msg: "page stuck on loading screen"}
	}
	return nil
}

// extractCandidates reads usernames from UserCell results, in ranking order.
func extractCandidates(doc *goquery.Document) []models.CandidateProfile {
	seen := make(map[string]bool)
	var out []models.CandidateProfile
	doc.Find(dom.TestID("UserCell")).Each(func(_ int, cell *goquery.Selection) {
		var c models.CandidateProfile
		cell.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			m := profilePathRegex.FindStringSubmatch(a.AttrOr("href", ""))
			if m == nil {
				return
			}
			if c.Username == "" {
				c.Username = m[1]
			}
			if t := dom.Text(a); c.DisplayName == "" && t != "" && !strings.HasPrefix(t, "@") {
				c.DisplayName = t
			}
		})
		if c.Username == "" || seen[strings.ToLower(c.Username)] {
			return
		}
		seen[strings.ToLower(c.Username)] = true
		c.ProfileURL = ProfileURL(c.Username)
		out = append(out, c)
	})
	return out
}

// selfUsername is the logged-in account, read from the sidebar profile link.
func selfUsername(doc *goquery.Document) string {
	href, ok := doc.Find(dom.TestID("AppTabBar_Profile_Link")).First().Attr("href")
	if !ok {
		return ""
	}
	if m := profilePathRegex.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

func displayName(doc *goquery.Document) string {
	n := doc.Find(dom.TestID("UserName")).First()
	if n.Length() == 0 {
		return ""
	}
	name := dom.Text(n)
	if i := strings.Index(name, " @"); i > 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}
