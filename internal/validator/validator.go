package validator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/filter"
	"go-outreach-automation/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxConcurrent = 5
	defaultNavTimeout    = 10 * time.Second
	defaultRenderWait    = 1500 * time.Millisecond
	defaultBatchDelay    = 2 * time.Second
)

// Validator checks whether usernames exist on one platform.
type Validator struct {
	platform   string
	profileURL func(username string) string
	wellFormed func(username string) bool
	classifier Classifier
	leaser     browser.Leaser
	log        *zap.SugaredLogger

	NavTimeout time.Duration
	RenderWait time.Duration
	BatchDelay time.Duration
	Sleep      browser.SleepFunc
	Now        func() time.Time
}

func newValidator(platform string, leaser browser.Leaser, c Classifier, url func(string) string, log *zap.SugaredLogger) *Validator {
	return &Validator{
		platform:   platform,
		profileURL: url,
		classifier: c,
		leaser:     leaser,
		log:        log,
		NavTimeout: defaultNavTimeout,
		RenderWait: defaultRenderWait,
		BatchDelay: defaultBatchDelay,
		Sleep:      browser.Sleep,
		Now:        time.Now,
	}
}

// NewTelegram validates t.me profiles.
func NewTelegram(leaser browser.Leaser, log *zap.SugaredLogger) *Validator {
	v := newValidator("telegram", leaser, TelegramClassifier(), TelegramProfileURL, log)
	v.wellFormed = filter.IsTelegramUsername
	return v
}

// NewX validates x.com profiles.
func NewX(leaser browser.Leaser, log *zap.SugaredLogger) *Validator {
	return newValidator("x", leaser, XClassifier(), XProfileURL, log)
}

func TelegramProfileURL(username string) string { return "https://t.me/" + username }

func XProfileURL(username string) string { return "https://x.com/" + username }

func (v *Validator) Platform() string { return v.platform }

// Validate loads the profile page in a fresh tab and classifies it. Navigation and page
// errors come back as ValidationFailed, never as Valid=false.
func (v *Validator) Validate(ctx context.Context, username string) models.ValidationResult {
	name := strings.TrimPrefix(strings.TrimSpace(username), "@")
	res := models.ValidationResult{Username: name, CheckedAt: v.Now()}

	if name == "" {
		res.Details = "empty username"
		return res
	}
	if v.wellFormed != nil && !v.wellFormed(name) {
		res.Details = "not a valid " + v.platform + " username"
		return res
	}

	lease, err := v.leaser.NewLease(ctx)
	if err != nil {
		return v.failed(res, fmt.Errorf("acquire page: %w", err))
	}
	defer lease.Release()

	url := v.profileURL(name)
	if err := lease.Page.Goto(url, v.NavTimeout); err != nil {
		return v.failed(res, fmt.Errorf("navigate %s: %w", url, err))
	}
	if err := v.Sleep(ctx, v.RenderWait); err != nil {
		return v.failed(res, err)
	}
	content, err := lease.Page.Content()
	if err != nil {
		return v.failed(res, fmt.Errorf("read %s: %w", url, err))
	}

	c := v.classifier.Classify(content)
	res.Valid = c.Valid
	res.Details = c.Reason
	if c.Valid {
		v.log.Debugf("✅ %s @%s: %s", v.platform, name, c.Reason)
	} else {
		v.log.Debugf("❌ %s @%s: %s", v.platform, name, c.Reason)
	}
	return res
}

func (v *Validator) failed(res models.ValidationResult, err error) models.ValidationResult {
	v.log.Warnf("⚠️ %s validation failed for @%s: %v", v.platform, res.Username, err)
	res.Valid = false
	res.ValidationFailed = true
	res.Error = err.Error()
	return res
}

// ValidateBatch validates usernames maxConcurrent at a time, pausing between batches.
// There is exactly one result per input, at the input's index.
func (v *Validator) ValidateBatch(ctx context.Context, usernames []string, maxConcurrent int) []models.ValidationResult {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	results := make([]models.ValidationResult, len(usernames))

	for start := 0; start < len(usernames); start += maxConcurrent {
		end := min(start+maxConcurrent, len(usernames))
		if start > 0 {
			if err := v.Sleep(ctx, v.BatchDelay); err != nil {
				for i := start; i < len(usernames); i++ {
					results[i] = v.failed(models.ValidationResult{
						Username:  strings.TrimPrefix(strings.TrimSpace(usernames[i]), "@"),
						CheckedAt: v.Now(),
					}, err)
				}
				return results
			}
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				results[i] = v.Validate(ctx, usernames[i])
				return nil
			})
		}
		_ = g.Wait()
		v.log.Debugf("%s batch %d-%d of %d done", v.platform, start+1, end, len(usernames))
	}
	return results
}
