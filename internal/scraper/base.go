// Package scraper defines the discoverer contract shared by platform scrapers and the
// typed errors they raise when a platform blocks them.
package scraper

import (
	"context"
	"errors"
	"fmt"

	"go-outreach-automation/internal/models"
)

// Query asks a discoverer for people whose bio mentions a company.
type Query struct {
	// Handle is the company's account handle, with or without "@".
	Handle string
	// Name is the company's display name. Optional; widens bio matching.
	Name       string
	MaxResults int
	// Offset skips candidates already processed by earlier runs.
	Offset int
}

// Discoverer finds bio-confirmed candidates for a company.
type Discoverer interface {
	Discover(ctx context.Context, q Query) ([]models.CandidateProfile, error)
	Name() string
}

type Kind string

const (
	KindRateLimited      Kind = "rate_limited"
	KindAuthExpired      Kind = "auth_expired"
	KindStuckLoading     Kind = "stuck_loading"
	KindNavigationFailed Kind = "navigation_failed"
)

// Error is a scrape that failed in a way the caller must act on, as opposed to a search
// that found nobody.
type Error struct {
	Kind     Kind
	Platform string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Platform, e.Kind, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a scrape error anywhere in err's chain, or "".
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// Hint is the operator-facing next step for a kind.
func (k Kind) Hint() string {
	switch k {
	case KindRateLimited:
		return "platform is rate limiting, wait before retrying"
	case KindAuthExpired:
		return "session expired, re-authenticate the X account"
	case KindStuckLoading:
		return "page never finished loading, likely a soft rate limit"
	case KindNavigationFailed:
		return "navigation failed, retry later"
	}
	return ""
}
