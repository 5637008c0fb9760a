package database

import (
	"context"
	"errors"
	"time"

	"go-outreach-automation/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDraftLocked means the draft was claimed by a relayer or left the editable states
	// after it was read.
	ErrDraftLocked = errors.New("draft is claimed or no longer editable")
)

// DraftFilter narrows ListDrafts. Zero fields match everything.
type DraftFilter struct {
	Status     models.DraftStatus
	EmployeeID string
	ContactID  string
	Limit      int
}

// Store is the persistence the workflow, the draft service and the relayer routes need.
// Repository (Postgres) and MemoryStore implement it.
type Store interface {
	CreateTarget(ctx context.Context, t *models.Target) error
	GetTarget(ctx context.Context, id string) (*models.Target, error)
	FindTargetByHandle(ctx context.Context, handle string) (*models.Target, error)
	FindTargetByName(ctx context.Context, name string) (*models.Target, error)
	ListTargetsByStatus(ctx context.Context, status models.TargetStatus) ([]models.Target, error)
	UpdateTargetStatus(ctx context.Context, id string, status models.TargetStatus, now time.Time) error
	TouchTarget(ctx context.Context, id string, now time.Time) error

	CreateContact(ctx context.Context, c *models.Contact) error
	GetContact(ctx context.Context, id string) (*models.Contact, error)
	UpdateContact(ctx context.Context, c *models.Contact) error
	ListContactsByCompany(ctx context.Context, company string) ([]models.Contact, error)
	CountContactsBySource(ctx context.Context, company string, source models.ContactSource) (int, error)

	CreateDraft(ctx context.Context, d *models.Draft) error
	GetDraft(ctx context.Context, id string) (*models.Draft, error)
	ListDrafts(ctx context.Context, f DraftFilter) ([]models.Draft, error)
	UpdateDraft(ctx context.Context, d *models.Draft) error
	// UpdateDraftText rewrites the message of an unclaimed queued or approved draft. It
	// fails with ErrDraftLocked otherwise.
	UpdateDraftText(ctx context.Context, id, text string, now time.Time) error
	// ClaimPendingSends marks approved, unclaimed drafts of one employee as prepared and
	// returns them. Claims older than staleBefore are handed out again.
	ClaimPendingSends(ctx context.Context, employeeID string, now, staleBefore time.Time, limit int) ([]models.PendingSend, error)

	CreateCaptureRequest(ctx context.Context, r *models.CaptureRequest) error
	ClaimCaptureRequests(ctx context.Context, employeeID string, now, staleBefore time.Time, limit int) ([]models.CaptureRequest, error)
	CompleteCaptureRequest(ctx context.Context, id, employeeID string, res models.CaptureResult, now time.Time) error

	CreateAuthRequest(ctx context.Context, r *models.AuthRequest) error
	ClaimAuthRequests(ctx context.Context, employeeID string, now, staleBefore time.Time, limit int) ([]models.AuthRequest, error)
	CompleteAuthRequest(ctx context.Context, id, employeeID, errMsg string, now time.Time) error

	Close()
}
