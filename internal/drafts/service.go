// Package drafts applies human and relayer actions to drafts. Every change goes through
// models.Draft.Transition, so an illegal move is refused here rather than in SQL.
package drafts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-outreach-automation/internal/ai"
	"go-outreach-automation/internal/database"
	"go-outreach-automation/internal/metrics"
	"go-outreach-automation/internal/models"

	"go.uber.org/zap"
)

var (
	ErrNotEditable = errors.New("draft can no longer be edited")
	ErrEmptyText   = errors.New("message text is empty")
)

type Generator interface {
	GenerateOutbound(ctx context.Context, req ai.OutboundRequest) (string, error)
	GenerateFollowUp(ctx context.Context, name, company, original string) (string, error)
}

type Service struct {
	store   database.Store
	gen     Generator
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewService(store database.Store, gen Generator, m *metrics.Metrics, log *zap.SugaredLogger) *Service {
	return &Service{store: store, gen: gen, metrics: m, log: log, now: time.Now}
}

func (s *Service) load(ctx context.Context, id string) (*models.Draft, error) {
	d, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("draft %s: %w", id, err)
	}
	return d, nil
}

// loadOwned hides drafts of other employees behind ErrNotFound.
func (s *Service) loadOwned(ctx context.Context, id, employeeID string) (*models.Draft, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.EmployeeID != employeeID {
		return nil, fmt.Errorf("draft %s: %w", id, database.ErrNotFound)
	}
	return d, nil
}

func (s *Service) transition(ctx context.Context, d *models.Draft, to models.DraftStatus, event string) (*models.Draft, error) {
	if err := d.Transition(to, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("update draft %s: %w", d.ID, err)
	}
	s.metrics.Draft(event)
	return d, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Draft, error) {
	return s.load(ctx, id)
}

func (s *Service) List(ctx context.Context, f database.DraftFilter) ([]models.Draft, error) {
	return s.store.ListDrafts(ctx, f)
}

// Approve queues the draft for the employee's relayer.
func (s *Service) Approve(ctx context.Context, id string) (*models.Draft, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == models.DraftApproved {
		return d, nil
	}
	return s.transition(ctx, d, models.DraftApproved, "approved")
}

func (s *Service) Skip(ctx context.Context, id string) (*models.Draft, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, d, models.DraftSkipped, "skipped")
}

// Edit replaces the message text. Status is unchanged.
func (s *Service) Edit(ctx context.Context, id, text string) (*models.Draft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.CanEdit() || d.Claimed() {
		return nil, fmt.Errorf("%w: status %s", ErrNotEditable, d.Status)
	}
	if err := s.saveText(ctx, d, text); err != nil {
		return nil, err
	}
	return d, nil
}

// saveText writes new text only if no relayer claimed the draft since it was loaded.
func (s *Service) saveText(ctx context.Context, d *models.Draft, text string) error {
	now := s.now()
	if err := s.store.UpdateDraftText(ctx, d.ID, text, now); err != nil {
		if errors.Is(err, database.ErrDraftLocked) {
			return fmt.Errorf("%w: claimed by a relayer", ErrNotEditable)
		}
		return fmt.Errorf("update draft %s: %w", d.ID, err)
	}
	d.MessageText = text
	d.UpdatedAt = now
	return nil
}

// Regenerate asks the model for a new version and rewrites message_text in place.
func (s *Service) Regenerate(ctx context.Context, id string) (*models.Draft, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.CanEdit() || d.Claimed() {
		return nil, fmt.Errorf("%w: status %s", ErrNotEditable, d.Status)
	}
	c, err := s.store.GetContact(ctx, d.ContactID)
	if err != nil {
		return nil, fmt.Errorf("contact %s: %w", d.ContactID, err)
	}
	var target *models.Target
	if t, err := s.store.FindTargetByName(ctx, c.Company); err == nil {
		target = t
	}

	text, err := s.gen.GenerateOutbound(ctx, ai.OutboundRequest{Contact: *c, Target: target, Regenerate: true, Previous: d.MessageText})
	if err != nil {
		return nil, fmt.Errorf("regenerate draft %s: %w", id, err)
	}
	if err := s.saveText(ctx, d, text); err != nil {
		return nil, err
	}
	s.metrics.Draft("regenerated")
	return d, nil
}

// CreateFollowUp retires a sent draft into the followup state and queues a new draft
// that points back at it.
func (s *Service) CreateFollowUp(ctx context.Context, id string) (*models.Draft, error) {
	orig, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(orig.Status, models.DraftFollowUp) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, orig.Status, models.DraftFollowUp)
	}
	c, err := s.store.GetContact(ctx, orig.ContactID)
	if err != nil {
		return nil, fmt.Errorf("contact %s: %w", orig.ContactID, err)
	}

	text, err := s.gen.GenerateFollowUp(ctx, c.Name, c.Company, orig.MessageText)
	if err != nil {
		return nil, fmt.Errorf("generate follow-up for %s: %w", id, err)
	}

	now := s.now()
	next := &models.Draft{
		ContactID:   orig.ContactID,
		EmployeeID:  orig.EmployeeID,
		MessageText: text,
		Status:      models.DraftQueued,
		FollowUpOf:  &orig.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateDraft(ctx, next); err != nil {
		return nil, fmt.Errorf("create follow-up: %w", err)
	}
	if _, err := s.transition(ctx, orig, models.DraftFollowUp, "followup"); err != nil {
		return nil, err
	}
	return next, nil
}

// MarkPrepared records a delivery reported by the employee's relayer.
func (s *Service) MarkPrepared(ctx context.Context, id, employeeID string) (*models.Draft, error) {
	d, err := s.loadOwned(ctx, id, employeeID)
	if err != nil {
		return nil, err
	}
	if d.Status == models.DraftSent {
		return d, nil
	}
	d, err = s.transition(ctx, d, models.DraftSent, "sent")
	if err != nil {
		return nil, err
	}
	s.log.Infof("📤 Draft %s sent by %s", id, employeeID)
	return d, nil
}

// MarkFailed releases the relayer's claim. The draft stays approved and is handed out
// again on the next poll.
func (s *Service) MarkFailed(ctx context.Context, id, employeeID, reason string) (*models.Draft, error) {
	d, err := s.loadOwned(ctx, id, employeeID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DraftApproved {
		return nil, fmt.Errorf("%w: mark-failed on a %s draft", models.ErrInvalidTransition, d.Status)
	}
	d, err = s.transition(ctx, d, models.DraftApproved, "send_failed")
	if err != nil {
		return nil, err
	}
	s.log.Warnf("⚠️ Draft %s delivery failed on %s's relayer: %s", id, employeeID, reason)
	return d, nil
}
