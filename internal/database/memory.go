package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-outreach-automation/internal/models"
)

// MemoryStore keeps everything in maps. It backs tests and runs without DATABASE_URL.
type MemoryStore struct {
	mu       sync.Mutex
	targets  map[string]*models.Target
	contacts map[string]*models.Contact
	drafts   map[string]*models.Draft
	captures map[string]*models.CaptureRequest
	auths    map[string]*models.AuthRequest
	// seq orders records created within the same clock tick
	seq   int
	order map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		targets:  make(map[string]*models.Target),
		contacts: make(map[string]*models.Contact),
		drafts:   make(map[string]*models.Draft),
		captures: make(map[string]*models.CaptureRequest),
		auths:    make(map[string]*models.AuthRequest),
		order:    make(map[string]int),
	}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) stamp(id *string) {
	newID(id)
	s.seq++
	s.order[*id] = s.seq
}

func (s *MemoryStore) byOrder(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return s.order[ids[i]] < s.order[ids[j]] })
}

func sameHandle(a, b string) bool {
	norm := func(h string) string { return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@")) }
	return norm(a) == norm(b)
}

func (s *MemoryStore) CreateTarget(_ context.Context, t *models.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&t.ID)
	cp := *t
	s.targets[t.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTarget(_ context.Context, id string) (*models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[id]
	if !ok {
		return nil, fmt.Errorf("target: %w", ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) FindTargetByHandle(_ context.Context, handle string) (*models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.targets))
	for id := range s.targets {
		ids = append(ids, id)
	}
	s.byOrder(ids)
	for _, id := range ids {
		if t := s.targets[id]; t.XHandle != "" && sameHandle(t.XHandle, handle) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("target: %w", ErrNotFound)
}

func (s *MemoryStore) FindTargetByName(_ context.Context, name string) (*models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.targets))
	for id := range s.targets {
		ids = append(ids, id)
	}
	s.byOrder(ids)
	for _, id := range ids {
		if t := s.targets[id]; strings.EqualFold(t.TeamName, strings.TrimSpace(name)) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("target: %w", ErrNotFound)
}

func (s *MemoryStore) ListTargetsByStatus(_ context.Context, status models.TargetStatus) ([]models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Target
	for _, t := range s.targets {
		if t.Status == status {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateTargetStatus(_ context.Context, id string, status models.TargetStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[id]
	if !ok {
		return fmt.Errorf("target %s: %w", id, ErrNotFound)
	}
	t.Status = status
	t.UpdatedAt = now
	return nil
}

func (s *MemoryStore) TouchTarget(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.targets[id]; ok {
		t.UpdatedAt = now
	}
	return nil
}

func (s *MemoryStore) CreateContact(_ context.Context, c *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&c.ID)
	cp := *c
	s.contacts[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetContact(_ context.Context, id string) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return nil, fmt.Errorf("contact: %w", ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) UpdateContact(_ context.Context, c *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.contacts[c.ID]
	if !ok {
		return fmt.Errorf("contact %s: %w", c.ID, ErrNotFound)
	}
	cp := *c
	cp.Company = old.Company
	cp.CreatedAt = old.CreatedAt
	s.contacts[c.ID] = &cp
	return nil
}

func (s *MemoryStore) ListContactsByCompany(_ context.Context, company string) ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, c := range s.contacts {
		if strings.EqualFold(c.Company, company) {
			ids = append(ids, id)
		}
	}
	s.byOrder(ids)
	out := make([]models.Contact, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.contacts[id])
	}
	return out, nil
}

func (s *MemoryStore) CountContactsBySource(_ context.Context, company string, source models.ContactSource) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.contacts {
		if strings.EqualFold(c.Company, company) && c.Source == source {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateDraft(_ context.Context, d *models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[d.ContactID]; !ok {
		return fmt.Errorf("failed to create draft: contact %s: %w", d.ContactID, ErrNotFound)
	}
	s.stamp(&d.ID)
	cp := *d
	s.drafts[d.ID] = &cp
	return nil
}

func (s *MemoryStore) GetDraft(_ context.Context, id string) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, fmt.Errorf("draft: %w", ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) ListDrafts(_ context.Context, f DraftFilter) ([]models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, d := range s.drafts {
		if (f.Status == "" || d.Status == f.Status) &&
			(f.EmployeeID == "" || d.EmployeeID == f.EmployeeID) &&
			(f.ContactID == "" || d.ContactID == f.ContactID) {
			ids = append(ids, id)
		}
	}
	s.byOrder(ids)
	if f.Limit > 0 && len(ids) > f.Limit {
		ids = ids[:f.Limit]
	}
	out := make([]models.Draft, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.drafts[id])
	}
	return out, nil
}

func (s *MemoryStore) UpdateDraft(_ context.Context, d *models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.drafts[d.ID]
	if !ok {
		return fmt.Errorf("draft %s: %w", d.ID, ErrNotFound)
	}
	old.MessageText = d.MessageText
	old.Status = d.Status
	old.PreparedAt = d.PreparedAt
	old.UpdatedAt = d.UpdatedAt
	return nil
}

func (s *MemoryStore) UpdateDraftText(_ context.Context, id, text string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return fmt.Errorf("draft %s: %w", id, ErrNotFound)
	}
	if d.PreparedAt != nil || !d.CanEdit() {
		return fmt.Errorf("draft %s: %w", id, ErrDraftLocked)
	}
	d.MessageText = text
	d.UpdatedAt = now
	return nil
}

func (s *MemoryStore) ClaimPendingSends(_ context.Context, employeeID string, now, staleBefore time.Time, limit int) ([]models.PendingSend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, d := range s.drafts {
		c := s.contacts[d.ContactID]
		if d.EmployeeID != employeeID || d.Status != models.DraftApproved || c == nil || c.TelegramHandle == nil {
			continue
		}
		if d.PreparedAt != nil && !d.PreparedAt.Before(staleBefore) {
			continue
		}
		ids = append(ids, id)
	}
	s.byOrder(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]models.PendingSend, 0, len(ids))
	for _, id := range ids {
		d := s.drafts[id]
		at := now
		d.PreparedAt = &at
		c := s.contacts[d.ContactID]
		out = append(out, models.PendingSend{Draft: *d, ContactName: c.Name, Company: c.Company, TelegramHandle: *c.TelegramHandle})
	}
	return out, nil
}

func (s *MemoryStore) CreateCaptureRequest(_ context.Context, r *models.CaptureRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&r.ID)
	cp := *r
	s.captures[r.ID] = &cp
	return nil
}

func (s *MemoryStore) ClaimCaptureRequests(_ context.Context, employeeID string, now, staleBefore time.Time, limit int) ([]models.CaptureRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, r := range s.captures {
		if r.EmployeeID == employeeID && r.Status == models.WorkPending && (r.ClaimedAt == nil || r.ClaimedAt.Before(staleBefore)) {
			ids = append(ids, id)
		}
	}
	s.byOrder(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]models.CaptureRequest, 0, len(ids))
	for _, id := range ids {
		r := s.captures[id]
		at := now
		r.ClaimedAt = &at
		out = append(out, *r)
	}
	return out, nil
}

func (s *MemoryStore) CompleteCaptureRequest(_ context.Context, id, employeeID string, res models.CaptureResult, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.captures[id]
	if !ok || r.EmployeeID != employeeID || r.Status != models.WorkPending {
		return fmt.Errorf("pending capture request %s: %w", id, ErrNotFound)
	}
	r.Status = models.WorkCompleted
	if res.Error != "" {
		r.Status = models.WorkFailed
	}
	r.Transcript = res.Transcript
	r.ErrorMessage = res.Error
	r.CompletedAt = &now
	return nil
}

func (s *MemoryStore) CreateAuthRequest(_ context.Context, r *models.AuthRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&r.ID)
	cp := *r
	s.auths[r.ID] = &cp
	return nil
}

func (s *MemoryStore) ClaimAuthRequests(_ context.Context, employeeID string, now, staleBefore time.Time, limit int) ([]models.AuthRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, r := range s.auths {
		if r.EmployeeID == employeeID && r.Status == models.WorkPending && (r.ClaimedAt == nil || r.ClaimedAt.Before(staleBefore)) {
			ids = append(ids, id)
		}
	}
	s.byOrder(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]models.AuthRequest, 0, len(ids))
	for _, id := range ids {
		r := s.auths[id]
		at := now
		r.ClaimedAt = &at
		out = append(out, *r)
	}
	return out, nil
}

func (s *MemoryStore) CompleteAuthRequest(_ context.Context, id, employeeID, errMsg string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.auths[id]
	if !ok || r.EmployeeID != employeeID || r.Status != models.WorkPending {
		return fmt.Errorf("pending auth request %s: %w", id, ErrNotFound)
	}
	r.Status = models.WorkCompleted
	if errMsg != "" {
		r.Status = models.WorkFailed
	}
	r.ErrorMessage = errMsg
	r.CompletedAt = &now
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*Repository)(nil)
)
