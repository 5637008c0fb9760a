package database

import (
	"context"
	"testing"
	"time"

	"go-outreach-automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDraft(t *testing.T, s *MemoryStore, employee string, handle *string, status models.DraftStatus) *models.Draft {
	t.Helper()
	ctx := context.Background()
	c := &models.Contact{Name: "Alice", Company: "Acme", TelegramHandle: handle, Source: models.SourceXDiscovery}
	require.NoError(t, s.CreateContact(ctx, c))
	d := &models.Draft{ContactID: c.ID, EmployeeID: employee, MessageText: "hi", Status: status}
	require.NoError(t, s.CreateDraft(ctx, d))
	return d
}

func TestMemoryClaimPendingSends(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	handle := "alice_w"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := 10 * time.Minute

	d1 := seedDraft(t, s, "emp-1", &handle, models.DraftApproved)
	seedDraft(t, s, "emp-2", &handle, models.DraftApproved)
	seedDraft(t, s, "emp-1", &handle, models.DraftQueued)
	seedDraft(t, s, "emp-1", nil, models.DraftApproved)

	claimed, err := s.ClaimPendingSends(ctx, "emp-1", now, now.Add(-ttl), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, d1.ID, claimed[0].ID)
	assert.Equal(t, "alice_w", claimed[0].TelegramHandle)
	assert.Equal(t, "Acme", claimed[0].Company)

	again, err := s.ClaimPendingSends(ctx, "emp-1", now.Add(time.Minute), now.Add(time.Minute-ttl), 10)
	require.NoError(t, err)
	assert.Empty(t, again, "a fresh claim is not handed out twice")

	later := now.Add(ttl + time.Minute)
	stale, err := s.ClaimPendingSends(ctx, "emp-1", later, later.Add(-ttl), 10)
	require.NoError(t, err)
	assert.Len(t, stale, 1, "stale claims are re-listed")

	got, err := s.GetDraft(ctx, d1.ID)
	require.NoError(t, err)
	require.NoError(t, got.Transition(models.DraftApproved, later))
	require.NoError(t, s.UpdateDraft(ctx, got))

	retry, err := s.ClaimPendingSends(ctx, "emp-1", later, later.Add(-ttl), 10)
	require.NoError(t, err)
	assert.Len(t, retry, 1, "clearing prepared_at releases the claim")
}

func TestMemoryUpdateDraftTextRespectsClaim(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	handle := "alice_w"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := seedDraft(t, s, "emp-1", &handle, models.DraftApproved)

	require.NoError(t, s.UpdateDraftText(ctx, d.ID, "edited", now))
	_, err := s.ClaimPendingSends(ctx, "emp-1", now, now.Add(-10*time.Minute), 10)
	require.NoError(t, err)

	err = s.UpdateDraftText(ctx, d.ID, "too late", now)
	assert.ErrorIs(t, err, ErrDraftLocked)
	assert.ErrorIs(t, s.UpdateDraftText(ctx, "missing", "x", now), ErrNotFound)

	got, err := s.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.MessageText)
	assert.NotNil(t, got.PreparedAt)
}

func TestMemoryTargetsAndContacts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateTarget(ctx, &models.Target{TeamName: "Acme", XHandle: "@Acme", Status: models.TargetApproved}))
	found, err := s.FindTargetByHandle(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", found.TeamName)

	_, err = s.FindTargetByHandle(ctx, "globex")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateContact(ctx, &models.Contact{Name: "A", Company: "Acme", Source: models.SourceXDiscovery}))
	require.NoError(t, s.CreateContact(ctx, &models.Contact{Name: "B", Company: "acme", Source: models.SourceApollo}))
	require.NoError(t, s.CreateContact(ctx, &models.Contact{Name: "C", Company: "Globex", Source: models.SourceXDiscovery}))

	n, err := s.CountContactsBySource(ctx, "ACME", models.SourceXDiscovery)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := s.ListContactsByCompany(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Name)
}

func TestMemoryWorkRequests(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	req := &models.CaptureRequest{EmployeeID: "emp-1", TelegramHandle: "alice_w", Status: models.WorkPending}
	require.NoError(t, s.CreateCaptureRequest(ctx, req))

	claimed, err := s.ClaimCaptureRequests(ctx, "emp-1", now, now.Add(-time.Minute), 5)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	assert.ErrorIs(t, s.CompleteCaptureRequest(ctx, req.ID, "emp-2", models.CaptureResult{}, now), ErrNotFound)
	require.NoError(t, s.CompleteCaptureRequest(ctx, req.ID, "emp-1", models.CaptureResult{Transcript: "hello"}, now))
	assert.ErrorIs(t, s.CompleteCaptureRequest(ctx, req.ID, "emp-1", models.CaptureResult{}, now), ErrNotFound)

	auth := &models.AuthRequest{EmployeeID: "emp-1", Platform: "x", Status: models.WorkPending}
	require.NoError(t, s.CreateAuthRequest(ctx, auth))
	require.NoError(t, s.CompleteAuthRequest(ctx, auth.ID, "emp-1", "login timed out", now))
	pending, err := s.ClaimAuthRequests(ctx, "emp-1", now, now, 5)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@host:5432/db", migrateURL("postgres://u:p@host:5432/db"))
	assert.Equal(t, "pgx5://host/db", migrateURL("postgresql://host/db"))
}
