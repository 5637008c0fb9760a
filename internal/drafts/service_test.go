package drafts

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-outreach-automation/internal/ai"
	"go-outreach-automation/internal/database"
	"go-outreach-automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGen struct {
	outbound []ai.OutboundRequest
	err      error
	// during runs while the model is "thinking".
	during func()
}

func (f *fakeGen) GenerateOutbound(_ context.Context, req ai.OutboundRequest) (string, error) {
	f.outbound = append(f.outbound, req)
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return "", f.err
	}
	return "fresh take", nil
}

func (f *fakeGen) GenerateFollowUp(_ context.Context, name, company, original string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "following up, " + name, nil
}

func setup(t *testing.T, status models.DraftStatus) (*Service, *database.MemoryStore, *fakeGen, *models.Draft) {
	t.Helper()
	ctx := context.Background()
	store := database.NewMemoryStore()
	gen := &fakeGen{}
	require.NoError(t, store.CreateTarget(ctx, &models.Target{TeamName: "Acme", XHandle: "acme", Status: models.TargetApproved}))
	handle := "alice_w"
	c := &models.Contact{Name: "Alice", Company: "Acme", TelegramHandle: &handle, Source: models.SourceXDiscovery}
	require.NoError(t, store.CreateContact(ctx, c))
	d := &models.Draft{ContactID: c.ID, EmployeeID: "emp-1", MessageText: "hello", Status: status}
	require.NoError(t, store.CreateDraft(ctx, d))

	svc := NewService(store, gen, nil, zap.NewNop().Sugar())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, store, gen, d
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    models.DraftStatus
		act     func(s *Service, id string) (*models.Draft, error)
		want    models.DraftStatus
		wantErr error
	}{
		{"approve queued", models.DraftQueued, func(s *Service, id string) (*models.Draft, error) { return s.Approve(context.Background(), id) }, models.DraftApproved, nil},
		{"approve twice is a no-op", models.DraftApproved, func(s *Service, id string) (*models.Draft, error) { return s.Approve(context.Background(), id) }, models.DraftApproved, nil},
		{"skip queued", models.DraftQueued, func(s *Service, id string) (*models.Draft, error) { return s.Skip(context.Background(), id) }, models.DraftSkipped, nil},
		{"skip approved", models.DraftApproved, func(s *Service, id string) (*models.Draft, error) { return s.Skip(context.Background(), id) }, models.DraftSkipped, nil},
		{"skipped is terminal", models.DraftSkipped, func(s *Service, id string) (*models.Draft, error) { return s.Approve(context.Background(), id) }, "", models.ErrInvalidTransition},
		{"sent cannot be skipped", models.DraftSent, func(s *Service, id string) (*models.Draft, error) { return s.Skip(context.Background(), id) }, "", models.ErrInvalidTransition},
		{"mark prepared", models.DraftApproved, func(s *Service, id string) (*models.Draft, error) { return s.MarkPrepared(context.Background(), id, "emp-1") }, models.DraftSent, nil},
		{"mark prepared needs approval", models.DraftQueued, func(s *Service, id string) (*models.Draft, error) { return s.MarkPrepared(context.Background(), id, "emp-1") }, "", models.ErrInvalidTransition},
		{"mark prepared other employee", models.DraftApproved, func(s *Service, id string) (*models.Draft, error) { return s.MarkPrepared(context.Background(), id, "emp-2") }, "", database.ErrNotFound},
		{"mark failed on sent", models.DraftSent, func(s *Service, id string) (*models.Draft, error) { return s.MarkFailed(context.Background(), id, "emp-1", "x") }, "", models.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _, d := setup(t, tt.from)
			got, err := tt.act(svc, d.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				stored, _ := store.GetDraft(context.Background(), d.ID)
				assert.Equal(t, tt.from, stored.Status, "refused moves change nothing")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			stored, err := store.GetDraft(context.Background(), d.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Status)
		})
	}
}

func TestMarkFailedReleasesClaim(t *testing.T) {
	svc, store, _, d := setup(t, models.DraftApproved)
	ctx := context.Background()
	now := svc.now()

	claimed, err := store.ClaimPendingSends(ctx, "emp-1", now, now.Add(-10*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	got, err := svc.MarkFailed(ctx, d.ID, "emp-1", "telegram window not found")
	require.NoError(t, err)
	assert.Equal(t, models.DraftApproved, got.Status)
	assert.Nil(t, got.PreparedAt)

	again, err := store.ClaimPendingSends(ctx, "emp-1", now, now.Add(-10*time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, again, 1, "the draft is handed out again")
}

func TestRegenerate(t *testing.T) {
	svc, _, gen, d := setup(t, models.DraftQueued)

	got, err := svc.Regenerate(context.Background(), d.ID)

	require.NoError(t, err)
	assert.Equal(t, "fresh take", got.MessageText)
	assert.Equal(t, models.DraftQueued, got.Status, "status unchanged")
	require.Len(t, gen.outbound, 1)
	assert.True(t, gen.outbound[0].Regenerate)
	assert.Equal(t, "hello", gen.outbound[0].Previous)
	require.NotNil(t, gen.outbound[0].Target)
	assert.Equal(t, "acme", gen.outbound[0].Target.XHandle)
}

func TestRegenerateRefusedAfterSend(t *testing.T) {
	svc, _, _, d := setup(t, models.DraftSent)
	_, err := svc.Regenerate(context.Background(), d.ID)
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestRegenerateFailureKeepsText(t *testing.T) {
	svc, store, gen, d := setup(t, models.DraftQueued)
	gen.err = errors.New("429")

	_, err := svc.Regenerate(context.Background(), d.ID)

	require.Error(t, err)
	stored, _ := store.GetDraft(context.Background(), d.ID)
	assert.Equal(t, "hello", stored.MessageText)
}

func TestEdit(t *testing.T) {
	svc, _, _, d := setup(t, models.DraftApproved)

	got, err := svc.Edit(context.Background(), d.ID, "  new words ")
	require.NoError(t, err)
	assert.Equal(t, "new words", got.MessageText)

	_, err = svc.Edit(context.Background(), d.ID, " ")
	assert.Error(t, err)
}

func TestRegenerateLosesToRelayerClaim(t *testing.T) {
	svc, store, gen, d := setup(t, models.DraftApproved)
	ctx := context.Background()
	claimedAt := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	gen.during = func() {
		sends, err := store.ClaimPendingSends(ctx, "emp-1", claimedAt, claimedAt.Add(-10*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, sends, 1)
	}

	_, err := svc.Regenerate(ctx, d.ID)

	assert.ErrorIs(t, err, ErrNotEditable)
	stored, err := store.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.MessageText, "the relayer sends what it claimed")
	require.NotNil(t, stored.PreparedAt, "the claim survives")
	assert.True(t, stored.PreparedAt.Equal(claimedAt))
}

func TestCreateFollowUp(t *testing.T) {
	svc, store, _, d := setup(t, models.DraftSent)
	ctx := context.Background()

	next, err := svc.CreateFollowUp(ctx, d.ID)

	require.NoError(t, err)
	assert.Equal(t, models.DraftQueued, next.Status)
	require.NotNil(t, next.FollowUpOf)
	assert.Equal(t, d.ID, *next.FollowUpOf)
	assert.Equal(t, "following up, Alice", next.MessageText)

	orig, err := store.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftFollowUp, orig.Status)

	_, err = svc.CreateFollowUp(ctx, d.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition, "only a sent draft can be followed up")
}

func TestCreateFollowUpNeedsSent(t *testing.T) {
	svc, _, _, d := setup(t, models.DraftApproved)
	_, err := svc.CreateFollowUp(context.Background(), d.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}
