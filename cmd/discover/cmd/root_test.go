package cmd

import (
	"bytes"
	"context"
	"testing"

	"go-outreach-automation/internal/app"
	"go-outreach-automation/internal/database"
	"go-outreach-automation/internal/models"
	"go-outreach-automation/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		handles, targetIDs, approved, maxResults, asJSON = nil, nil, false, 0, false
	})
}

func TestRequests(t *testing.T) {
	resetFlags(t)
	store := database.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateTarget(ctx, &models.Target{TeamName: "Acme", Status: models.TargetApproved}))
	require.NoError(t, store.CreateTarget(ctx, &models.Target{TeamName: "Initech", Status: models.TargetPending}))
	a := &app.App{Store: store}

	_, err := requests(ctx, a)
	assert.Error(t, err, "no flags means nothing to do")

	handles = []string{"globex"}
	approved = true
	maxResults = 7
	reqs, err := requests(ctx, a)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "globex", reqs[0].Handle)
	assert.NotEmpty(t, reqs[1].TargetID)
	assert.Equal(t, 7, reqs[1].MaxResults)
}

func TestPrintItems(t *testing.T) {
	resetFlags(t)
	items := []workflow.BatchItem{
		{Request: workflow.Request{Handle: "acmehq"}, Result: &workflow.Result{Company: "Acme", Candidates: 4, Valid: 2, Invalid: 1, Indeterminate: []string{"x"}, Drafts: []models.Draft{{}, {}}}},
		{Request: workflow.Request{Handle: "globex"}, Result: &workflow.Result{}, Error: "x rate_limited: slow down"},
	}

	var buf bytes.Buffer
	printItems(&buf, items)

	assert.Contains(t, buf.String(), "✅ Acme: 4 candidates, 2 valid, 1 invalid, 1 unknown, 0 duplicates, 2 drafts")
	assert.Contains(t, buf.String(), "❌ globex: x rate_limited: slow down")

	buf.Reset()
	asJSON = true
	printItems(&buf, items)
	assert.Contains(t, buf.String(), `"handle": "acmehq"`)
}
