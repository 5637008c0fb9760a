package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-outreach-automation/internal/apollo"
	"go-outreach-automation/internal/dedup"
	"go-outreach-automation/internal/models"
)

var ErrNoApollo = errors.New("apollo is not configured")

type EnrichResult struct {
	TargetID string `json:"target_id"`
	Found    int    `json:"found"`
	Added    int    `json:"added"`
	Updated  int    `json:"updated"`
}

// Enrich pulls people for a target from Apollo and merges them into its contacts.
func (e *Engine) Enrich(ctx context.Context, targetID string) (*EnrichResult, error) {
	if e.Apollo == nil {
		return nil, ErrNoApollo
	}
	t, err := e.Store.GetTarget(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("load target %s: %w", targetID, err)
	}

	people, err := e.Apollo.SearchPeople(ctx, t.TeamName, domainOf(t.Website))
	if err != nil {
		return nil, fmt.Errorf("apollo search %s: %w", t.TeamName, err)
	}
	for i := range people {
		people[i].Company = t.TeamName
	}

	existing, err := e.Store.ListContactsByCompany(ctx, t.TeamName)
	if err != nil {
		return nil, fmt.Errorf("load contacts for %s: %w", t.TeamName, err)
	}
	merged := apollo.Merge(existing, people)
	res := &EnrichResult{TargetID: t.ID, Found: len(people)}

	for i := range existing {
		if merged[i] == existing[i] {
			continue
		}
		if err := e.Store.UpdateContact(ctx, &merged[i]); err != nil {
			return res, fmt.Errorf("update contact %s: %w", merged[i].ID, err)
		}
		res.Updated++
	}

	index := dedup.NewContactIndex(existing)
	for _, c := range merged[len(existing):] {
		c := c
		if index.Seen(c) {
			continue
		}
		c.CreatedAt = e.now()
		if err := e.Store.CreateContact(ctx, &c); err != nil {
			return res, fmt.Errorf("create contact %s: %w", c.Name, err)
		}
		index.Add(c)
		res.Added++
		e.Metrics.Contact(string(models.SourceApollo), string(c.TelegramValidated))
	}
	if err := e.touch(ctx, t.ID); err != nil {
		return res, err
	}
	e.Log.Infof("🧩 Apollo enrich %s: %d found, %d added, %d updated", t.TeamName, res.Found, res.Added, res.Updated)
	return res, nil
}

func domainOf(website string) string {
	d := strings.TrimSpace(strings.ToLower(website))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return d
}
