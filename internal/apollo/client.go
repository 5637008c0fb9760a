// Package apollo pulls people for a company from the Apollo people search API and
// merges them with contacts found elsewhere.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-outreach-automation/internal/filter"
	"go-outreach-automation/internal/models"
)

const searchURL = "https://api.apollo.io/api/v1/mixed_people/search"

// DefaultTitles are the roles outreach is pitched to.
var DefaultTitles = []string{"founder", "co-founder", "ceo", "cto", "head of growth", "business development", "partnerships"}

// Searcher returns people working at a company.
type Searcher interface {
	SearchPeople(ctx context.Context, company, domain string) ([]models.Contact, error)
}

type Client struct {
	apiKey     string
	url        string
	titles     []string
	perPage    int
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		url:        searchURL,
		titles:     DefaultTitles,
		perPage:    25,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithURL points the client at another endpoint.
func (c *Client) WithURL(u string) *Client {
	c.url = u
	return c
}

type searchRequest struct {
	OrganizationName string   `json:"q_organization_name,omitempty"`
	Domains          []string `json:"q_organization_domains_list,omitempty"`
	Titles           []string `json:"person_titles,omitempty"`
	Page             int      `json:"page"`
	PerPage          int      `json:"per_page"`
}

type person struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	TwitterURL   string `json:"twitter_url"`
	Organization *struct {
		Name string `json:"name"`
	} `json:"organization"`
}

type searchResponse struct {
	People []person `json:"people"`
}

func (c *Client) SearchPeople(ctx context.Context, company, domain string) ([]models.Contact, error) {
	body := searchRequest{OrganizationName: company, Titles: c.titles, Page: 1, PerPage: c.perPage}
	if domain != "" {
		body.Domains = []string{domain}
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal apollo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apollo request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("apollo returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed searchResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode apollo response: %w", err)
	}

	out := make([]models.Contact, 0, len(parsed.People))
	for _, p := range parsed.People {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = strings.TrimSpace(p.FirstName + " " + p.LastName)
		}
		if name == "" {
			continue
		}
		org := company
		if p.Organization != nil && p.Organization.Name != "" {
			org = p.Organization.Name
		}
		out = append(out, models.Contact{
			Name:              name,
			Company:           org,
			Title:             p.Title,
			XUsername:         twitterUsername(p.TwitterURL),
			Source:            models.SourceApollo,
			TelegramValidated: models.TelegramUnknown,
		})
	}
	return out, nil
}

func twitterUsername(u string) string {
	u = strings.TrimSpace(u)
	for _, prefix := range []string{"https://", "http://", "www.", "twitter.com/", "x.com/"} {
		u = strings.TrimPrefix(u, prefix)
	}
	if i := strings.IndexAny(u, "/?"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimPrefix(u, "@")
}

func nameKey(name string) string {
	return strings.Join(strings.Fields(filter.NormalizeText(name)), " ")
}

// Merge folds apollo contacts into existing ones, matching by normalized full name.
// Apollo wins profile fields it has a value for. A Telegram handle that already passed
// validation is never replaced, and a handle taken from apollo is stored as unknown until
// it is checked. The existing source is kept. Unmatched apollo contacts are appended.
func Merge(existing, fromApollo []models.Contact) []models.Contact {
	out := make([]models.Contact, len(existing))
	copy(out, existing)

	byName := make(map[string]int, len(out))
	for i, c := range out {
		byName[nameKey(c.Name)] = i
	}

	for _, a := range fromApollo {
		if a.TelegramHandle != nil {
			a.TelegramValidated = models.TelegramUnknown
		}
		key := nameKey(a.Name)
		i, ok := byName[key]
		if !ok {
			byName[key] = len(out)
			out = append(out, a)
			continue
		}
		merged := out[i]
		if a.Title != "" {
			merged.Title = a.Title
		}
		if a.XUsername != "" {
			merged.XUsername = a.XUsername
		}
		if a.TelegramHandle != nil && *a.TelegramHandle != merged.Handle() && merged.TelegramValidated != models.TelegramValid {
			merged.TelegramHandle = a.TelegramHandle
			merged.TelegramValidated = models.TelegramUnknown
		}
		if a.XBio != "" {
			merged.XBio = a.XBio
		}
		out[i] = merged
	}
	return out
}
