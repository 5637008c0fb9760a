// Package relayer is the desktop side of outreach delivery. It polls the server for work,
// drives the local Telegram app, and reports back.
package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-outreach-automation/internal/models"
)

const (
	HeaderEmployeeID = "X-Employee-ID"
	HeaderAPIKey     = "X-Relayer-API-Key"
	basePath         = "/api/relayer"
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Route string
	Code  int
	Body  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relayer %s: server returned %d: %s", e.Route, e.Code, e.Body)
}

// API is the server's relayer surface.
type API interface {
	PendingSends(ctx context.Context) ([]models.PendingSend, error)
	CaptureRequests(ctx context.Context) ([]models.CaptureRequest, error)
	AuthRequests(ctx context.Context) ([]models.AuthRequest, error)
	MarkPrepared(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
	CompleteCapture(ctx context.Context, id string, res models.CaptureResult) error
	CompleteAuth(ctx context.Context, id string, res models.AuthResult) error
}

type Client struct {
	baseURL    string
	employeeID string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, employeeID, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		employeeID: employeeID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, route string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s body: %w", route, err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+basePath+"/"+route, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", route, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderEmployeeID, c.employeeID)
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relayer %s: %w", route, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", route, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Route: route, Code: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	return nil
}

func (c *Client) PendingSends(ctx context.Context) ([]models.PendingSend, error) {
	var out []models.PendingSend
	if err := c.do(ctx, http.MethodGet, "approved-pending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CaptureRequests(ctx context.Context) ([]models.CaptureRequest, error) {
	var out []models.CaptureRequest
	if err := c.do(ctx, http.MethodGet, "capture-requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AuthRequests(ctx context.Context) ([]models.AuthRequest, error) {
	var out []models.AuthRequest
	if err := c.do(ctx, http.MethodGet, "x-auth-requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkPrepared(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "mark-prepared/"+url.PathEscape(id), nil, nil)
}

func (c *Client) MarkFailed(ctx context.Context, id, reason string) error {
	return c.do(ctx, http.MethodPost, "mark-failed/"+url.PathEscape(id), models.FailureReport{Reason: reason}, nil)
}

func (c *Client) CompleteCapture(ctx context.Context, id string, res models.CaptureResult) error {
	return c.do(ctx, http.MethodPost, "capture-complete/"+url.PathEscape(id), res, nil)
}

func (c *Client) CompleteAuth(ctx context.Context, id string, res models.AuthResult) error {
	return c.do(ctx, http.MethodPost, "x-auth-complete/"+url.PathEscape(id), res, nil)
}
