package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-outreach-automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRoutesAndHeaders(t *testing.T) {
	type call struct {
		method, path, employee, key string
		body                        map[string]any
	}
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{method: r.Method, path: r.URL.Path, employee: r.Header.Get(HeaderEmployeeID), key: r.Header.Get(HeaderAPIKey)}
		if r.ContentLength > 0 {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&c.body))
		}
		calls = append(calls, c)
		switch r.URL.Path {
		case "/api/relayer/approved-pending":
			_, _ = w.Write([]byte(`[{"id":"d1","message_text":"hi","status":"approved","telegram_handle":"alice_w","contact_name":"Alice"}]`))
		case "/api/relayer/capture-requests", "/api/relayer/x-auth-requests":
			_, _ = w.Write([]byte(`[]`))
		default:
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "emp-1", "secret")
	ctx := context.Background()

	sends, err := c.PendingSends(ctx)
	require.NoError(t, err)
	require.Len(t, sends, 1)
	assert.Equal(t, "d1", sends[0].ID)
	assert.Equal(t, "alice_w", sends[0].TelegramHandle)
	assert.Equal(t, models.DraftApproved, sends[0].Status)

	captures, err := c.CaptureRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, captures)
	_, err = c.AuthRequests(ctx)
	require.NoError(t, err)

	require.NoError(t, c.MarkPrepared(ctx, "d1"))
	require.NoError(t, c.MarkFailed(ctx, "d2", "window not found"))
	require.NoError(t, c.CompleteCapture(ctx, "c1", models.CaptureResult{Transcript: "Me: hi"}))
	require.NoError(t, c.CompleteAuth(ctx, "a1", models.AuthResult{Error: "timeout"}))

	require.Len(t, calls, 7)
	for _, cl := range calls {
		assert.Equal(t, "emp-1", cl.employee)
		assert.Equal(t, "secret", cl.key)
	}
	assert.Equal(t, "/api/relayer/mark-prepared/d1", calls[3].path)
	assert.Equal(t, http.MethodPost, calls[4].method)
	assert.Equal(t, "window not found", calls[4].body["reason"])
	assert.Equal(t, "/api/relayer/capture-complete/c1", calls[5].path)
	assert.Equal(t, "/api/relayer/x-auth-complete/a1", calls[6].path)
}

func TestClientOmitsEmptyKey(t *testing.T) {
	var present bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header[http.CanonicalHeaderKey(HeaderAPIKey)]
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "emp-1", "").PendingSends(context.Background())
	require.NoError(t, err)
	assert.False(t, present)
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized","message":"bad key"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "emp-1", "wrong").MarkPrepared(context.Background(), "d1")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "mark-prepared/d1", se.Route)
	assert.Contains(t, se.Error(), "bad key")
}
