package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-outreach-automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, status int, reply string, seen *grokRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateOutbound(t *testing.T) {
	var seen grokRequest
	srv := chatServer(t, http.StatusOK, "```\nHey Alice,\n\nQuick one.\n```", &seen)
	c := NewGrokClient("test-key", WithBaseURL(srv.URL))

	text, err := c.GenerateOutbound(context.Background(), OutboundRequest{
		Contact:    models.Contact{Name: "Alice", Company: "Acme", XBio: "BD @acme"},
		Regenerate: true,
		Previous:   "old text",
	})

	require.NoError(t, err)
	assert.Equal(t, "Hey Alice,\n\nQuick one.", text)
	assert.Equal(t, defaultModel, seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Contains(t, seen.Messages[1].Content, "old text")
	assert.InDelta(t, 0.9, seen.Temperature, 0.001)
}

func TestExtractConversationSendsImage(t *testing.T) {
	var seen grokRequest
	srv := chatServer(t, http.StatusOK, "Me: hi\nThem: hello", &seen)
	c := NewGrokClient("test-key", WithBaseURL(srv.URL), WithModels("", "vision-x"))

	text, err := c.ExtractConversation(context.Background(), []byte{0x89, 'P', 'N', 'G'})

	require.NoError(t, err)
	assert.Equal(t, "Me: hi\nThem: hello", text)
	assert.Equal(t, "vision-x", seen.Model)
	parts, ok := seen.Messages[0].Content.([]any)
	require.True(t, ok)
	assert.Len(t, parts, 2)
}

func TestChatErrors(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "", nil)
	c := NewGrokClient("test-key", WithBaseURL(srv.URL))

	_, err := c.GenerateFollowUp(context.Background(), "Alice", "Acme", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = c.ExtractConversation(context.Background(), nil)
	assert.Error(t, err)
}

func TestCleanMessage(t *testing.T) {
	tests := map[string]string{
		"plain":                 "plain",
		"\"quoted\"":            "quoted",
		"```text\nfenced\n```": "fenced",
		"```\nHey there\n```":   "Hey there",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanMessage(in), in)
	}
}
