package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	grokURL          = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel     = "llama-3.3-70b-versatile"
	defaultVisionMod = "meta-llama/llama-4-scout-17b-16e-instruct"
)

type grokClient struct {
	apiKey      string
	url         string
	model       string
	visionModel string
	httpClient  *http.Client
}

type Option func(*grokClient)

// WithBaseURL points the client at another OpenAI-compatible endpoint.
// An empty URL keeps the default.
func WithBaseURL(u string) Option {
	return func(c *grokClient) {
		if u != "" {
			c.url = u
		}
	}
}

func WithModels(text, vision string) Option {
	return func(c *grokClient) {
		if text != "" {
			c.model = text
		}
		if vision != "" {
			c.visionModel = vision
		}
	}
}

// NewGrokClient creates an OpenAI-compatible chat client (Groq by default)
func NewGrokClient(apiKey string, opts ...Option) Client {
	c := &grokClient{
		apiKey:      apiKey,
		url:         grokURL,
		model:       defaultModel,
		visionModel: defaultVisionMod,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type grokMessage struct {
	Role string `json:"role"`
	// Content is a string, or a list of parts for vision requests.
	Content any `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type grokRequest struct {
	Model       string        `json:"model"`
	Messages    []grokMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type grokResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *grokClient) GenerateOutbound(ctx context.Context, req OutboundRequest) (string, error) {
	temp := 0.7
	if req.Regenerate {
		temp = 0.9
	}
	return c.complete(ctx, c.model, temp, []grokMessage{
		{Role: "system", Content: buildOutboundSystemPrompt()},
		{Role: "user", Content: buildOutboundUserPrompt(req)},
	})
}

func (c *grokClient) GenerateFollowUp(ctx context.Context, name, company, original string) (string, error) {
	return c.complete(ctx, c.model, 0.7, []grokMessage{
		{Role: "system", Content: buildOutboundSystemPrompt()},
		{Role: "user", Content: buildFollowUpPrompt(name, company, original)},
	})
}

func (c *grokClient) ExtractConversation(ctx context.Context, screenshotPNG []byte) (string, error) {
	if len(screenshotPNG) == 0 {
		return "", fmt.Errorf("empty screenshot")
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(screenshotPNG)
	return c.complete(ctx, c.visionModel, 0.1, []grokMessage{
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: extractPrompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}},
	})
}

func (c *grokClient) complete(ctx context.Context, model string, temperature float64, messages []grokMessage) (string, error) {
	jsonData, err := json.Marshal(grokRequest{Model: model, Messages: messages, Temperature: temperature})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var grokResp grokResponse
	if err := json.Unmarshal(bodyBytes, &grokResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if grokResp.Error != nil {
		return "", fmt.Errorf("API error: %s", grokResp.Error.Message)
	}
	if len(grokResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from chat API")
	}

	text := cleanMessage(grokResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("chat API returned an empty message")
	}
	return text, nil
}

// cleanMessage strips code fences and wrapping quotes the model sometimes adds.
func cleanMessage(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if i := strings.IndexByte(content, '\n'); i >= 0 && !strings.Contains(content[:i], " ") {
			content = content[i+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	content = strings.TrimSpace(content)
	if len(content) >= 2 && content[0] == '"' && content[len(content)-1] == '"' {
		content = content[1 : len(content)-1]
	}
	return strings.TrimSpace(content)
}
