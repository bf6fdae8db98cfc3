package generative

import (
	"context"
	"fmt"
	"net/http"
)

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// anthropicClient calls the Messages API.
type anthropicClient struct {
	*httpClient
	model     string
	maxTokens int
}

func newAnthropicClient(cfg Config) (*anthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key required", ErrInvalidConfig)
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicClient{
		httpClient: newHTTPClient(cfg, defaultAnthropicBaseURL, func(h http.Header) {
			h.Set("X-API-Key", cfg.APIKey)
			h.Set("Anthropic-Version", "2023-06-01")
		}),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (a *anthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := anthropicRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: 0,
		System:      systemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	}
	var resp anthropicResponse
	if err := a.post(ctx, "/v1/messages", req, &resp); err != nil {
		return "", err
	}
	for _, c := range resp.Content {
		if c.Type == "text" && c.Text != "" {
			return c.Text, nil
		}
	}
	return "", fmt.Errorf("%w: empty response", ErrBadResponse)
}
