package generative

import (
	"context"
	"fmt"
	"net/http"
)

type openAIRequest struct {
	Model          string            `json:"model"`
	MaxTokens      int               `json:"max_tokens"`
	Messages       []openAIMessage   `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// openAIClient calls the Chat Completions API.
type openAIClient struct {
	*httpClient
	model     string
	maxTokens int
}

func newOpenAIClient(cfg Config) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key required", ErrInvalidConfig)
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIClient{
		httpClient: newHTTPClient(cfg, defaultOpenAIBaseURL, func(h http.Header) {
			h.Set("Authorization", "Bearer "+cfg.APIKey)
		}),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (o *openAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := openAIRequest{
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		Temperature: 0,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	var resp openAIResponse
	if err := o.post(ctx, "/v1/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty response", ErrBadResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
