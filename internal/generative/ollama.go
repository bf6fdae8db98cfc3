package generative

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// ollamaClient runs a local model through langchaingo.
type ollamaClient struct {
	llm       llms.Model
	maxTokens int
}

func newOllamaClient(cfg Config) (*ollamaClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: ollama model required", ErrInvalidConfig)
	}
	opts := []ollama.Option{
		ollama.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	return &ollamaClient{llm: llm, maxTokens: cfg.MaxTokens}, nil
}

func (o *ollamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, o.llm, systemPrompt+"\n\n"+prompt,
		llms.WithTemperature(0),
		llms.WithMaxTokens(o.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return out, nil
}
