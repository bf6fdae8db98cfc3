package generative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

var (
	// ErrInvalidConfig indicates invalid client configuration.
	ErrInvalidConfig = errors.New("invalid generative config")

	// ErrProviderUnavailable indicates the model could not be reached or
	// kept failing after retries.
	ErrProviderUnavailable = errors.New("generative provider unavailable")

	// ErrBadResponse indicates the model answered outside the JSON contract.
	ErrBadResponse = errors.New("generative response malformed")
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-haiku-20241022"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultMaxTokens        = 2048
	defaultTimeout          = 2 * time.Minute
	defaultMaxRetries       = 3
	defaultBaseBackoff      = 1 * time.Second

	// 50 requests per minute with small bursts.
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5

	maxErrorBody = 512
)

// Client sends a single prompt and returns the model's text.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config configures a Client.
type Config struct {
	// Provider is anthropic, openai or ollama.
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	MaxTokens int
	Timeout   time.Duration
}

// NewClient builds the client named by cfg.Provider.
func NewClient(cfg Config) (Client, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	switch cfg.Provider {
	case "anthropic":
		return newAnthropicClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	case "ollama":
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// retryableError marks failures worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// httpClient is the transport shared by the hosted providers: rate limited,
// retried with exponential backoff on 429, 5xx and network errors.
type httpClient struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	headers    func(h http.Header)
}

func newHTTPClient(cfg Config, baseURL string, headers func(h http.Header)) *httpClient {
	if cfg.BaseURL != "" {
		baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &httpClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		maxRetries: defaultMaxRetries,
		backoff:    defaultBaseBackoff,
		headers:    headers,
	}
}

// post sends body to path and decodes a 200 response into out.
func (c *httpClient) post(ctx context.Context, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.backoff
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxRetries)), ctx)

	op := func() error {
		err := c.do(ctx, path, payload, out)
		if err != nil && !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, policy); err != nil {
		if isRetryableError(err) {
			return fmt.Errorf("%w: max retries exceeded: %v", ErrProviderUnavailable, err)
		}
		return err
	}
	return nil
}

func (c *httpClient) do(ctx context.Context, path string, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.headers(req.Header)

	resp, err := c.client.Do(req)
	if err != nil {
		return &retryableError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &retryableError{err: fmt.Errorf("rate limited (429)")}
	case resp.StatusCode >= 500:
		return &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, c.scrub(body))}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: API error (%d): %s", ErrProviderUnavailable, resp.StatusCode, c.scrub(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrBadResponse, err)
	}
	return nil
}

// scrub keeps error bodies short and never echoes the API key.
func (c *httpClient) scrub(body []byte) string {
	s := string(body)
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	if c.apiKey != "" {
		s = strings.ReplaceAll(s, c.apiKey, "[REDACTED]")
	}
	return s
}
