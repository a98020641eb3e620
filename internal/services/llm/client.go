package llm

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

	"commentator/internal/services"
	"commentator/internal/services/httpx"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1/chat/completions"
	defaultHTTPTimeout = 30 * time.Second
	DefaultMaxTokens   = 300
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	TimeoutSeconds int
}

// Client wraps an OpenAI-compatible chat completion API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retrier    httpx.Retrier
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetrier overrides the retry policy.
func WithRetrier(r httpx.Retrier) Option {
	return func(c *Client) {
		c.retrier = r
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			MaxTokens:      cfg.MaxTokens,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		retrier:    httpx.NewRetrier(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.MaxTokens <= 0 {
		client.cfg.MaxTokens = DefaultMaxTokens
	}
	return client
}

// Model returns the backend model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

type chatCompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatCompletionMessage `json:"message"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

type emptyContentError struct {
	FinishReason string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("empty content (finish_reason=%q, response_snippet=%s)", e.FinishReason, e.Snippet)
}

type refusalError struct {
	Refusal string
}

func (e *refusalError) Error() string {
	return fmt.Sprintf("content refused: %s", e.Refusal)
}

// Complete sends the ordered messages and returns the single completion text.
// Failures are tagged services.ErrBackend (or services.ErrTimeout when a
// deadline expired); no partial text is ever returned.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", services.Wrap(services.ErrValidation, "llm", "complete", "at least one message required", nil)
	}
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete", "api key required", nil)
	}
	if c.cfg.Model == "" {
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete", "model required", nil)
	}
	payload := chatCompletionRequest{
		Model:     c.cfg.Model,
		Messages:  messages,
		MaxTokens: c.cfg.MaxTokens,
	}

	var content string
	err := c.retrier.Do(ctx, "llm complete", func(ctx context.Context) error {
		completion, body, err := c.sendOnce(ctx, payload)
		if err != nil {
			return err
		}
		text, finishReason, refusal := extractCompletion(completion)
		if refusal != "" {
			return &refusalError{Refusal: refusal}
		}
		if text == "" {
			if finishReason == "content_filter" {
				return &refusalError{Refusal: "content_filter"}
			}
			return &httpx.RetryableError{Err: &emptyContentError{FinishReason: finishReason, Snippet: httpx.Snippet(string(body))}}
		}
		content = text
		return nil
	})
	if err != nil {
		if httpx.IsTimeout(err) {
			return "", services.Wrap(services.ErrTimeout, "llm", "complete", fmt.Sprintf("timeout=%s", c.timeoutDuration()), errors.Join(services.ErrBackend, err))
		}
		return "", services.Wrap(services.ErrBackend, "llm", "complete", "", err)
	}
	return content, nil
}

func extractCompletion(completion chatCompletionResponse) (string, string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
			return "", finishReason, refusal
		}
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, finishReason, ""
		}
	}
	return "", finishReason, ""
}

func (c *Client) sendOnce(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, []byte, error) {
	var completion chatCompletionResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := httpx.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return completion, body, &httpx.StatusError{
			Op:         "llm request",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, fmt.Errorf("llm request: decode response: %w (payload snippet: %s)", err, httpx.Snippet(string(body)))
	}
	if completion.Error != nil {
		return completion, body, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, body, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}
