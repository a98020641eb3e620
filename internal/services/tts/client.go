package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"commentator/internal/services"
	"commentator/internal/services/httpx"
)

const (
	defaultBaseURL     = "https://api.elevenlabs.io"
	defaultModel       = "eleven_monolingual_v1"
	defaultHTTPTimeout = 30 * time.Second
	defaultAccept      = "audio/mpeg"
)

// Config captures the settings required to reach the synthesis backend.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	OutputFormat   string
	TimeoutSeconds int
}

// Client wraps the text-to-speech endpoint.
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

// NewClient constructs a synthesis client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			OutputFormat:   strings.TrimSpace(cfg.OutputFormat),
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
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

// Request is a single synthesis call.
type Request struct {
	Text    string
	VoiceID string
}

type synthesisPayload struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize renders the text and copies the audio stream into dst. dst only
// receives bytes from a successful response; on retry the partial body of a
// failed attempt is never written.
func (c *Client) Synthesize(ctx context.Context, req Request, dst io.Writer) (int64, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return 0, services.Wrap(services.ErrValidation, "tts", "synthesize", "text required", nil)
	}
	voice := strings.TrimSpace(req.VoiceID)
	if voice == "" {
		return 0, services.Wrap(services.ErrConfiguration, "tts", "synthesize", "voice id required", nil)
	}
	if c.cfg.APIKey == "" {
		return 0, services.Wrap(services.ErrConfiguration, "tts", "synthesize", "api key required", nil)
	}
	endpoint, err := c.endpoint(voice)
	if err != nil {
		return 0, services.Wrap(services.ErrConfiguration, "tts", "synthesize", "build url", err)
	}
	encoded, err := json.Marshal(synthesisPayload{Text: text, ModelID: c.cfg.Model})
	if err != nil {
		return 0, fmt.Errorf("tts request: encode body: %w", err)
	}

	var audio []byte
	err = c.retrier.Do(ctx, "tts synthesize", func(ctx context.Context) error {
		body, err := c.sendOnce(ctx, endpoint, encoded)
		if err != nil {
			return err
		}
		if len(body) == 0 {
			return &httpx.RetryableError{Err: errors.New("tts request: empty audio body")}
		}
		audio = body
		return nil
	})
	if err != nil {
		if httpx.IsTimeout(err) {
			return 0, services.Wrap(services.ErrTimeout, "tts", "synthesize", fmt.Sprintf("voice=%s", voice), errors.Join(services.ErrBackend, err))
		}
		return 0, services.Wrap(services.ErrBackend, "tts", "synthesize", fmt.Sprintf("voice=%s", voice), err)
	}
	n, err := io.Copy(dst, bytes.NewReader(audio))
	if err != nil {
		return n, fmt.Errorf("tts write audio: %w", err)
	}
	return n, nil
}

func (c *Client) endpoint(voice string) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1", "text-to-speech", voice)
	if err != nil {
		return "", err
	}
	if c.cfg.OutputFormat == "" {
		return endpoint, nil
	}
	return endpoint + "?" + url.Values{"output_format": []string{c.cfg.OutputFormat}}.Encode(), nil
}

func (c *Client) sendOnce(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts request: new request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", defaultAccept)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: http error: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := httpx.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &httpx.StatusError{
			Op:         "tts request",
			StatusCode: resp.StatusCode,
			Body:       httpx.Snippet(string(payload)),
			RetryAfter: retryAfter,
		}
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
		return nil, fmt.Errorf("tts request: expected audio, got json: %s", httpx.Snippet(string(payload)))
	}
	return payload, nil
}
