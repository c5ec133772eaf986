// Package anthropic calls the Anthropic Messages API.
package anthropic

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/ai"
)

const (
	DefaultModel = "claude-sonnet-4-20250514"
	BaseURL      = "https://api.anthropic.com/v1"
	APIVersion   = "2023-06-01"

	defaultMaxTokens = 4096
)

// Config configures a Client.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
	// MaxRetries is the number of attempts for 429 and 5xx responses.
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Client implements ai.Provider.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic api key is required")
	}
	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL = strings.TrimSpace(cfg.BaseURL); cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = ai.DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = ai.DefaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: ai.DefaultHTTPTimeout}
	}
	return &Client{cfg: cfg, httpClient: client}, nil
}

// Complete sends a single-turn message and joins the text blocks of the reply.
// 429 and 5xx responses are retried.
func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	system := strings.TrimSpace(req.System)
	if system == "" {
		system = "You are a helpful assistant."
	}

	body := messagesRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		System:      system,
		Temperature: c.cfg.Temperature,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
	}

	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": APIVersion,
	}

	var resp messagesResponse
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/messages"
	err := ai.Retry(ctx, c.cfg.MaxRetries, c.cfg.RetryDelay, c.cfg.Logger, func() error {
		return ai.PostJSON(ctx, c.httpClient, endpoint, headers, body, &resp)
	})
	if err != nil {
		return "", errors.Wrap(err, "anthropic messages")
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(content.String())
	if text == "" {
		return "", errors.Newf("anthropic returned no text (stop_reason=%s)", resp.StopReason)
	}
	return text, nil
}

func (c *Client) Name() string  { return "anthropic" }
func (c *Client) Model() string { return c.cfg.Model }

var _ ai.Provider = (*Client)(nil)
