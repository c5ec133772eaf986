// Package openai talks to any OpenAI-compatible chat/completions endpoint.
// DeepSeek and OpenRouter are served by the same client with another base URL.
package openai

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
	OpenAIBaseURL     = "https://api.openai.com/v1"
	DeepSeekBaseURL   = "https://api.deepseek.com"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

var defaultModels = map[string]string{
	"openai":     "gpt-4o-mini",
	"deepseek":   "deepseek-chat",
	"openrouter": "deepseek/deepseek-chat",
}

var defaultBaseURLs = map[string]string{
	"openai":     OpenAIBaseURL,
	"deepseek":   DeepSeekBaseURL,
	"openrouter": OpenRouterBaseURL,
}

// Config configures a Client.
type Config struct {
	// Name is the provider flavour: openai, deepseek or openrouter.
	Name        string
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

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// New validates cfg and fills provider defaults.
func New(cfg Config) (*Client, error) {
	cfg.Name = strings.ToLower(strings.TrimSpace(cfg.Name))
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.Newf("%s api key is required", cfg.Name)
	}
	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Name]
	}
	if cfg.Model == "" {
		return nil, errors.Newf("%s model is required", cfg.Name)
	}
	if cfg.BaseURL = strings.TrimSpace(cfg.BaseURL); cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURLs[cfg.Name]
	}
	if cfg.BaseURL == "" {
		return nil, errors.Newf("%s base url is required", cfg.Name)
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

// Complete sends one chat completion and returns the first choice. 429 and
// 5xx responses are retried.
func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	if c.cfg.Name == "openrouter" {
		headers["X-Title"] = "joe-enricher"
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	var resp chatResponse
	err := ai.Retry(ctx, c.cfg.MaxRetries, c.cfg.RetryDelay, c.cfg.Logger, func() error {
		return ai.PostJSON(ctx, c.httpClient, endpoint, headers, body, &resp)
	})
	if err != nil {
		return "", errors.Wrapf(err, "%s chat completion", c.cfg.Name)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Newf("%s returned no choices", c.cfg.Name)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.Newf("%s returned empty content", c.cfg.Name)
	}
	return content, nil
}

func (c *Client) Name() string  { return c.cfg.Name }
func (c *Client) Model() string { return c.cfg.Model }

var _ ai.Provider = (*Client)(nil)
