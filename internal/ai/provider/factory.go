// Package provider selects the LLM backend once at startup.
package provider

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/ai"
	"github.com/spigell/joe-enricher/internal/ai/anthropic"
	"github.com/spigell/joe-enricher/internal/ai/gemini"
	"github.com/spigell/joe-enricher/internal/ai/openai"
)

// Names lists the supported providers.
var Names = []string{"deepseek", "openai", "openrouter", "anthropic", "gemini"}

// Config is the provider-agnostic LLM configuration.
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
}

// EnvKeys returns the environment variables conventionally holding the API
// key for name.
func EnvKeys(name string) []string {
	switch normalize(name) {
	case "deepseek":
		return []string{"DEEPSEEK_API_KEY"}
	case "openai":
		return []string{"OPENAI_API_KEY"}
	case "openrouter":
		return []string{"OPENROUTER_API_KEY"}
	case "anthropic":
		return []string{"ANTHROPIC_API_KEY"}
	case "gemini":
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	return nil
}

// Supported reports whether name is a known provider.
func Supported(name string) bool {
	name = normalize(name)
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// New constructs the provider named in cfg.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (ai.Provider, error) {
	switch name := normalize(cfg.Provider); name {
	case "deepseek", "openai", "openrouter":
		client, err := openai.New(openai.Config{
			Name:        name,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			MaxRetries:  cfg.MaxRetries,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case "anthropic":
		client, err := anthropic.New(anthropic.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			MaxRetries:  cfg.MaxRetries,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		generator, err := gemini.NewGenerator(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			MaxRetries:  cfg.MaxRetries,
		}, logger)
		if err != nil {
			return nil, err
		}
		return generator, nil
	default:
		return nil, errors.WithHintf(
			errors.Newf("unknown llm provider %q", cfg.Provider),
			"must be one of %s", strings.Join(Names, ", "),
		)
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
