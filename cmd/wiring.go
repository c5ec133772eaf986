package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/ai"
	"github.com/spigell/joe-enricher/internal/ai/provider"
	"github.com/spigell/joe-enricher/internal/dispatch"
	"github.com/spigell/joe-enricher/internal/secrets"
	"github.com/spigell/joe-enricher/internal/store"
)

// openStore opens the database, creating its directory first.
func openStore(config *Config, logger *zap.Logger) (*store.Store, error) {
	if config.Database != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(config.Database), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create database directory for %s", config.Database)
		}
	}
	return store.Open(config.Database, logger)
}

// newGateway resolves the API key and builds the rate limited gateway. A
// missing key is logged and leaves the gateway without a provider, so every
// call degrades to a failure the stages already handle.
func newGateway(ctx context.Context, config *Config, logger *zap.Logger) *ai.Gateway {
	cfg := config.LLM
	limiter := ai.NewLimiter(cfg.MinCallInterval)
	opts := []ai.GatewayOption{
		ai.WithCallTimeout(cfg.CallTimeout),
		ai.WithMaxLogLength(cfg.MaxLogLength),
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  cfg.Provider + " api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   provider.EnvKeys(cfg.Provider),
	})
	if err != nil {
		logger.Warn("llm calls are disabled", zap.Error(err), hint(err))
		return ai.NewGateway(nil, limiter, logger, opts...)
	}

	backend, err := provider.New(ctx, provider.Config{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		APIKey:      apiKey,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		MaxRetries:  cfg.MaxRetries,
	}, logger)
	if err != nil {
		logger.Fatal("creating the llm provider", zap.Error(err), hint(err))
	}

	return ai.NewGateway(backend, limiter, logger, opts...)
}

func newPool(config *Config, logger *zap.Logger) *dispatch.Pool {
	return dispatch.NewPool(
		dispatch.WithWorkers(config.LLM.MaxConcurrency),
		dispatch.WithLogger(logger),
	)
}
