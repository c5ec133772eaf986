package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/logger"
	"github.com/spigell/joe-enricher/internal/utils"
)

const (
	defaultCallTimeout  = 90 * time.Second
	defaultMaxLogLength = 200
)

// Gateway paces, times out and logs every provider call. Failures never reach
// the caller; they surface as an empty, false result.
type Gateway struct {
	provider     Provider
	limiter      *Limiter
	logger       *zap.Logger
	callTimeout  time.Duration
	maxLogLength int
}

// GatewayOption customises a Gateway.
type GatewayOption func(*Gateway)

// WithCallTimeout bounds every individual provider call.
func WithCallTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.callTimeout = d
		}
	}
}

// WithMaxLogLength sets how much of prompts and responses reaches debug logs.
func WithMaxLogLength(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.maxLogLength = n
		}
	}
}

// NewGateway wires a provider to a limiter. A nil provider is allowed and
// makes every call fail, which is how a missing credential degrades.
func NewGateway(provider Provider, limiter *Limiter, log *zap.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		provider:     provider,
		limiter:      limiter,
		callTimeout:  defaultCallTimeout,
		maxLogLength: defaultMaxLogLength,
	}
	for _, opt := range opts {
		opt(g)
	}

	if provider != nil {
		g.logger = logger.WithProvider(log, provider.Name(), provider.Model())
	} else {
		g.logger = logger.WithFields(log)
	}

	return g
}

// Call sends one request and returns the trimmed response text.
func (g *Gateway) Call(ctx context.Context, req Request) (text string, ok bool) {
	reqID := uuid.NewString()
	log := g.logger.With(zap.String(logger.FieldRequestID, reqID))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("llm call panicked", zap.String("panic", fmt.Sprint(r)))
			text, ok = "", false
		}
	}()

	if g.provider == nil {
		log.Warn("llm call skipped: no provider configured")
		return "", false
	}

	if err := g.limiter.Wait(ctx); err != nil {
		log.Warn("llm call cancelled while waiting for rate limit", zap.Error(err))
		return "", false
	}

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	log.Debug("llm request",
		zap.String("system", utils.TruncateForLog(req.System, g.maxLogLength)),
		zap.String("prompt", utils.TruncateForLog(req.Prompt, g.maxLogLength)),
		zap.Bool("json", req.JSON),
	)

	out, err := g.provider.Complete(callCtx, req)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("llm call failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return "", false
	}

	out = strings.TrimSpace(out)
	if out == "" {
		log.Warn("llm returned empty response", zap.Duration("elapsed", elapsed))
		return "", false
	}

	log.Debug("llm response",
		zap.String("response", utils.TruncateForLog(out, g.maxLogLength)),
		zap.Duration("elapsed", elapsed),
	)

	return out, true
}

// ProviderName returns the backing provider name or an empty string.
func (g *Gateway) ProviderName() string {
	if g == nil || g.provider == nil {
		return ""
	}
	return g.provider.Name()
}
