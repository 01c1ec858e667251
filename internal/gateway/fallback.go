package gateway

import (
	"context"
	"log/slog"
)

// FallbackGateway wraps a primary provider with a secondary one tried when
// the primary fails.
type FallbackGateway struct {
	primary  Gateway
	fallback Gateway
	logger   *slog.Logger
}

// NewFallback creates a fallback-enabled gateway. A nil fallback leaves only
// the primary in play.
func NewFallback(primary, fallback Gateway, logger *slog.Logger) *FallbackGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackGateway{primary: primary, fallback: fallback, logger: logger}
}

// Complete tries the primary provider, then the fallback.
func (g *FallbackGateway) Complete(ctx context.Context, prompt string) (Result, error) {
	res, err := g.primary.Complete(ctx, prompt)
	if err == nil {
		return res, nil
	}

	g.logger.Warn("primary completion provider failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", g.fallback != nil,
	)

	if g.fallback == nil {
		return Result{}, err
	}

	fallbackRes, fallbackErr := g.fallback.Complete(ctx, prompt)
	if fallbackErr != nil {
		g.logger.Error("fallback completion provider also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return Result{}, fallbackErr
	}

	g.logger.Info("fallback completion provider succeeded after primary failure")
	return fallbackRes, nil
}
