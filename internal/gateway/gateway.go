// Package gateway abstracts the text-completion provider behind a single
// interface. Provider variants are selected by configuration; each variant
// reduces its upstream response to a Result.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aivorahq/aivora/backend/internal/emotion"
)

// NoResponseText substitutes for a completion that came back empty. The
// wording is part of the wire contract with existing clients.
const NoResponseText = "No response"

// DefaultSystemInstruction is prepended by every provider variant unless
// configuration overrides it.
const DefaultSystemInstruction = "You are Aivora AI assistant."

// Provider variant names accepted in configuration.
const (
	ProviderOpenAI = "openai"
	ProviderCompat = "compat"
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

// Result is the normalized outcome of one completion call. Emotion is set
// only on the classification path.
type Result struct {
	Text    string
	Emotion emotion.Label
}

// Gateway sends a fully built prompt to the configured provider.
type Gateway interface {
	Complete(ctx context.Context, prompt string) (Result, error)
}

// ProviderError signals that the upstream answered with a non-success status
// or an error payload.
type ProviderError struct {
	Provider string
	Status   int
	Detail   string
}

func (e *ProviderError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("gateway: %s provider error (status %d)", e.Provider, e.Status)
	}
	return fmt.Sprintf("gateway: %s provider error (status %d): %s", e.Provider, e.Status, e.Detail)
}

// TransportError signals that the network call itself never completed.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway: %s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Config selects and parameterizes a provider variant.
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string
	SystemInstruction string
	MaxTokens         int
	Temperature       float64

	// Volcengine Ark credentials (ark variant only).
	ArkAccessKey string
	ArkSecretKey string
	ArkRegion    string

	// Optional secondary provider tried when the primary fails.
	Fallback *Config
}

func (c Config) systemInstruction() string {
	if s := strings.TrimSpace(c.SystemInstruction); s != "" {
		return s
	}
	return DefaultSystemInstruction
}

// New builds the gateway for the configured provider, wrapping it with the
// fallback variant when one is configured.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Gateway, error) {
	primary, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Fallback == nil {
		return primary, nil
	}

	secondary, err := newProvider(ctx, *cfg.Fallback)
	if err != nil {
		return nil, fmt.Errorf("gateway: fallback provider: %w", err)
	}
	return NewFallback(primary, secondary, logger), nil
}

func newProvider(ctx context.Context, cfg Config) (Gateway, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	case ProviderCompat:
		return NewCompat(cfg)
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	case ProviderArk:
		return NewArk(ctx, cfg)
	default:
		return nil, fmt.Errorf("gateway: unknown provider %q", cfg.Provider)
	}
}
