package gateway

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
)

const defaultCompatBaseURL = "https://api.openai.com/v1"

// CompatGateway posts to any OpenAI-compatible chat-completions endpoint over
// raw HTTP and runs the body through Normalize, so it tolerates chat-style,
// legacy completion-style, and pre-shaped {reply, emotion} responses alike.
type CompatGateway struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	system      string
	maxTokens   int
	temperature float64
}

type compatRequest struct {
	Model       string      `json:"model"`
	Messages    []compatMsg `json:"messages"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
}

type compatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewCompat creates the compat provider variant.
func NewCompat(cfg Config) (*CompatGateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gateway: compat api key is required")
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultCompatBaseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4.1-mini"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.6
	}

	return &CompatGateway{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		baseURL:     base,
		apiKey:      cfg.APIKey,
		model:       model,
		system:      cfg.systemInstruction(),
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// Complete posts the prompt and normalizes whatever shape comes back.
func (g *CompatGateway) Complete(ctx context.Context, prompt string) (Result, error) {
	body, err := json.Marshal(compatRequest{
		Model: g.model,
		Messages: []compatMsg{
			{Role: "system", Content: g.system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return Result{}, fmt.Errorf("gateway: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("gateway: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Result{}, &TransportError{Provider: ProviderCompat, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &TransportError{Provider: ProviderCompat, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &ProviderError{Provider: ProviderCompat, Status: resp.StatusCode, Detail: strings.TrimSpace(string(raw))}
	}

	result, err := Normalize(raw)
	if err != nil {
		return Result{}, &ProviderError{Provider: ProviderCompat, Status: resp.StatusCode, Detail: err.Error()}
	}
	return result, nil
}
