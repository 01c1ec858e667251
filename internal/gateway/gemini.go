package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiGateway implements the gateway over Google's Gemini API.
type GeminiGateway struct {
	client  *genai.Client
	modelID string
	system  string
	cfg     Config
}

// NewGemini creates the gemini provider variant.
func NewGemini(ctx context.Context, cfg Config) (*GeminiGateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gateway: gemini api key is required")
	}

	modelID := strings.TrimSpace(cfg.Model)
	if modelID == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to create gemini client: %w", err)
	}

	return &GeminiGateway{
		client:  client,
		modelID: modelID,
		system:  cfg.systemInstruction(),
		cfg:     cfg,
	}, nil
}

// Complete sends the prompt to Gemini and extracts the first candidate.
func (g *GeminiGateway) Complete(ctx context.Context, prompt string) (Result, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.SystemInstruction = genai.NewUserContent(genai.Text(g.system))
	if g.cfg.Temperature > 0 {
		model.SetTemperature(float32(g.cfg.Temperature))
	}
	if g.cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.cfg.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return Result{}, &ProviderError{Provider: ProviderGemini, Status: gerr.Code, Detail: gerr.Message}
		}
		return Result{}, &TransportError{Provider: ProviderGemini, Err: err}
	}

	if len(resp.Candidates) == 0 {
		return Result{Text: NoResponseText}, nil
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Result{Text: NoResponseText}, nil
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return Result{Text: NoResponseText}, nil
	}
	return Result{Text: out}, nil
}

// Close releases resources held by the Gemini client.
func (g *GeminiGateway) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
