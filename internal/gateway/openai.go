package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIGateway talks to the OpenAI chat-completions API through the official
// SDK.
type OpenAIGateway struct {
	client      openai.Client
	model       string
	system      string
	maxTokens   int64
	temperature float64
}

// NewOpenAI creates the openai provider variant. The API key is required;
// the handler layer fails closed before the provider is ever reached without
// one, and this constructor enforces the same.
func NewOpenAI(cfg Config) (*OpenAIGateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gateway: openai api key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4.1-mini"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 300
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.6
	}

	return &OpenAIGateway{
		client:      openai.NewClient(opts...),
		model:       model,
		system:      cfg.systemInstruction(),
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// Complete sends the prompt and normalizes the first choice.
func (g *OpenAIGateway) Complete(ctx context.Context, prompt string) (Result, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(g.system),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(g.maxTokens),
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return Result{}, &ProviderError{Provider: ProviderOpenAI, Status: apierr.StatusCode, Detail: apierr.Message}
		}
		return Result{}, &TransportError{Provider: ProviderOpenAI, Err: err}
	}

	if len(resp.Choices) == 0 {
		return Result{Text: NoResponseText}, nil
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Result{Text: NoResponseText}, nil
	}
	return Result{Text: text}, nil
}
