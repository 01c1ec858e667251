package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ArkGateway implements the gateway over a Volcengine Ark chat model composed
// through an eino chain.
type ArkGateway struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	system string
}

// NewArk creates the ark provider variant.
func NewArk(ctx context.Context, cfg Config) (*ArkGateway, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("gateway: ark model is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" && (cfg.ArkAccessKey == "" || cfg.ArkSecretKey == "") {
		return nil, errors.New("gateway: ark needs an api key or an access/secret key pair")
	}

	modelCfg := &ark.ChatModelConfig{
		BaseURL:   cfg.BaseURL,
		Region:    cfg.ArkRegion,
		APIKey:    cfg.APIKey,
		AccessKey: cfg.ArkAccessKey,
		SecretKey: cfg.ArkSecretKey,
		Model:     cfg.Model,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelCfg.MaxTokens = &maxTokens
	}
	if cfg.Temperature > 0 {
		temperature := float32(cfg.Temperature)
		modelCfg.Temperature = &temperature
	}

	chatModel, err := ark.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to create ark chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to compile ark chain: %w", err)
	}

	return &ArkGateway{chain: runnable, system: cfg.systemInstruction()}, nil
}

// Complete runs the prompt through the compiled chain.
func (g *ArkGateway) Complete(ctx context.Context, promptText string) (Result, error) {
	msg, err := g.chain.Invoke(ctx, map[string]any{
		"system": g.system,
		"query":  promptText,
	})
	if err != nil {
		return Result{}, &TransportError{Provider: ProviderArk, Err: err}
	}

	if msg == nil {
		return Result{Text: NoResponseText}, nil
	}
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return Result{Text: NoResponseText}, nil
	}
	return Result{Text: text}, nil
}
