package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aivorahq/aivora/backend/internal/emotion"
)

// wireResponse covers every completion shape the configured providers emit:
// chat-style (choices[0].message.content), legacy completion-style
// (choices[0].text), and a raw object already shaped as {reply, emotion}.
type wireResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	Reply   string `json:"reply"`
	Emotion string `json:"emotion"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Normalize reduces a raw provider body to a Result. A body that is valid
// JSON but carries no usable text yields the fixed NoResponseText rather than
// an error; only an unparseable body fails.
func Normalize(raw []byte) (Result, error) {
	var resp wireResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Result{}, fmt.Errorf("gateway: unrecognized response body: %w", err)
	}

	if resp.Error != nil && resp.Error.Message != "" {
		return Result{}, &ProviderError{Provider: ProviderCompat, Detail: resp.Error.Message}
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			text = strings.TrimSpace(resp.Choices[0].Text)
		}
	}
	if text == "" {
		text = strings.TrimSpace(resp.Reply)
	}
	if text == "" {
		return Result{Text: NoResponseText}, nil
	}

	result := Result{Text: text}
	if label, ok := emotion.Parse(resp.Emotion); ok {
		result.Emotion = label
	}
	return result, nil
}
