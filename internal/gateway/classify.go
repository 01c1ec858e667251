package gateway

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aivorahq/aivora/backend/internal/emotion"
)

const classifyInstruction = `Return JSON {"reply":"...","emotion":"calm|happy|neutral|sad|fear|anger|panic"} for: `

// Classifier wraps a Gateway with structured emotion classification.
// Classification is best-effort: output that fails to parse as the expected
// JSON shape degrades to the raw text with a keyword-scored label, never an
// error.
type Classifier struct {
	gw Gateway
}

// NewClassifier returns a classification wrapper over gw.
func NewClassifier(gw Gateway) *Classifier {
	return &Classifier{gw: gw}
}

// Classify completes the prompt while asking the provider for a structured
// {reply, emotion} object.
func (c *Classifier) Classify(ctx context.Context, builtPrompt string) (Result, error) {
	res, err := c.gw.Complete(ctx, classifyInstruction+builtPrompt)
	if err != nil {
		return Result{}, err
	}

	// Providers that already answer in the {reply, emotion} wire shape carry
	// the label through normalization.
	if res.Emotion != "" {
		return res, nil
	}

	payload, ok := parseClassification(res.Text)
	if !ok {
		// No usable JSON: keep the raw reply and score it heuristically.
		return Result{Text: res.Text, Emotion: emotion.Analyze(res.Text)}, nil
	}
	return payload, nil
}

// parseClassification extracts a {reply, emotion} object from free text. The
// model may wrap the JSON in prose or code fences, so scan for the outermost
// braces before unmarshalling.
func parseClassification(content string) (Result, bool) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return Result{}, false
	}

	var payload struct {
		Reply   string `json:"reply"`
		Emotion string `json:"emotion"`
	}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return Result{}, false
	}

	reply := strings.TrimSpace(payload.Reply)
	if reply == "" {
		return Result{}, false
	}

	label, ok := emotion.Parse(payload.Emotion)
	if !ok {
		label = emotion.Analyze(reply)
	}
	return Result{Text: reply, Emotion: label}, true
}
