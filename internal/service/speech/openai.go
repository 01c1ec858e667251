package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAISynthesizer renders speech through the OpenAI audio API.
type OpenAISynthesizer struct {
	client openai.Client
	model  string
	voice  string
}

// NewOpenAISynthesizer creates a synthesizer bound to one model and voice.
func NewOpenAISynthesizer(apiKey, model, voice string) (*OpenAISynthesizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("speech: api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "tts-1"
	}
	if strings.TrimSpace(voice) == "" {
		voice = "alloy"
	}

	return &OpenAISynthesizer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		voice:  voice,
	}, nil
}

// Synthesize returns the rendered audio bytes.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModel(s.model),
		Voice: openai.AudioSpeechNewParamsVoice(s.voice),
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("speech: synthesis failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech: failed to read audio: %w", err)
	}
	return audio, nil
}
