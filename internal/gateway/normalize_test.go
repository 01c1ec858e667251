package gateway

import (
	"errors"
	"testing"

	"github.com/aivorahq/aivora/backend/internal/emotion"
)

func TestNormalizeChatShape(t *testing.T) {
	raw := []byte(`{"choices":[{"message":{"content":"hello from the model"}}]}`)
	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "hello from the model" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestNormalizeCompletionShape(t *testing.T) {
	raw := []byte(`{"choices":[{"text":"legacy completion"}]}`)
	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "legacy completion" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestNormalizeReplyShape(t *testing.T) {
	raw := []byte(`{"reply":"I hear you.","emotion":"sad"}`)
	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "I hear you." {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if res.Emotion != emotion.Sad {
		t.Fatalf("unexpected emotion %q", res.Emotion)
	}
}

func TestNormalizeEmptyBodyYieldsNoResponse(t *testing.T) {
	res, err := Normalize([]byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != NoResponseText {
		t.Fatalf("expected %q, got %q", NoResponseText, res.Text)
	}
}

func TestNormalizeEmptyChoicesYieldsNoResponse(t *testing.T) {
	res, err := Normalize([]byte(`{"choices":[]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != NoResponseText {
		t.Fatalf("expected %q, got %q", NoResponseText, res.Text)
	}
}

func TestNormalizeErrorPayload(t *testing.T) {
	_, err := Normalize([]byte(`{"error":{"message":"quota exceeded"}}`))
	if err == nil {
		t.Fatal("expected error")
	}
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if provErr.Detail != "quota exceeded" {
		t.Fatalf("unexpected detail %q", provErr.Detail)
	}
}

func TestNormalizeMalformedBody(t *testing.T) {
	if _, err := Normalize([]byte("not json at all")); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestNormalizeUnknownEmotionIgnored(t *testing.T) {
	res, err := Normalize([]byte(`{"reply":"ok","emotion":"jubilant"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Emotion != "" {
		t.Fatalf("expected empty emotion, got %q", res.Emotion)
	}
}
