package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aivorahq/aivora/backend/internal/emotion"
)

func newCompatServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var captured http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestCompatComplete(t *testing.T) {
	srv, captured := newCompatServer(t, http.StatusOK, `{"choices":[{"message":{"content":"hi there"}}]}`)

	gw, err := NewCompat(Config{Provider: ProviderCompat, APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new compat: %v", err)
	}

	res, err := gw.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Text != "hi there" {
		t.Fatalf("unexpected text %q", res.Text)
	}

	if captured.URL.Path != "/chat/completions" {
		t.Fatalf("unexpected path %q", captured.URL.Path)
	}
	if got := captured.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", got)
	}
}

func TestCompatCompleteReplyShape(t *testing.T) {
	srv, _ := newCompatServer(t, http.StatusOK, `{"reply":"Take care.","emotion":"sad"}`)

	gw, err := NewCompat(Config{Provider: ProviderCompat, APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new compat: %v", err)
	}

	res, err := gw.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Text != "Take care." || res.Emotion != emotion.Sad {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCompatCompleteUpstreamError(t *testing.T) {
	srv, _ := newCompatServer(t, http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`)

	gw, err := NewCompat(Config{Provider: ProviderCompat, APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new compat: %v", err)
	}

	_, err = gw.Complete(context.Background(), "hello")
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", provErr.Status)
	}
}

func TestCompatCompleteEmptyBody(t *testing.T) {
	srv, _ := newCompatServer(t, http.StatusOK, `{}`)

	gw, err := NewCompat(Config{Provider: ProviderCompat, APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new compat: %v", err)
	}

	res, err := gw.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Text != NoResponseText {
		t.Fatalf("expected %q, got %q", NoResponseText, res.Text)
	}
}

func TestCompatRequiresAPIKey(t *testing.T) {
	if _, err := NewCompat(Config{Provider: ProviderCompat}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestCompatSendsModelAndMessages(t *testing.T) {
	var payload compatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	gw, err := NewCompat(Config{Provider: ProviderCompat, APIKey: "k", BaseURL: srv.URL, Model: "custom-model"})
	if err != nil {
		t.Fatalf("new compat: %v", err)
	}
	if _, err := gw.Complete(context.Background(), "the prompt"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if payload.Model != "custom-model" {
		t.Fatalf("unexpected model %q", payload.Model)
	}
	if len(payload.Messages) != 2 || payload.Messages[0].Role != "system" || payload.Messages[1].Content != "the prompt" {
		t.Fatalf("unexpected messages %+v", payload.Messages)
	}
}
