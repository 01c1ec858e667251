package gateway

import (
	"context"
	"errors"
	"testing"
)

func TestFallbackUnusedOnSuccess(t *testing.T) {
	primary := &stubGateway{result: Result{Text: "primary"}}
	fallback := &stubGateway{result: Result{Text: "fallback"}}
	gw := NewFallback(primary, fallback, nil)

	res, err := gw.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Text != "primary" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if fallback.prompt != "" {
		t.Fatal("fallback must not be called when primary succeeds")
	}
}

func TestFallbackUsedOnFailure(t *testing.T) {
	primary := &stubGateway{err: errors.New("primary down")}
	fallback := &stubGateway{result: Result{Text: "fallback"}}
	gw := NewFallback(primary, fallback, nil)

	res, err := gw.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Text != "fallback" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestFallbackBothFail(t *testing.T) {
	fallbackErr := errors.New("fallback down")
	gw := NewFallback(&stubGateway{err: errors.New("primary down")}, &stubGateway{err: fallbackErr}, nil)

	if _, err := gw.Complete(context.Background(), "hi"); !errors.Is(err, fallbackErr) {
		t.Fatalf("expected fallback error, got %v", err)
	}
}

func TestFallbackNilSecondary(t *testing.T) {
	primaryErr := errors.New("primary down")
	gw := NewFallback(&stubGateway{err: primaryErr}, nil, nil)

	if _, err := gw.Complete(context.Background(), "hi"); !errors.Is(err, primaryErr) {
		t.Fatalf("expected primary error, got %v", err)
	}
}
