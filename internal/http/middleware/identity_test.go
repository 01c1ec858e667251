package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func identityProbe(secret string) (http.Handler, *string) {
	var captured string
	h := Identity(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, &captured
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestIdentityNoToken(t *testing.T) {
	h, captured := identityProbe("secret")

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("anonymous request must pass, got %d", resp.Code)
	}
	if *captured != AnonymousUserID {
		t.Fatalf("expected anonymous identity, got %q", *captured)
	}
}

func TestIdentityValidToken(t *testing.T) {
	h, captured := identityProbe("secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", jwt.MapClaims{"user_id": "u-42"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if *captured != "u-42" {
		t.Fatalf("expected token identity, got %q", *captured)
	}
}

func TestIdentitySubClaimFallback(t *testing.T) {
	h, captured := identityProbe("secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", jwt.MapClaims{"sub": "subject-1"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if *captured != "subject-1" {
		t.Fatalf("expected sub identity, got %q", *captured)
	}
}

func TestIdentityBadSignatureFallsBack(t *testing.T) {
	h, captured := identityProbe("secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", jwt.MapClaims{"user_id": "u-42"}))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("invalid token must not reject, got %d", resp.Code)
	}
	if *captured != AnonymousUserID {
		t.Fatalf("expected anonymous fallback, got %q", *captured)
	}
}

func TestUserIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := UserID(req.Context()); got != AnonymousUserID {
		t.Fatalf("expected anonymous fallback, got %q", got)
	}
}
