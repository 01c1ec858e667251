// Package middleware provides request-scoped HTTP middleware.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userIDKey contextKey = "user_id"

// AnonymousUserID is attached when no valid bearer token is presented. Every
// endpoint works without authentication; a token just scopes history and SOS
// records to a stable identity.
const AnonymousUserID = "anonymous"

// Identity resolves the caller's identity from an optional Authorization
// bearer token and attaches it to the request context. Invalid or absent
// tokens fall back to the anonymous identity rather than rejecting.
func Identity(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := AnonymousUserID

			auth := r.Header.Get("Authorization")
			if secret != "" && strings.HasPrefix(auth, "Bearer ") {
				tokenStr := strings.TrimPrefix(auth, "Bearer ")
				claims := jwt.MapClaims{}
				token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
					return []byte(secret), nil
				})
				if err == nil && token.Valid {
					if id, ok := claims["user_id"].(string); ok && id != "" {
						userID = id
					} else if sub, ok := claims["sub"].(string); ok && sub != "" {
						userID = sub
					}
				}
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the identity attached by Identity, or the anonymous
// fallback when the middleware did not run.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		return id
	}
	return AnonymousUserID
}
