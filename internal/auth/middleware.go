// Package auth forwards the customer's backend bearer token through the
// request pipeline. This service holds no accounts of its own: the remote
// backend issues and validates tokens, we just pass them along.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/levantcargo/shipdesk/internal/pricing"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// authenticatedKey marks requests that arrived with a bearer token.
const authenticatedKey ContextKey = "authenticated"

// Middleware extracts the Authorization header and binds its bearer token
// to the request context so backend calls made on behalf of this request
// reuse the customer's own token.
//
// Requests without a token proceed unauthenticated. This allows:
// - Public endpoints (catalog, previews, uploads)
// - Protected endpoints (submission, shipment status) via RequireAuth
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				slog.Warn("malformed authorization header", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			ctx := pricing.WithBearer(r.Context(), token)
			ctx = context.WithValue(ctx, authenticatedKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsAuthenticated reports whether the request carried a bearer token.
func IsAuthenticated(ctx context.Context) bool {
	ok, _ := ctx.Value(authenticatedKey).(bool)
	return ok
}

// RequireAuth rejects requests that did not carry a bearer token. Apply it
// to the endpoints that act on the customer's backend account.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthenticated(r.Context()) {
			slog.Warn("authentication required but not provided",
				"method", r.Method,
				"path", r.URL.Path,
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","message":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
