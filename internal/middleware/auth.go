package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/owemate/owemate/internal/auth"
	"github.com/owemate/owemate/internal/service"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// callerKey is the context key for the authenticated caller identity.
const callerKey contextKey = "caller"

// CallerFromContext extracts the authenticated caller from the context.
func CallerFromContext(ctx context.Context) (service.Caller, bool) {
	caller, ok := ctx.Value(callerKey).(service.Caller)
	return caller, ok
}

// RequireAuth returns middleware that validates the Bearer token and adds
// the caller identity to the request context. Requests without a valid
// token get 401 before reaching the handler.
func RequireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, auth.ErrMissingToken.Error())
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, auth.ErrInvalidToken.Error())
				return
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				unauthorized(w, auth.ErrInvalidToken.Error())
				return
			}

			ctx := context.WithValue(r.Context(), callerKey, service.Caller{
				ID:          claims.UserID,
				DisplayName: claims.DisplayName,
				Email:       claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "unauthenticated", "message": message},
	})
}
