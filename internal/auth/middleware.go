package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cyclelog/platform/internal/domain"
)

type contextKey string

const (
	claimsKey contextKey = "auth_claims"
	userKey   contextKey = "auth_user"
)

// ClaimsFromContext extracts JWT claims from request context.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// UserFromContext extracts the authenticated user from request context.
func UserFromContext(ctx context.Context) (domain.UserContext, bool) {
	user, ok := ctx.Value(userKey).(domain.UserContext)
	return user, ok
}

// WithUser stores user in ctx the way Authenticate does.
func WithUser(ctx context.Context, user domain.UserContext) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// Authenticate returns middleware that validates bearer tokens and attaches
// the user to the request context. Tokens without a tz claim use fallback.
func Authenticate(jwtMgr *JWTManager, fallback *time.Location) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractAndValidate(r, jwtMgr)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"code":"UNAUTHORIZED","message":"invalid or missing token"}`))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = WithUser(ctx, claims.UserContext(fallback))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractAndValidate(r *http.Request, jwtMgr *JWTManager) (*Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, fmt.Errorf("invalid Authorization format")
	}

	return jwtMgr.ValidateToken(parts[1])
}
