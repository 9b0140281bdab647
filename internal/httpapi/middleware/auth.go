package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/academictracker/api/internal/token"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenValidator defines the capabilities required to validate JWTs.
type TokenValidator interface {
	ValidateAccessToken(tokenStr string) (*token.Claims, error)
}

// RevocationChecker reports whether a token ID was revoked before expiry.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Auth provides JWT-backed authentication middleware.
type Auth struct {
	validator TokenValidator
	revoked   RevocationChecker
	logger    *zap.Logger
}

// NewAuth creates a new instance.
func NewAuth(validator TokenValidator, revoked RevocationChecker, logger *zap.Logger) *Auth {
	return &Auth{validator: validator, revoked: revoked, logger: logger}
}

// RequireAuth ensures incoming requests possess a valid, unrevoked bearer token.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		tokenStr := strings.TrimSpace(authHeader[7:])
		claims, err := a.validator.ValidateAccessToken(tokenStr)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		if a.revoked != nil {
			revoked, err := a.revoked.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				a.logger.Error("revocation lookup failed", zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "auth_unavailable", "unable to verify token")
				return
			}
			if revoked {
				writeError(w, http.StatusUnauthorized, "unauthorized", "token has been revoked")
				return
			}
		}

		ctx := WithUserID(WithClaims(r.Context(), claims), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeError mirrors httpapi.ErrorResponse without importing the router package.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"code":    code,
		"message": message,
	})
}

type (
	claimsContextKey struct{}
	userIDContextKey struct{}
)

// ClaimsFromContext extracts token claims stored by middleware.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*token.Claims)
	return claims, ok && claims != nil
}

// UserIDFromContext extracts the authenticated user's ID.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDContextKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// WithClaims returns a context carrying validated token claims.
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// WithUserID returns a context carrying an authenticated user ID.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, id)
}
