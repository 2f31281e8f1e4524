package common

import (
	"context"

	"hospitalops/internal/models"
)

type contextKey string

const (
	// AuthContextKey holds the *models.AuthContext for the request.
	AuthContextKey contextKey = "auth_context"
)

// WithAuthContext returns a context carrying the authenticated identity.
func WithAuthContext(ctx context.Context, auth *models.AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, auth)
}

// GetAuthContext extracts the authenticated identity from the request context.
func GetAuthContext(ctx context.Context) (*models.AuthContext, bool) {
	auth, ok := ctx.Value(AuthContextKey).(*models.AuthContext)
	return auth, ok
}

// GetTenantKeyFromContext extracts the resolved tenant key.
func GetTenantKeyFromContext(ctx context.Context) (string, bool) {
	auth, ok := GetAuthContext(ctx)
	if !ok || auth.TenantKey == "" {
		return "", false
	}
	return auth.TenantKey, true
}

// GetUserIDFromContext extracts the authenticated user id.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	auth, ok := GetAuthContext(ctx)
	if !ok || auth.UserID == "" {
		return "", false
	}
	return auth.UserID, true
}
