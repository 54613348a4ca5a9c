package httputil

import (
	"context"
	"net/http"

	"snaptext/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const claimsKey contextKey = "claims"

// WithClaims attaches verified token claims to the request context
func WithClaims(r *http.Request, claims *models.AccessClaims) *http.Request {
	ctx := context.WithValue(r.Context(), claimsKey, claims)
	return r.WithContext(ctx)
}

// GetClaims retrieves the verified claims, nil if the request is anonymous
func GetClaims(r *http.Request) *models.AccessClaims {
	claims, _ := r.Context().Value(claimsKey).(*models.AccessClaims)
	return claims
}

// GetOwnerEmail returns the authenticated owner email, empty if anonymous
func GetOwnerEmail(r *http.Request) string {
	if claims := GetClaims(r); claims != nil {
		return claims.Email
	}
	return ""
}
