package auth

import "snaptext/internal/domain/models"

// TokenVerifier validates access tokens presented on API requests. The
// middleware stays agnostic to whether tokens are locally issued (HS256)
// or come from an external IdP (JWKS).
type TokenVerifier interface {
	// VerifyToken validates a token string and returns the parsed claims.
	VerifyToken(tokenString string) (*models.AccessClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
