package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the JWT claims structure for access tokens. Locally
// issued tokens and external-IdP tokens (JWKS mode) share this shape.
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GetUserEmail returns the owner email for per-user store queries.
func (c *AccessClaims) GetUserEmail() string {
	return c.Email
}
