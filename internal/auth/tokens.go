package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"snaptext/internal/domain"
	"snaptext/internal/domain/models"
)

// TokenIssuer mints and verifies locally issued HS256 access tokens and
// tracks revoked token ids until they would have expired anyway.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
}

// NewTokenIssuer creates a TokenIssuer with the given signing secret and TTL
func NewTokenIssuer(secret string, ttl time.Duration, logger *slog.Logger) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}

	return &TokenIssuer{
		secret:  []byte(secret),
		ttl:     ttl,
		logger:  logger,
		revoked: make(map[string]time.Time),
	}, nil
}

// Issue mints a signed access token for the given owner email
func (t *TokenIssuer) Issue(email string) (string, error) {
	now := time.Now()
	claims := &models.AccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// VerifyToken validates a locally issued token. Revoked tokens fail even
// when their signature and expiry are still valid.
func (t *TokenIssuer) VerifyToken(tokenString string) (*models.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AccessClaims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", tok.Method.Alg())
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthenticated
	}

	claims, ok := token.Claims.(*models.AccessClaims)
	if !ok || claims.Email == "" {
		return nil, domain.ErrUnauthenticated
	}

	t.mu.Lock()
	_, isRevoked := t.revoked[claims.ID]
	t.mu.Unlock()
	if isRevoked {
		return nil, domain.ErrUnauthenticated
	}

	return claims, nil
}

// Revoke invalidates a token id until its natural expiry
func (t *TokenIssuer) Revoke(claims *models.AccessClaims) {
	if claims == nil || claims.ID == "" {
		return
	}

	expiry := time.Now().Add(t.ttl)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	t.mu.Lock()
	t.revoked[claims.ID] = expiry

	// Drop entries whose tokens have expired on their own
	now := time.Now()
	for jti, exp := range t.revoked {
		if exp.Before(now) {
			delete(t.revoked, jti)
		}
	}
	t.mu.Unlock()
}

// Close implements TokenVerifier
func (t *TokenIssuer) Close() error {
	return nil
}
