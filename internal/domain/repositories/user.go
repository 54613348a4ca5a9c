package repositories

import (
	"context"
	"time"

	"snaptext/internal/domain/models"
)

// UserStore is the credential store backing the auth manager.
type UserStore interface {
	// Create inserts a new user. Returns domain.ErrConflict when the
	// email is already registered.
	Create(ctx context.Context, user *models.User) error

	// GetByEmail returns the user, or domain.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdatePassword replaces the bcrypt hash and clears any pending
	// reset token.
	UpdatePassword(ctx context.Context, email, passwordHash string) error

	// SetResetToken stores the hash of a single-use reset token with
	// its expiry.
	SetResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error
}
