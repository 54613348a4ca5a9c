package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"snaptext/internal/domain"
	"snaptext/internal/domain/models"
	"snaptext/internal/domain/repositories"
)

// PostgresUserStore implements the UserStore interface using PostgreSQL
type PostgresUserStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewUserStore creates a new PostgresUserStore
func NewUserStore(config *RepositoryConfig) repositories.UserStore {
	return &PostgresUserStore{
		pool:   config.Pool,
		logger: config.Logger,
	}
}

// Create inserts a new user account
func (s *PostgresUserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("user %s: %w", user.Email, domain.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, reset_token_hash, reset_token_expires_at, created_at
		FROM users
		WHERE email = $1
	`

	var user models.User
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.ResetTokenHash,
		&user.ResetTokenExpires,
		&user.CreatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

// UpdatePassword replaces the password hash and clears any pending reset token
func (s *PostgresUserStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, reset_token_hash = '', reset_token_expires_at = NULL
		WHERE email = $2
	`

	result, err := s.pool.Exec(ctx, query, passwordHash, email)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}

	return nil
}

// SetResetToken stores the hash of a single-use password reset token
func (s *PostgresUserStore) SetResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET reset_token_hash = $1, reset_token_expires_at = $2
		WHERE email = $3
	`

	result, err := s.pool.Exec(ctx, query, tokenHash, expiresAt, email)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}

	return nil
}
