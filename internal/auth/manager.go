package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"snaptext/internal/domain"
	"snaptext/internal/domain/models"
	"snaptext/internal/domain/repositories"
)

const (
	minPasswordLength = 8
	resetTokenTTL     = time.Hour
)

// Manager implements email/password authentication over the user store:
// register, login, password reset, current-user lookup and logout.
type Manager struct {
	users  repositories.UserStore
	issuer *TokenIssuer
	logger *slog.Logger
}

// NewManager creates an auth Manager
func NewManager(users repositories.UserStore, issuer *TokenIssuer, logger *slog.Logger) *Manager {
	return &Manager{
		users:  users,
		issuer: issuer,
		logger: logger,
	}
}

// RegisterWithEmail creates a new account and returns a signed token for it
func (m *Manager) RegisterWithEmail(ctx context.Context, email, password string) (*models.AuthResult, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := m.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, &domain.ConflictError{
				Message:      "Email is already in use.",
				ResourceType: "user",
				ResourceID:   email,
			}
		}
		return nil, err
	}

	token, err := m.issuer.Issue(user.Email)
	if err != nil {
		return nil, err
	}

	m.logger.Info("user registered", "email", user.Email)

	return &models.AuthResult{Token: token, User: user}, nil
}

// LoginWithEmail verifies credentials and returns a signed token
func (m *Manager) LoginWithEmail(ctx context.Context, email, password string) (*models.AuthResult, error) {
	email = normalizeEmail(email)

	user, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.UnauthorizedError{Message: "No account found with this email."}
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, &domain.UnauthorizedError{Message: "Invalid credentials. Please try again."}
	}

	token, err := m.issuer.Issue(user.Email)
	if err != nil {
		return nil, err
	}

	return &models.AuthResult{Token: token, User: user}, nil
}

// ResetPassword issues a single-use reset token for the account. There is
// no mail transport; the token is returned to the caller, which matches
// how dev-mode deployments hand it to the operator.
func (m *Manager) ResetPassword(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)

	if _, err := m.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", &domain.NotFoundError{Message: "No account found with this email."}
		}
		return "", err
	}

	token := uuid.NewString()
	expiry := time.Now().Add(resetTokenTTL)
	if err := m.users.SetResetToken(ctx, email, hashToken(token), expiry); err != nil {
		return "", err
	}

	m.logger.Info("password reset token issued", "email", email)

	return token, nil
}

// ConfirmResetPassword exchanges a valid reset token for a new password
func (m *Manager) ConfirmResetPassword(ctx context.Context, email, token, newPassword string) error {
	email = normalizeEmail(email)
	if err := validateCredentials(email, newPassword); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	user, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.NotFoundError{Message: "No account found with this email."}
		}
		return err
	}

	if user.ResetTokenHash == "" || user.ResetTokenExpires == nil ||
		user.ResetTokenExpires.Before(time.Now()) ||
		subtle.ConstantTimeCompare([]byte(user.ResetTokenHash), []byte(hashToken(token))) != 1 {
		return &domain.UnauthorizedError{Message: "Invalid or expired reset token."}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// UpdatePassword also clears the reset token, making it single-use
	if err := m.users.UpdatePassword(ctx, email, string(hash)); err != nil {
		return err
	}

	m.logger.Info("password reset completed", "email", email)

	return nil
}

// GetCurrentUser returns the account behind an authenticated owner email
func (m *Manager) GetCurrentUser(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, &domain.UnauthorizedError{Message: "No user is currently logged in."}
	}

	user, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.UnauthorizedError{Message: "No user is currently logged in."}
		}
		return nil, err
	}

	return user, nil
}

// Logout revokes the presented token. With an external IdP the session is
// owned upstream and this is a no-op.
func (m *Manager) Logout(claims *models.AccessClaims) {
	m.issuer.Revoke(claims)
}

// IsUserLoggedIn reports whether the token is currently valid
func (m *Manager) IsUserLoggedIn(tokenString string) bool {
	_, err := m.issuer.VerifyToken(tokenString)
	return err == nil
}

func validateCredentials(email, password string) error {
	return validation.Errors{
		"email": validation.Validate(email,
			validation.Required,
			is.Email,
		),
		"password": validation.Validate(password,
			validation.Required,
			validation.Length(minPasswordLength, 72),
		),
	}.Filter()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
