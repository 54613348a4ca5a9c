package auth

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaptext/internal/domain"
	"snaptext/internal/domain/models"
)

type fakeUserStore struct {
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]models.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	if _, ok := f.users[user.Email]; ok {
		return fmt.Errorf("user %s: %w", user.Email, domain.ErrConflict)
	}
	f.users[user.Email] = *user
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	return &u, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, email, passwordHash string) error {
	u, ok := f.users[email]
	if !ok {
		return fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = ""
	u.ResetTokenExpires = nil
	f.users[email] = u
	return nil
}

func (f *fakeUserStore) SetResetToken(_ context.Context, email, tokenHash string, expiresAt time.Time) error {
	u, ok := f.users[email]
	if !ok {
		return fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	u.ResetTokenHash = tokenHash
	u.ResetTokenExpires = &expiresAt
	f.users[email] = u
	return nil
}

func newTestManager(t *testing.T) (*Manager, *fakeUserStore, *TokenIssuer) {
	t.Helper()
	issuer, err := NewTokenIssuer("test-secret", time.Hour, slog.Default())
	require.NoError(t, err)
	store := newFakeUserStore()
	return NewManager(store, issuer, slog.Default()), store, issuer
}

func TestRegisterWithEmail(t *testing.T) {
	m, store, issuer := newTestManager(t)

	result, err := m.RegisterWithEmail(context.Background(), " User@Example.com ", "hunter2secret")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", result.User.Email, "email is trimmed and lowercased")
	assert.NotEmpty(t, result.Token)

	claims, err := issuer.VerifyToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)

	stored := store.users["user@example.com"]
	assert.NotEqual(t, "hunter2secret", stored.PasswordHash, "password must be hashed")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.RegisterWithEmail(context.Background(), "user@example.com", "hunter2secret")
	require.NoError(t, err)

	_, err = m.RegisterWithEmail(context.Background(), "user@example.com", "otherpassword")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "Email is already in use.", err.Error())
}

func TestRegisterValidation(t *testing.T) {
	m, store, _ := newTestManager(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "bad email", email: "not-an-email", password: "hunter2secret"},
		{name: "short password", email: "user@example.com", password: "short"},
		{name: "empty password", email: "user@example.com", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.RegisterWithEmail(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Empty(t, store.users)
}

func TestLoginWithEmail(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.RegisterWithEmail(context.Background(), "user@example.com", "hunter2secret")
	require.NoError(t, err)

	result, err := m.LoginWithEmail(context.Background(), "user@example.com", "hunter2secret")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	_, err = m.LoginWithEmail(context.Background(), "user@example.com", "wrongpassword")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials. Please try again.", err.Error())

	_, err = m.LoginWithEmail(context.Background(), "nobody@example.com", "hunter2secret")
	require.Error(t, err)
	assert.Equal(t, "No account found with this email.", err.Error())
}

func TestPasswordResetFlow(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.RegisterWithEmail(context.Background(), "user@example.com", "hunter2secret")
	require.NoError(t, err)

	token, err := m.ResetPassword(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, m.ConfirmResetPassword(context.Background(), "user@example.com", token, "newpassword9"))

	// Old password no longer works, new one does
	_, err = m.LoginWithEmail(context.Background(), "user@example.com", "hunter2secret")
	assert.Error(t, err)
	_, err = m.LoginWithEmail(context.Background(), "user@example.com", "newpassword9")
	assert.NoError(t, err)

	// The token is single-use
	err = m.ConfirmResetPassword(context.Background(), "user@example.com", token, "anotherpass1")
	require.Error(t, err)
	assert.Equal(t, "Invalid or expired reset token.", err.Error())
}

func TestConfirmResetRejectsExpiredToken(t *testing.T) {
	m, store, _ := newTestManager(t)

	_, err := m.RegisterWithEmail(context.Background(), "user@example.com", "hunter2secret")
	require.NoError(t, err)

	token, err := m.ResetPassword(context.Background(), "user@example.com")
	require.NoError(t, err)

	u := store.users["user@example.com"]
	expired := time.Now().Add(-time.Minute)
	u.ResetTokenExpires = &expired
	store.users["user@example.com"] = u

	err = m.ConfirmResetPassword(context.Background(), "user@example.com", token, "newpassword9")
	require.Error(t, err)
	assert.Equal(t, "Invalid or expired reset token.", err.Error())
}

func TestResetPasswordUnknownEmail(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.ResetPassword(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.Equal(t, "No account found with this email.", err.Error())
}

func TestLogoutRevokesToken(t *testing.T) {
	m, _, issuer := newTestManager(t)

	result, err := m.RegisterWithEmail(context.Background(), "user@example.com", "hunter2secret")
	require.NoError(t, err)

	assert.True(t, m.IsUserLoggedIn(result.Token))

	claims, err := issuer.VerifyToken(result.Token)
	require.NoError(t, err)
	m.Logout(claims)

	assert.False(t, m.IsUserLoggedIn(result.Token))

	// A fresh login mints a new token id, unaffected by the revocation
	again, err := m.LoginWithEmail(context.Background(), "user@example.com", "hunter2secret")
	require.NoError(t, err)
	assert.True(t, m.IsUserLoggedIn(again.Token))
}

func TestGetCurrentUser(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.RegisterWithEmail(context.Background(), "user@example.com", "hunter2secret")
	require.NoError(t, err)

	user, err := m.GetCurrentUser(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)

	_, err = m.GetCurrentUser(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "No user is currently logged in.", err.Error())
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	issuer, err := NewTokenIssuer("secret-a", time.Hour, slog.Default())
	require.NoError(t, err)
	other, err := NewTokenIssuer("secret-b", time.Hour, slog.Default())
	require.NoError(t, err)

	token, err := issuer.Issue("user@example.com")
	require.NoError(t, err)

	_, err = other.VerifyToken(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
