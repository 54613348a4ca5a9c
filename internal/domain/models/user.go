package models

import (
	"time"
)

// User is an account in the local credential store. PasswordHash is a
// bcrypt hash and never crosses the HTTP boundary.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// Single-use password reset token (hash + expiry), empty when no
	// reset is in flight.
	ResetTokenHash    string     `json:"-" db:"reset_token_hash"`
	ResetTokenExpires *time.Time `json:"-" db:"reset_token_expires_at"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	Email string `json:"email"`
}

type ConfirmResetRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// AuthResult is returned on successful register/login.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
