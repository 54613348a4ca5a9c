package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"snaptext/internal/auth"
	"snaptext/internal/domain/models"
	"snaptext/internal/httputil"
)

// AuthHandler handles account HTTP requests
type AuthHandler struct {
	manager *auth.Manager
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(manager *auth.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		manager: manager,
		logger:  logger,
	}
}

// Register creates a new account
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.manager.RegisterWithEmail(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, result)
}

// Login verifies credentials and returns a token
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.manager.LoginWithEmail(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// ResetPassword issues a single-use reset token
// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.manager.ResetPassword(r.Context(), req.Email)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"reset_token": token})
}

// ConfirmReset exchanges a reset token for a new password
// POST /api/auth/reset-password/confirm
func (h *AuthHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmResetRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.manager.ConfirmResetPassword(r.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session reports whether the presented token is currently valid
// GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	loggedIn := false
	header := r.Header.Get("Authorization")
	if tokenString, ok := strings.CutPrefix(header, "Bearer "); ok && tokenString != "" {
		loggedIn = h.manager.IsUserLoggedIn(tokenString)
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"logged_in": loggedIn})
}

// Me returns the current account
// GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.manager.GetCurrentUser(r.Context(), httputil.GetOwnerEmail(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, user)
}

// Logout revokes the presented token
// POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.manager.Logout(httputil.GetClaims(r))
	w.WriteHeader(http.StatusNoContent)
}
