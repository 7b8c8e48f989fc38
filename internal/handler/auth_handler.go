package handler

import (
	"net/http"
	"time"

	"thakii-backend/internal/container"
	"thakii-backend/internal/domain"
	"thakii-backend/internal/service/auth"
)

// AuthHandler handles authentication related requests
type AuthHandler struct {
	container *container.Container
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(container *container.Container) *AuthHandler {
	return &AuthHandler{
		container: container,
	}
}

// ExchangeTokenResponse is returned when a provider token is traded for a session token
type ExchangeTokenResponse struct {
	Success        bool               `json:"success"`
	Message        string             `json:"message"`
	CustomToken    string             `json:"custom_token"`
	TokenType      string             `json:"token_type"`
	ExpiresInHours int                `json:"expires_in_hours"`
	ExpiresAt      int64              `json:"expires_at"`
	User           domain.UserContext `json:"user"`
}

// UserResponse represents the current user response
type UserResponse struct {
	Success   bool               `json:"success"`
	User      domain.UserContext `json:"user"`
	Timestamp time.Time          `json:"timestamp"`
}

// ExchangeToken handles POST /auth/exchange-token
func (h *AuthHandler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()
	ctx := r.Context()

	token, claims, err := h.container.Authorizer.Exchange(ctx, r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, r, err, log)
		return
	}

	h.recordAdminLogin(r, claims.Email)

	writeJSON(w, http.StatusOK, ExchangeTokenResponse{
		Success:        true,
		Message:        "Token exchanged successfully",
		CustomToken:    token,
		TokenType:      auth.SessionTokenType,
		ExpiresInHours: int(auth.SessionTokenLifetime / time.Hour),
		ExpiresAt:      claims.ExpiresAt.Unix(),
		User:           auth.Normalize(claims, h.container.SuperAdmins),
	}, log)
}

// GetUser handles GET /auth/user
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	user, err := h.container.Authorizer.RequireAuth(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, r, err, log)
		return
	}

	log.WithField("user_id", user.Subject).Debug("Returning current user")

	writeJSON(w, http.StatusOK, UserResponse{
		Success:   true,
		User:      user,
		Timestamp: time.Now().UTC(),
	}, log)
}

// recordAdminLogin bumps login counters for registered admins. Failures are
// logged and never fail the exchange.
func (h *AuthHandler) recordAdminLogin(r *http.Request, email string) {
	log := h.container.GetLogger()
	ctx := r.Context()

	isAdmin, err := h.container.Admins.IsAdmin(ctx, email)
	if err != nil {
		log.WithError(err).Warn("Failed to check admin registry")
		return
	}
	if !isAdmin {
		return
	}
	if _, err := h.container.Admins.RecordLogin(ctx, email); err != nil {
		log.WithField("email", email).WithError(err).Warn("Failed to record admin login")
	}
}
