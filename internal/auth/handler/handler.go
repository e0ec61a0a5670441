// Package handler exposes the login and logout endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leaddesk/internal/auth"
	"leaddesk/internal/platform/middleware"
	"leaddesk/internal/transport/http/shared"
	dErrors "leaddesk/pkg/domain-errors"
)

// Service defines the interface for authentication operations.
type Service interface {
	Login(ctx context.Context, username, password string) (*auth.TokenResponse, error)
	Logout(ctx context.Context, userID int64, tokenID string) error
}

// Handler handles authentication endpoints.
type Handler struct {
	auth   Service
	logger *slog.Logger
}

// New creates an auth Handler.
func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// RegisterPublic mounts the unauthenticated login route.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

// RegisterAuthenticated mounts the logout route; the caller applies the auth
// middleware.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	token, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, token)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	if err := h.auth.Logout(ctx, principal.IdentityID, principal.TokenID); err != nil {
		h.logger.WarnContext(ctx, "logout failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
