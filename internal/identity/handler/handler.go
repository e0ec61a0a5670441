// Package handler exposes user management endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leaddesk/internal/identity"
	"leaddesk/internal/platform/middleware"
	"leaddesk/internal/transport/http/shared"
	dErrors "leaddesk/pkg/domain-errors"
)

// Service defines the interface for user operations.
type Service interface {
	Create(ctx context.Context, actorID int64, req identity.CreateUserRequest) (*identity.User, error)
	Update(ctx context.Context, actorID int64, id int64, req identity.UpdateUserRequest) (*identity.User, error)
	Delete(ctx context.Context, actorID int64, id int64) error
	Get(ctx context.Context, id int64) (*identity.User, error)
	List(ctx context.Context, limit, offset int) ([]*identity.User, error)
}

// Handler handles user management endpoints.
type Handler struct {
	users  Service
	logger *slog.Logger
}

// New creates a user Handler.
func New(users Service, logger *slog.Logger) *Handler {
	return &Handler{users: users, logger: logger}
}

// Register mounts the user routes. The caller applies role gating.
func (h *Handler) Register(r chi.Router) {
	r.Get("/users", h.handleList)
	r.Post("/users", h.handleCreate)
	r.Get("/users/{id}", h.handleGet)
	r.Patch("/users/{id}", h.handleUpdate)
	r.Delete("/users/{id}", h.handleDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req identity.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, err := h.users.Create(ctx, principal.IdentityID, req)
	if err != nil {
		h.logError(ctx, "create user failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := shared.PathID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	id, err := shared.PathID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req identity.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, err := h.users.Update(ctx, principal.IdentityID, id, req)
	if err != nil {
		h.logError(ctx, "update user failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	id, err := shared.PathID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.users.Delete(ctx, principal.IdentityID, id); err != nil {
		h.logError(ctx, "delete user failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, err := shared.QueryInt(r.URL.Query().Get("limit"), 100)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	offset, err := shared.QueryInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if users == nil {
		users = []*identity.User{}
	}
	shared.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}
