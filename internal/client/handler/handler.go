// Package handler exposes client CRUD and search endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leaddesk/internal/client"
	"leaddesk/internal/platform/middleware"
	"leaddesk/internal/transport/http/shared"
	dErrors "leaddesk/pkg/domain-errors"
)

// Service defines the interface for client operations.
type Service interface {
	Create(ctx context.Context, actorID int64, req client.CreateClientRequest) (*client.Client, error)
	Update(ctx context.Context, actorID int64, id int64, req client.UpdateClientRequest) (*client.Client, error)
	Delete(ctx context.Context, actorID int64, id int64) error
	Get(ctx context.Context, id int64) (*client.Client, error)
	List(ctx context.Context, limit, offset int) ([]*client.Client, error)
	Search(ctx context.Context, phone, name string) ([]*client.Client, error)
}

// Handler handles client endpoints.
type Handler struct {
	clients Service
	logger  *slog.Logger
}

// New creates a client Handler.
func New(clients Service, logger *slog.Logger) *Handler {
	return &Handler{clients: clients, logger: logger}
}

// Register mounts the client routes. The caller applies role gating.
func (h *Handler) Register(r chi.Router) {
	r.Get("/clients", h.handleList)
	r.Post("/clients", h.handleCreate)
	r.Get("/clients/search", h.handleSearch)
	r.Get("/clients/{id}", h.handleGet)
	r.Patch("/clients/{id}", h.handleUpdate)
	r.Delete("/clients/{id}", h.handleDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req client.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	c, err := h.clients.Create(ctx, principal.IdentityID, req)
	if err != nil {
		h.logError(ctx, "create client failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := shared.PathID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	c, err := h.clients.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, c)
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

	var req client.UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	c, err := h.clients.Update(ctx, principal.IdentityID, id, req)
	if err != nil {
		h.logError(ctx, "update client failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, c)
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
	if err := h.clients.Delete(ctx, principal.IdentityID, id); err != nil {
		h.logError(ctx, "delete client failed", err)
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
	clients, err := h.clients.List(r.Context(), limit, offset)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if clients == nil {
		clients = []*client.Client{}
	}
	shared.WriteJSON(w, http.StatusOK, clients)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clients, err := h.clients.Search(r.Context(), q.Get("phone"), q.Get("name"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if clients == nil {
		clients = []*client.Client{}
	}
	shared.WriteJSON(w, http.StatusOK, clients)
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}
