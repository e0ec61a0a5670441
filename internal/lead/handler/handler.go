// Package handler exposes lead lifecycle endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leaddesk/internal/lead"
	"leaddesk/internal/platform/middleware"
	"leaddesk/internal/transport/http/shared"
	dErrors "leaddesk/pkg/domain-errors"
)

// Service defines the interface for lead operations.
type Service interface {
	Create(ctx context.Context, actorID int64, req lead.CreateLeadRequest) (*lead.Lead, error)
	Update(ctx context.Context, actorID int64, id int64, req lead.UpdateLeadRequest) (*lead.Lead, error)
	UpdateStatus(ctx context.Context, actorID int64, id int64, status string) (*lead.Lead, error)
	Assign(ctx context.Context, actorID int64, id int64, assignedToID *int64) (*lead.Lead, error)
	Delete(ctx context.Context, actorID int64, id int64) error
	Get(ctx context.Context, id int64) (*lead.Lead, error)
	List(ctx context.Context, f lead.Filter) ([]*lead.Lead, error)
	Stats(ctx context.Context) (*lead.Stats, error)
	Recent(ctx context.Context, hours, limit int) ([]*lead.Lead, error)
}

// Handler handles lead endpoints.
type Handler struct {
	leads  Service
	logger *slog.Logger
}

// New creates a lead Handler.
func New(leads Service, logger *slog.Logger) *Handler {
	return &Handler{leads: leads, logger: logger}
}

// Register mounts the lead routes. The caller applies role gating.
func (h *Handler) Register(r chi.Router) {
	r.Get("/leads", h.handleList)
	r.Post("/leads", h.handleCreate)
	r.Get("/leads/stats", h.handleStats)
	r.Get("/leads/recent", h.handleRecent)
	r.Get("/leads/{id}", h.handleGet)
	r.Patch("/leads/{id}", h.handleUpdate)
	r.Delete("/leads/{id}", h.handleDelete)
	r.Patch("/leads/{id}/status", h.handleStatus)
	r.Patch("/leads/{id}/assign", h.handleAssign)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req lead.CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	l, err := h.leads.Create(ctx, principal.IdentityID, req)
	if err != nil {
		h.logError(ctx, "create lead failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, l)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := shared.PathID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	l, err := h.leads.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, l)
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

	var req lead.UpdateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	l, err := h.leads.Update(ctx, principal.IdentityID, id, req)
	if err != nil {
		h.logError(ctx, "update lead failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	l, err := h.leads.UpdateStatus(ctx, principal.IdentityID, id, req.Status)
	if err != nil {
		h.logError(ctx, "update lead status failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
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

	// Absent assigned_to_id clears the assignee.
	var assignedTo *int64
	if raw := r.URL.Query().Get("assigned_to_id"); raw != "" {
		n, err := shared.PathID(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid assigned_to_id"))
			return
		}
		assignedTo = &n
	}

	l, err := h.leads.Assign(ctx, principal.IdentityID, id, assignedTo)
	if err != nil {
		h.logError(ctx, "assign lead failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, l)
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
	if err := h.leads.Delete(ctx, principal.IdentityID, id); err != nil {
		h.logError(ctx, "delete lead failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f lead.Filter

	if raw := q.Get("status"); raw != "" {
		status, err := lead.ParseStatus(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		f.Status = &status
	}
	if raw := q.Get("channel"); raw != "" {
		channel, err := lead.ParseChannel(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		f.Channel = &channel
	}
	if raw := q.Get("assigned_to"); raw != "" {
		id, err := shared.PathID(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid assigned_to"))
			return
		}
		f.AssignedToID = &id
	}

	var err error
	if f.Limit, err = shared.QueryInt(q.Get("limit"), 100); err != nil {
		shared.WriteError(w, err)
		return
	}
	if f.Offset, err = shared.QueryInt(q.Get("offset"), 0); err != nil {
		shared.WriteError(w, err)
		return
	}

	leads, err := h.leads.List(r.Context(), f)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if leads == nil {
		leads = []*lead.Lead{}
	}
	shared.WriteJSON(w, http.StatusOK, leads)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.leads.Stats(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hours, err := shared.QueryInt(q.Get("hours"), 24)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	limit, err := shared.QueryInt(q.Get("limit"), 20)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	leads, err := h.leads.Recent(r.Context(), hours, limit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if leads == nil {
		leads = []*lead.Lead{}
	}
	shared.WriteJSON(w, http.StatusOK, leads)
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}
