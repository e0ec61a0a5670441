// Package handler exposes the audit ledger to administrators.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leaddesk/internal/audit"
	"leaddesk/internal/transport/http/shared"
	dErrors "leaddesk/pkg/domain-errors"
)

// Service defines the read-only ledger interface.
type Service interface {
	List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
	History(ctx context.Context, entity string, entityID int64) ([]audit.Entry, error)
}

// Handler handles audit ledger endpoints.
type Handler struct {
	ledger Service
}

// New creates an audit Handler.
func New(ledger Service) *Handler {
	return &Handler{ledger: ledger}
}

// Register mounts the ledger routes. The caller applies admin gating.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.handleList)
	r.Get("/audit/{entity}/{id}", h.handleHistory)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		filter audit.Filter
		err    error
	)
	filter.Entity = q.Get("entity")
	filter.Action = audit.Action(q.Get("action"))

	if raw := q.Get("entity_id"); raw != "" {
		if filter.EntityID, err = shared.PathID(raw); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid entity_id"))
			return
		}
	}
	if raw := q.Get("actor_id"); raw != "" {
		if filter.ActorID, err = shared.PathID(raw); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid actor_id"))
			return
		}
	}
	if filter.Limit, err = shared.QueryInt(q.Get("limit"), 50); err != nil {
		shared.WriteError(w, err)
		return
	}
	if filter.Offset, err = shared.QueryInt(q.Get("offset"), 0); err != nil {
		shared.WriteError(w, err)
		return
	}

	entries, err := h.ledger.List(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	shared.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	id, err := shared.PathID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entries, err := h.ledger.History(r.Context(), entity, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	shared.WriteJSON(w, http.StatusOK, entries)
}
