package lead

import (
	"context"
	"errors"
	"time"

	"leaddesk/internal/audit"
	"leaddesk/internal/storage"
	dErrors "leaddesk/pkg/domain-errors"
)

const (
	maxPageSize      = 100
	defaultRecentWin = 24 * time.Hour
)

// ClientChecker confirms a referenced client exists.
type ClientChecker interface {
	Exists(ctx context.Context, id int64) error
}

// Service implements lead management with audited mutations.
type Service struct {
	store    Store
	clients  ClientChecker
	pipeline *storage.Pipeline
	clock    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock sets the timestamp source for testability.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs the lead service.
func NewService(store Store, clients ClientChecker, pipeline *storage.Pipeline, opts ...ServiceOption) *Service {
	s := &Service{store: store, clients: clients, pipeline: pipeline, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create registers a new lead in status "new" and audits it.
func (s *Service) Create(ctx context.Context, actorID int64, req CreateLeadRequest) (*Lead, error) {
	channel, err := ParseChannel(req.Channel)
	if err != nil {
		return nil, err
	}
	if req.ClientID <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "client_id is required")
	}

	l := &Lead{
		ClientID:     req.ClientID,
		Channel:      channel,
		Status:       StatusNew,
		AdminNotes:   req.AdminNotes,
		SalesNotes:   req.SalesNotes,
		CreatedByID:  actorID,
		AssignedToID: req.AssignedToID,
	}

	err = s.pipeline.Mutate(ctx, EntityName, audit.ActionCreate, actorID, func(ctx context.Context) (storage.Result, error) {
		if err := s.clients.Exists(ctx, req.ClientID); err != nil {
			return storage.Result{}, err
		}
		now := s.clock().UTC()
		l.CreatedAt, l.UpdatedAt = now, now
		if err := s.store.Create(ctx, l); err != nil {
			return storage.Result{}, err
		}
		return storage.Result{EntityID: l.ID, Next: l.Snapshot()}, nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Update applies a partial update; unchanged requests are no-ops without an
// audit record.
func (s *Service) Update(ctx context.Context, actorID int64, id int64, req UpdateLeadRequest) (*Lead, error) {
	var (
		channel Channel
		status  Status
		err     error
	)
	if req.Channel != nil {
		if channel, err = ParseChannel(*req.Channel); err != nil {
			return nil, err
		}
	}
	if req.Status != nil {
		if status, err = ParseStatus(*req.Status); err != nil {
			return nil, err
		}
	}
	if req.ClientID != nil && *req.ClientID <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "client_id must be positive")
	}

	var result *Lead
	err = s.pipeline.Mutate(ctx, EntityName, audit.ActionUpdate, actorID, func(ctx context.Context) (storage.Result, error) {
		current, err := s.store.FindByID(ctx, id)
		if err != nil {
			return storage.Result{}, err
		}
		prior := current.Snapshot()

		changed := false
		if req.ClientID != nil && *req.ClientID != current.ClientID {
			if err := s.clients.Exists(ctx, *req.ClientID); err != nil {
				return storage.Result{}, err
			}
			current.ClientID = *req.ClientID
			changed = true
		}
		if req.Channel != nil && channel != current.Channel {
			current.Channel = channel
			changed = true
		}
		if req.Status != nil && status != current.Status {
			current.Status = status
			changed = true
		}
		changed = applyStringPtr(&current.AdminNotes, req.AdminNotes) || changed
		changed = applyStringPtr(&current.SalesNotes, req.SalesNotes) || changed
		if req.AssignedToID != nil && !equalInt64Ptr(current.AssignedToID, req.AssignedToID) {
			current.AssignedToID = req.AssignedToID
			changed = true
		}

		if !changed {
			result = current
			return storage.Result{}, storage.ErrNoChange
		}

		current.UpdatedAt = s.clock().UTC()
		if err := s.store.Update(ctx, current); err != nil {
			return storage.Result{}, err
		}
		result = current
		return storage.Result{EntityID: current.ID, Prior: prior, Next: current.Snapshot()}, nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNoChange) {
			return result, nil
		}
		return nil, err
	}
	return result, nil
}

// UpdateStatus moves a lead through the funnel. Setting the current status
// again is a no-op without an audit record.
func (s *Service) UpdateStatus(ctx context.Context, actorID int64, id int64, status string) (*Lead, error) {
	st := status
	return s.Update(ctx, actorID, id, UpdateLeadRequest{Status: &st})
}

// Assign sets or clears the lead's assignee.
func (s *Service) Assign(ctx context.Context, actorID int64, id int64, assignedToID *int64) (*Lead, error) {
	if assignedToID == nil {
		// Distinguish "clear assignee" from "field absent" in Update.
		var result *Lead
		err := s.pipeline.Mutate(ctx, EntityName, audit.ActionUpdate, actorID, func(ctx context.Context) (storage.Result, error) {
			current, err := s.store.FindByID(ctx, id)
			if err != nil {
				return storage.Result{}, err
			}
			if current.AssignedToID == nil {
				result = current
				return storage.Result{}, storage.ErrNoChange
			}
			prior := current.Snapshot()
			current.AssignedToID = nil
			current.UpdatedAt = s.clock().UTC()
			if err := s.store.Update(ctx, current); err != nil {
				return storage.Result{}, err
			}
			result = current
			return storage.Result{EntityID: current.ID, Prior: prior, Next: current.Snapshot()}, nil
		})
		if err != nil && !errors.Is(err, storage.ErrNoChange) {
			return nil, err
		}
		return result, nil
	}
	return s.Update(ctx, actorID, id, UpdateLeadRequest{AssignedToID: assignedToID})
}

// Delete removes a lead and audits the pre-delete state.
func (s *Service) Delete(ctx context.Context, actorID int64, id int64) error {
	return s.pipeline.Mutate(ctx, EntityName, audit.ActionDelete, actorID, func(ctx context.Context) (storage.Result, error) {
		current, err := s.store.FindByID(ctx, id)
		if err != nil {
			return storage.Result{}, err
		}
		prior := current.Snapshot()
		if err := s.store.Delete(ctx, id); err != nil {
			return storage.Result{}, err
		}
		return storage.Result{EntityID: id, Prior: prior}, nil
	})
}

// Get returns one lead by id.
func (s *Service) Get(ctx context.Context, id int64) (*Lead, error) {
	return s.store.FindByID(ctx, id)
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]*Lead, error) {
	if f.Limit <= 0 || f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.List(ctx, f)
}

// Stats returns lead counts grouped by status and channel.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}

// Recent returns leads created within the window, newest first.
func (s *Service) Recent(ctx context.Context, hours, limit int) ([]*Lead, error) {
	window := defaultRecentWin
	if hours > 0 {
		window = time.Duration(hours) * time.Hour
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	return s.store.Recent(ctx, s.clock().UTC().Add(-window), limit)
}

func applyStringPtr(field **string, req *string) bool {
	if req == nil {
		return false
	}
	if *field != nil && **field == *req {
		return false
	}
	if *field == nil && *req == "" {
		return false
	}
	*field = req
	return true
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
