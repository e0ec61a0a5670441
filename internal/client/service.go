package client

import (
	"context"
	"errors"
	"time"

	"github.com/asaskevich/govalidator"

	"leaddesk/internal/audit"
	"leaddesk/internal/storage"
	dErrors "leaddesk/pkg/domain-errors"
)

const maxPageSize = 100

// Service implements client management with audited mutations.
type Service struct {
	store    Store
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

// NewService constructs the client service.
func NewService(store Store, pipeline *storage.Pipeline, opts ...ServiceOption) *Service {
	s := &Service{store: store, pipeline: pipeline, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create adds a client and audits the creation.
func (s *Service) Create(ctx context.Context, actorID int64, req CreateClientRequest) (*Client, error) {
	clientType, err := ParseType(req.ClientType)
	if err != nil {
		return nil, err
	}
	if !govalidator.StringLength(req.ContactName, "1", "150") {
		return nil, dErrors.New(dErrors.CodeValidation, "contact_name is required")
	}
	if req.Email != nil && *req.Email != "" && !govalidator.IsEmail(*req.Email) {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid email")
	}

	c := &Client{
		ClientType:  clientType,
		ContactName: req.ContactName,
		CompanyName: req.CompanyName,
		Phone:       req.Phone,
		Email:       req.Email,
		Instagram:   req.Instagram,
		Address:     req.Address,
		Country:     req.Country,
	}

	err = s.pipeline.Mutate(ctx, EntityName, audit.ActionCreate, actorID, func(ctx context.Context) (storage.Result, error) {
		now := s.clock().UTC()
		c.CreatedAt, c.UpdatedAt = now, now
		if err := s.store.Create(ctx, c); err != nil {
			return storage.Result{}, err
		}
		return storage.Result{EntityID: c.ID, Next: c.Snapshot()}, nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Update applies a partial update; unchanged requests are no-ops without an
// audit record.
func (s *Service) Update(ctx context.Context, actorID int64, id int64, req UpdateClientRequest) (*Client, error) {
	var clientType Type
	if req.ClientType != nil {
		var err error
		if clientType, err = ParseType(*req.ClientType); err != nil {
			return nil, err
		}
	}
	if req.ContactName != nil && !govalidator.StringLength(*req.ContactName, "1", "150") {
		return nil, dErrors.New(dErrors.CodeValidation, "contact_name must not be empty")
	}
	if req.Email != nil && *req.Email != "" && !govalidator.IsEmail(*req.Email) {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid email")
	}

	var result *Client
	err := s.pipeline.Mutate(ctx, EntityName, audit.ActionUpdate, actorID, func(ctx context.Context) (storage.Result, error) {
		current, err := s.store.FindByID(ctx, id)
		if err != nil {
			return storage.Result{}, err
		}
		prior := current.Snapshot()

		changed := false
		if req.ClientType != nil && clientType != current.ClientType {
			current.ClientType = clientType
			changed = true
		}
		if req.ContactName != nil && *req.ContactName != current.ContactName {
			current.ContactName = *req.ContactName
			changed = true
		}
		changed = applyStringPtr(&current.CompanyName, req.CompanyName) || changed
		changed = applyStringPtr(&current.Phone, req.Phone) || changed
		changed = applyStringPtr(&current.Email, req.Email) || changed
		changed = applyStringPtr(&current.Instagram, req.Instagram) || changed
		changed = applyStringPtr(&current.Address, req.Address) || changed
		changed = applyStringPtr(&current.Country, req.Country) || changed

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

// Delete removes a client and audits the pre-delete state.
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

// Exists reports whether a client is present; returns the store's not-found
// error otherwise. Used by lead creation to validate references.
func (s *Service) Exists(ctx context.Context, id int64) error {
	_, err := s.store.FindByID(ctx, id)
	return err
}

// Get returns one client by id.
func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	return s.store.FindByID(ctx, id)
}

// List returns clients with pagination.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Client, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, limit, offset)
}

// Search finds clients by exact phone or partial contact name.
func (s *Service) Search(ctx context.Context, phone, name string) ([]*Client, error) {
	if phone == "" && name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "phone or name query required")
	}
	return s.store.Search(ctx, phone, name, maxPageSize)
}

// applyStringPtr copies req into field when set and different; reports
// whether it changed anything.
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
