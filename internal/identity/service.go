package identity

import (
	"context"
	"errors"
	"time"

	"github.com/asaskevich/govalidator"
	"golang.org/x/crypto/bcrypt"

	"leaddesk/internal/audit"
	"leaddesk/internal/storage"
	"leaddesk/pkg/domain"
	dErrors "leaddesk/pkg/domain-errors"
)

const maxPageSize = 100

// Service implements user management. Every write goes through the mutation
// pipeline, so each one lands in the audit ledger exactly once.
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

// NewService constructs the user management service.
func NewService(store Store, pipeline *storage.Pipeline, opts ...ServiceOption) *Service {
	s := &Service{store: store, pipeline: pipeline, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create adds a user and audits the creation.
func (s *Service) Create(ctx context.Context, actorID int64, req CreateUserRequest) (*User, error) {
	if !govalidator.StringLength(req.Username, "3", "50") {
		return nil, dErrors.New(dErrors.CodeValidation, "username must be 3-50 characters")
	}
	if req.Email != nil && !govalidator.IsEmail(*req.Email) {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	if len(req.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	user := &User{
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: string(hash),
		Role:           role,
		Active:         active,
	}

	err = s.pipeline.Mutate(ctx, EntityName, audit.ActionCreate, actorID, func(ctx context.Context) (storage.Result, error) {
		now := s.clock().UTC()
		user.CreatedAt, user.UpdatedAt = now, now
		if err := s.store.Create(ctx, user); err != nil {
			return storage.Result{}, err
		}
		return storage.Result{EntityID: user.ID, Next: user.Snapshot()}, nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies a partial update and audits prior and next state. Updating
// nothing is a no-op without an audit record.
func (s *Service) Update(ctx context.Context, actorID int64, id int64, req UpdateUserRequest) (*User, error) {
	if req.Email != nil && *req.Email != "" && !govalidator.IsEmail(*req.Email) {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	if req.Password != nil && len(*req.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	var role domain.Role
	if req.Role != nil {
		var err error
		if role, err = domain.ParseRole(*req.Role); err != nil {
			return nil, err
		}
	}

	var user *User
	err := s.pipeline.Mutate(ctx, EntityName, audit.ActionUpdate, actorID, func(ctx context.Context) (storage.Result, error) {
		current, err := s.store.FindByID(ctx, id)
		if err != nil {
			return storage.Result{}, err
		}
		prior := current.Snapshot()

		changed := false
		if req.Email != nil && !equalStringPtr(req.Email, current.Email) {
			current.Email = req.Email
			changed = true
		}
		if req.Role != nil && role != current.Role {
			current.Role = role
			changed = true
		}
		if req.Active != nil && *req.Active != current.Active {
			current.Active = *req.Active
			changed = true
		}
		if req.Password != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				return storage.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
			}
			current.HashedPassword = string(hash)
			changed = true
		}

		if !changed {
			user = current
			return storage.Result{}, storage.ErrNoChange
		}

		current.UpdatedAt = s.clock().UTC()
		if err := s.store.Update(ctx, current); err != nil {
			return storage.Result{}, err
		}
		user = current
		return storage.Result{EntityID: current.ID, Prior: prior, Next: current.Snapshot()}, nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNoChange) {
			return user, nil
		}
		return nil, err
	}
	return user, nil
}

// Delete removes a user and audits the pre-delete state. Self-deletion is
// rejected so an admin cannot lock the system out by accident.
func (s *Service) Delete(ctx context.Context, actorID int64, id int64) error {
	if id == actorID {
		return dErrors.New(dErrors.CodeBadRequest, "cannot delete your own account")
	}
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

// Get returns one user by id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.store.FindByID(ctx, id)
}

// List returns users with pagination.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, limit, offset)
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
