package audit

import (
	"context"

	dErrors "leaddesk/pkg/domain-errors"
)

const maxListLimit = 100

// Service exposes read access to the ledger for the admin inspection
// endpoints. The ledger itself is only ever written through the Recorder.
type Service struct {
	store Store
}

// NewService constructs a ledger read service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns ledger entries newest first, narrowed by filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Entry, error) {
	if filter.Action != "" && !filter.Action.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown audit action %q", filter.Action)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "limit and offset must not be negative")
	}
	if filter.Limit == 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	entries, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit records")
	}
	return entries, nil
}

// History returns the full trail of one tracked record, newest first.
func (s *Service) History(ctx context.Context, entity string, entityID int64) ([]Entry, error) {
	if entity == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "entity name required")
	}
	if entityID <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "entity id required")
	}
	entries, err := s.store.ListByRecord(ctx, entity, entityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit history")
	}
	return entries, nil
}
