package audit

import (
	"context"
	"time"

	dErrors "leaddesk/pkg/domain-errors"
)

// Clock supplies the ledger timestamp; injected for testability.
type Clock func() time.Time

// Recorder turns completed mutations into ledger records. Record must run
// with the mutation's transaction in ctx so the ledger write commits or rolls
// back together with the mutation itself.
type Recorder struct {
	store Store
	clock Clock
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) RecorderOption {
	return func(r *Recorder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewRecorder constructs a Recorder backed by store.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Record persists exactly one ledger record for a mutation. Prior must be set
// for update and delete, Next for create and update; violating those shapes
// is an invariant failure, not a storable record. Any failure here fails the
// enclosing mutation.
func (r *Recorder) Record(ctx context.Context, entity string, entityID int64, action Action, prior, next *Snapshot, actorID int64) error {
	if entity == "" {
		return dErrors.New(dErrors.CodeBadRequest, "audit entity name required")
	}
	if entityID <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "audit entity id required")
	}
	if !action.IsValid() {
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown audit action %q", action)
	}
	if actorID <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "audit actor id required")
	}

	switch action {
	case ActionCreate:
		if prior != nil || next == nil {
			return dErrors.New(dErrors.CodeBadRequest, "create records need a next snapshot and no prior")
		}
	case ActionUpdate:
		if prior == nil || next == nil {
			return dErrors.New(dErrors.CodeBadRequest, "update records need prior and next snapshots")
		}
	case ActionDelete:
		if prior == nil || next != nil {
			return dErrors.New(dErrors.CodeBadRequest, "delete records need a prior snapshot and no next")
		}
	}

	rec := &Record{
		Entity:    entity,
		EntityID:  entityID,
		Action:    action,
		Prior:     prior,
		Next:      next,
		ActorID:   actorID,
		CreatedAt: r.clock().UTC(),
	}
	if err := r.store.Append(ctx, rec); err != nil {
		if dErrors.HasCode(err, dErrors.CodeSerialization) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "append audit record")
	}
	return nil
}
