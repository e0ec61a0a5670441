// Package storage runs the mutation pipeline: every create, update, and
// delete of a tracked entity passes through Pipeline.Mutate, which wraps the
// entity write and its audit record in one transaction. Exactly-once auditing
// is enforced here structurally rather than by convention at call sites.
package storage

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"leaddesk/internal/audit"
	"leaddesk/internal/platform/metrics"
	dErrors "leaddesk/pkg/domain-errors"
)

var tracer = otel.Tracer("leaddesk/storage")

// ErrNoChange signals that a mutation function found nothing to apply. The
// pipeline rolls back cleanly and writes no audit record; an update that
// changes no fields is a no-op, not an audited event.
var ErrNoChange = errors.New("mutation applied no change")

// Tx begins and finishes transactions; satisfied by tx.Runner and by
// in-memory fakes in tests.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Result is what a mutation function reports back for auditing: the entity
// id (post-assignment for creates) and the state snapshots around the change.
type Result struct {
	EntityID int64
	Prior    *audit.Snapshot
	Next     *audit.Snapshot
}

// Pipeline applies mutations and records their audit trail atomically.
type Pipeline struct {
	tx       Tx
	recorder *audit.Recorder
	metrics  *metrics.Metrics
}

// NewPipeline wires the transaction runner and the audit recorder.
func NewPipeline(tx Tx, recorder *audit.Recorder, m *metrics.Metrics) *Pipeline {
	return &Pipeline{tx: tx, recorder: recorder, metrics: m}
}

// Mutate runs fn inside a transaction and appends exactly one audit record
// for its result. If fn fails, nothing is committed; if the audit write or
// its serialization fails, the entity write rolls back with it. The mutation
// is reported failed even if the store had applied it before the audit write
// failed.
func (p *Pipeline) Mutate(ctx context.Context, entity string, action audit.Action, actorID int64, fn func(ctx context.Context) (Result, error)) error {
	ctx, span := tracer.Start(ctx, "mutation")
	span.SetAttributes(
		attribute.String("entity", entity),
		attribute.String("action", string(action)),
	)
	defer span.End()

	err := p.tx.RunInTx(ctx, func(ctx context.Context) error {
		res, err := fn(ctx)
		if err != nil {
			return err
		}
		return p.recorder.Record(ctx, entity, res.EntityID, action, res.Prior, res.Next, actorID)
	})
	if err != nil {
		if errors.Is(err, ErrNoChange) {
			return err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		p.metrics.RecordMutationFailure(entity)
		return err
	}

	p.metrics.RecordAudit(entity, string(action))
	return nil
}
