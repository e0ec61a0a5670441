// Package audit captures every mutation of a tracked entity as an immutable
// ledger record: what changed, by whom, and when. Records are written in the
// same transaction as the mutation they describe.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Action is the kind of mutation a record describes.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// IsValid checks whether the action is one of the supported enum values.
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Record is the write-side input for one ledger entry. Prior is nil for
// create, Next is nil for delete, both are set for update (full-state
// capture, not diffs).
type Record struct {
	Entity    string
	EntityID  int64
	Action    Action
	Prior     *Snapshot
	Next      *Snapshot
	ActorID   int64
	CreatedAt time.Time
}

// Entry is a persisted ledger row as read back for inspection. Snapshots
// surface as raw JSON so the ledger stays self-describing without schema
// lookups.
type Entry struct {
	ID        int64           `json:"id"`
	Entity    string          `json:"entity"`
	EntityID  int64           `json:"entity_id"`
	Action    Action          `json:"action"`
	Prior     json.RawMessage `json:"prior"`
	Next      json.RawMessage `json:"next"`
	ActorID   int64           `json:"actor_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// Filter narrows ledger listings. Zero values mean "no constraint".
type Filter struct {
	Entity   string
	EntityID int64
	ActorID  int64
	Action   Action
	Limit    int
	Offset   int
}

// OutboxEntry is a staged stream event awaiting publication. Outbox rows are
// written in the same transaction as their ledger record, so the stream never
// sees a mutation that was rolled back.
type OutboxEntry struct {
	ID       int64
	RecordID int64
	Payload  []byte
}

// Store persists ledger records. Append must join the transaction carried in
// ctx; the ledger is append-only, so there is no update or delete.
type Store interface {
	Append(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
	ListByRecord(ctx context.Context, entity string, entityID int64) ([]Entry, error)
}
