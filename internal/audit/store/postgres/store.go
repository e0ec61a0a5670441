// Package postgres persists the audit ledger. The ledger table is
// append-only and is the source of truth; every Append also stages an outbox
// row in the same transaction for the optional Kafka stream.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"leaddesk/internal/audit"
	dErrors "leaddesk/pkg/domain-errors"
	txcontext "leaddesk/pkg/platform/tx"
)

const defaultListLimit = 100

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one ledger row plus its outbox row. It joins the
// transaction carried in ctx, so the write commits or rolls back with the
// mutation that produced it.
func (s *Store) Append(ctx context.Context, rec *audit.Record) error {
	prior, err := encodeSnapshot(rec.Prior)
	if err != nil {
		return err
	}
	next, err := encodeSnapshot(rec.Next)
	if err != nil {
		return err
	}

	exec := txcontext.Resolve(ctx, s.db)

	var recordID int64
	err = exec.QueryRowContext(ctx, `
		INSERT INTO audit_records (entity, entity_id, action, prior, next, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, rec.Entity, rec.EntityID, string(rec.Action), prior, next, rec.ActorID, rec.CreatedAt).Scan(&recordID)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	payload, err := json.Marshal(streamPayload{
		EventID:   uuid.NewString(),
		Entity:    rec.Entity,
		EntityID:  rec.EntityID,
		Action:    string(rec.Action),
		ActorID:   rec.ActorID,
		Timestamp: rec.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeSerialization, "marshal outbox payload")
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO audit_outbox (record_id, payload, created_at)
		VALUES ($1, $2, $3)
	`, recordID, payload, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit outbox entry: %w", err)
	}
	return nil
}

// streamPayload is the JSON structure published to the audit stream. It
// references the ledger row rather than duplicating snapshots.
type streamPayload struct {
	EventID   string `json:"event_id"`
	Entity    string `json:"entity"`
	EntityID  int64  `json:"entity_id"`
	Action    string `json:"action"`
	ActorID   int64  `json:"actor_id"`
	Timestamp string `json:"timestamp"`
}

// List returns ledger entries newest first, narrowed by filter.
func (s *Store) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, clause+"$"+strconv.Itoa(len(args)))
	}
	if filter.Entity != "" {
		add("entity = ", filter.Entity)
	}
	if filter.EntityID > 0 {
		add("entity_id = ", filter.EntityID)
	}
	if filter.ActorID > 0 {
		add("actor_id = ", filter.ActorID)
	}
	if filter.Action != "" {
		add("action = ", string(filter.Action))
	}

	query := `SELECT id, entity, entity_id, action, prior, next, actor_id, created_at FROM audit_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	query += " ORDER BY created_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListByRecord returns the full history of one tracked record, newest first.
func (s *Store) ListByRecord(ctx context.Context, entity string, entityID int64) ([]audit.Entry, error) {
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, `
		SELECT id, entity, entity_id, action, prior, next, actor_id, created_at
		FROM audit_records
		WHERE entity = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC
	`, entity, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit records by record: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// PendingOutbox returns up to limit unpublished outbox rows, oldest first.
func (s *Store) PendingOutbox(ctx context.Context, limit int) ([]audit.OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.OutboxEntry
	for rows.Next() {
		var e audit.OutboxEntry
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkPublished stamps a batch of outbox rows as published.
func (s *Store) MarkPublished(ctx context.Context, ids []int64, publishedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = $2 WHERE id = ANY($1::bigint[])
	`, pq.Array(ids), publishedAt)
	if err != nil {
		return fmt.Errorf("mark outbox entries published: %w", err)
	}
	return nil
}

func encodeSnapshot(snap *audit.Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeSerialization) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeSerialization, "encode audit snapshot")
	}
	return data, nil
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		var (
			e           audit.Entry
			prior, next []byte
			action      string
		)
		if err := rows.Scan(&e.ID, &e.Entity, &e.EntityID, &action, &prior, &next, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		e.Action = audit.Action(action)
		e.Prior = json.RawMessage(prior)
		e.Next = json.RawMessage(next)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
