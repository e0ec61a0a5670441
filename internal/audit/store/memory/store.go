// Package memory provides an in-memory audit.Store for unit tests and local
// development. It mirrors the PostgreSQL store's observable behavior,
// including serialization failures and newest-first ordering.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"leaddesk/internal/audit"
	dErrors "leaddesk/pkg/domain-errors"
)

// Store is an in-memory append-only ledger.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	entries []audit.Entry

	// FailAppend forces the next Append to fail; used by tests that assert
	// the mutation rolls back when the ledger write fails.
	FailAppend error
}

// New creates an empty in-memory ledger.
func New() *Store {
	return &Store{nextID: 1}
}

func (s *Store) Append(ctx context.Context, rec *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAppend != nil {
		return s.FailAppend
	}

	prior, err := encodeSnapshot(rec.Prior)
	if err != nil {
		return err
	}
	next, err := encodeSnapshot(rec.Next)
	if err != nil {
		return err
	}

	s.entries = append(s.entries, audit.Entry{
		ID:        s.nextID,
		Entity:    rec.Entity,
		EntityID:  rec.EntityID,
		Action:    rec.Action,
		Prior:     prior,
		Next:      next,
		ActorID:   rec.ActorID,
		CreatedAt: rec.CreatedAt,
	})
	s.nextID++
	return nil
}

func (s *Store) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []audit.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.Entity != "" && e.Entity != filter.Entity {
			continue
		}
		if filter.EntityID > 0 && e.EntityID != filter.EntityID {
			continue
		}
		if filter.ActorID > 0 && e.ActorID != filter.ActorID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		matched = append(matched, e)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *Store) ListByRecord(ctx context.Context, entity string, entityID int64) ([]audit.Entry, error) {
	return s.List(ctx, audit.Filter{Entity: entity, EntityID: entityID})
}

// All returns every entry oldest first; test helper.
func (s *Store) All() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func encodeSnapshot(snap *audit.Snapshot) (json.RawMessage, error) {
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
