// Package memory provides an in-memory lead store for tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"leaddesk/internal/lead"
	dErrors "leaddesk/pkg/domain-errors"
)

// Store is an in-memory implementation of lead.Store.
type Store struct {
	mu     sync.Mutex
	nextID int64
	leads  map[int64]*lead.Lead
}

// New creates an empty in-memory lead store.
func New() *Store {
	return &Store{nextID: 1, leads: make(map[int64]*lead.Lead)}
}

func (s *Store) Create(_ context.Context, l *lead.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.nextID
	s.nextID++
	cp := *l
	s.leads[l.ID] = &cp
	return nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*lead.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "lead not found")
	}
	cp := *l
	return &cp, nil
}

func (s *Store) Update(_ context.Context, l *lead.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[l.ID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "lead not found")
	}
	cp := *l
	s.leads[l.ID] = &cp
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[id]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "lead not found")
	}
	delete(s.leads, id)
	return nil
}

func (s *Store) List(_ context.Context, f lead.Filter) ([]*lead.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*lead.Lead
	for _, l := range s.sorted() {
		if f.Status != nil && l.Status != *f.Status {
			continue
		}
		if f.Channel != nil && l.Channel != *f.Channel {
			continue
		}
		if f.AssignedToID != nil && (l.AssignedToID == nil || *l.AssignedToID != *f.AssignedToID) {
			continue
		}
		matched = append(matched, l)
	}
	if f.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *Store) Stats(_ context.Context) (*lead.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &lead.Stats{
		ByStatus:  make(map[string]int64),
		ByChannel: make(map[string]int64),
	}
	for _, l := range s.leads {
		stats.Total++
		stats.ByStatus[l.Status.String()]++
		stats.ByChannel[l.Channel.String()]++
	}
	return stats, nil
}

func (s *Store) Recent(_ context.Context, since time.Time, limit int) ([]*lead.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*lead.Lead
	for _, l := range s.sorted() {
		if l.CreatedAt.Before(since) {
			continue
		}
		matched = append(matched, l)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) sorted() []*lead.Lead {
	out := make([]*lead.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
