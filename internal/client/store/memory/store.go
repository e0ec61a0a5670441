// Package memory provides an in-memory client store for tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"leaddesk/internal/client"
	dErrors "leaddesk/pkg/domain-errors"
)

// Store is an in-memory implementation of client.Store.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	clients map[int64]*client.Client
}

// New creates an empty in-memory client store.
func New() *Store {
	return &Store{nextID: 1, clients: make(map[int64]*client.Client)}
}

func (s *Store) Create(_ context.Context, c *client.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Phone != nil {
		for _, existing := range s.clients {
			if existing.Phone != nil && *existing.Phone == *c.Phone {
				return dErrors.New(dErrors.CodeConflict, "phone already registered")
			}
		}
	}
	c.ID = s.nextID
	s.nextID++
	cp := *c
	s.clients[c.ID] = &cp
	return nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
	}
	cp := *c
	return &cp, nil
}

func (s *Store) Update(_ context.Context, c *client.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.ID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "client not found")
	}
	if c.Phone != nil {
		for id, existing := range s.clients {
			if id != c.ID && existing.Phone != nil && *existing.Phone == *c.Phone {
				return dErrors.New(dErrors.CodeConflict, "phone already registered")
			}
		}
	}
	cp := *c
	s.clients[c.ID] = &cp
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "client not found")
	}
	delete(s.clients, id)
	return nil
}

func (s *Store) List(_ context.Context, limit, offset int) ([]*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted()
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) Search(_ context.Context, phone, name string, limit int) ([]*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*client.Client
	for _, c := range s.sorted() {
		if phone != "" && (c.Phone == nil || *c.Phone != phone) {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(c.ContactName), strings.ToLower(name)) {
			continue
		}
		matched = append(matched, c)
		if len(matched) == limit {
			break
		}
	}
	return matched, nil
}

func (s *Store) sorted() []*client.Client {
	out := make([]*client.Client, 0, len(s.clients))
	for _, c := range s.clients {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
