// Package memory provides an in-memory identity.Store for unit tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"leaddesk/internal/identity"
	dErrors "leaddesk/pkg/domain-errors"
)

// Store is an in-memory user store.
type Store struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]identity.User
}

// New creates an empty store.
func New() *Store {
	return &Store{nextID: 1, users: make(map[int64]identity.User)}
}

func (s *Store) Create(ctx context.Context, u *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return dErrors.New(dErrors.CodeConflict, "username or email already in use")
		}
		if u.Email != nil && existing.Email != nil && *existing.Email == *u.Email {
			return dErrors.New(dErrors.CodeConflict, "username or email already in use")
		}
	}

	u.ID = s.nextID
	s.nextID++
	s.users[u.ID] = *u
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return &u, nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
}

func (s *Store) Update(ctx context.Context, u *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	delete(s.users, id)
	return nil
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*identity.User
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(out) == limit {
			break
		}
		u := s.users[id]
		out = append(out, &u)
	}
	return out, nil
}
