package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryList is an in-process revocation list for tests and single-node
// development runs.
type MemoryList struct {
	mu      sync.Mutex
	clock   Clock
	entries map[string]time.Time
}

// MemoryListOption configures a MemoryList instance.
type MemoryListOption func(*MemoryList)

// WithMemoryClock sets the clock function for testability.
func WithMemoryClock(clock Clock) MemoryListOption {
	return func(l *MemoryList) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewMemoryList constructs an in-memory token revocation list.
func NewMemoryList(opts ...MemoryListOption) *MemoryList {
	l := &MemoryList{clock: time.Now, entries: make(map[string]time.Time)}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (t *MemoryList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[jti] = t.clock().Add(ttl)
	return nil
}

func (t *MemoryList) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	expiresAt, ok := t.entries[jti]
	if !ok {
		return false, nil
	}
	if t.clock().After(expiresAt) {
		delete(t.entries, jti)
		return false, nil
	}
	return true, nil
}
