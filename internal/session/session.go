// Package session persists per-session cart state between requests.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"savdo/backend/internal/cart"
)

// Key identifies one logged-in session of one tenant.
type Key struct {
	ProfileID int64
	SessionID string
}

func (k Key) String() string {
	return fmt.Sprintf("cart:%d:%s", k.ProfileID, k.SessionID)
}

// Store loads and saves cart state. A missing key loads as a fresh cart.
type Store interface {
	Load(ctx context.Context, key Key) (cart.State, error)
	Save(ctx context.Context, key Key, state cart.State) error
	Delete(ctx context.Context, key Key) error
}

type memoryEntry struct {
	state     cart.State
	expiresAt time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, key Key) (cart.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key.String()]
	if !ok {
		return cart.New(), nil
	}
	if m.ttl > 0 && m.now().After(entry.expiresAt) {
		delete(m.entries, key.String())
		return cart.New(), nil
	}
	return entry.state, nil
}

func (m *MemoryStore) Save(_ context.Context, key Key, state cart.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key.String()] = memoryEntry{state: state, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key.String())
	return nil
}
