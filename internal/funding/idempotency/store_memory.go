package idempotency

import (
	"context"
	"sync"
	"time"

	"incorp/pkg/platform/sentinel"
)

type reservation struct {
	completed bool
	expiresAt time.Time
}

// Memory is an in-process idempotency store for tests and single-node runs.
type Memory struct {
	mu   sync.Mutex
	keys map[string]reservation
}

func NewMemory() *Memory {
	return &Memory{keys: make(map[string]reservation)}
}

func (m *Memory) Begin(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.keys[key]; ok && time.Now().Before(r.expiresAt) {
		if r.completed {
			return sentinel.ErrAlreadyExists
		}
		return sentinel.ErrConflict
	}
	m.keys[key] = reservation{expiresAt: time.Now().Add(InFlightTTL)}
	return nil
}

func (m *Memory) Complete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = reservation{completed: true, expiresAt: time.Now().Add(CompletedTTL)}
	return nil
}

func (m *Memory) Fail(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}
