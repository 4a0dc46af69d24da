package store

import (
	"context"
	"sort"
	"sync"

	"incorp/internal/user/models"
	"incorp/pkg/domain"
	"incorp/pkg/platform/sentinel"
)

// Memory is an in-memory profile store for tests and single-process runs.
type Memory struct {
	mu       sync.RWMutex
	profiles map[domain.UserID]models.Profile
}

// NewMemory constructs an empty in-memory profile store.
func NewMemory() *Memory {
	return &Memory{profiles: make(map[domain.UserID]models.Profile)}
}

// CreateOrGet returns the profile for id, creating an unverified one on
// first sight.
func (m *Memory) CreateOrGet(_ context.Context, id domain.UserID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		p = models.Profile{ID: id}
		m.profiles[id] = p
	}
	return &p, nil
}

func (m *Memory) Find(_ context.Context, id domain.UserID) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

// SetVerified flips the verification mirror. The returned bool reports
// whether this call performed the flip.
func (m *Memory) SetVerified(_ context.Context, id domain.UserID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		p = models.Profile{ID: id}
	}
	if p.KYCVerified {
		return false, nil
	}
	p.KYCVerified = true
	m.profiles[id] = p
	return true, nil
}

// ListUnverified returns every profile whose mirror is still down.
func (m *Memory) ListUnverified(_ context.Context) ([]domain.UserID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.UserID
	for id, p := range m.profiles {
		if !p.KYCVerified {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].String() < out[b].String() })
	return out, nil
}
