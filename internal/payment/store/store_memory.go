package store

import (
	"context"
	"sort"
	"sync"

	"incorp/internal/payment/models"
	"incorp/pkg/platform/sentinel"
)

// Memory is an in-memory payment ledger for tests and single-process runs.
type Memory struct {
	mu       sync.RWMutex
	payments []models.Payment
	byRef    map[string]struct{}
}

// NewMemory constructs an empty in-memory payment store.
func NewMemory() *Memory {
	return &Memory{byRef: make(map[string]struct{})}
}

// Append adds a payment row. Non-empty references are unique;
// sentinel.ErrAlreadyExists reports a duplicate.
func (m *Memory) Append(_ context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payment.Reference != "" {
		if _, ok := m.byRef[payment.Reference]; ok {
			return sentinel.ErrAlreadyExists
		}
		m.byRef[payment.Reference] = struct{}{}
	}
	m.payments = append(m.payments, *payment)
	return nil
}

// ListByParty returns payments where the party is origin or destination,
// newest first.
func (m *Memory) ListByParty(_ context.Context, party string) ([]*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Payment
	for i := range m.payments {
		p := m.payments[i]
		if p.Origin == party || p.Destination == party {
			out = append(out, &p)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}

// HasReference reports whether a payment with the given chain reference is
// already recorded.
func (m *Memory) HasReference(_ context.Context, reference string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byRef[reference]
	return ok, nil
}
