package store

import (
	"context"
	"sort"
	"sync"

	"incorp/internal/company/models"
	"incorp/pkg/domain"
	"incorp/pkg/platform/sentinel"
)

type shareholderKey struct {
	companyID domain.CompanyID
	email     string
}

// Memory is an in-memory company store for tests and single-process runs.
type Memory struct {
	mu           sync.RWMutex
	companies    map[domain.CompanyID]models.Company
	byHandle     map[domain.Handle]domain.CompanyID
	shareholders map[shareholderKey]models.Shareholder
}

// NewMemory constructs an empty in-memory company store.
func NewMemory() *Memory {
	return &Memory{
		companies:    make(map[domain.CompanyID]models.Company),
		byHandle:     make(map[domain.Handle]domain.CompanyID),
		shareholders: make(map[shareholderKey]models.Shareholder),
	}
}

// Create inserts a company row. Returns sentinel.ErrAlreadyExists when the
// handle is taken.
func (m *Memory) Create(_ context.Context, company *models.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byHandle[company.Handle]; ok {
		return sentinel.ErrAlreadyExists
	}
	m.companies[company.ID] = *company
	m.byHandle[company.Handle] = company.ID
	return nil
}

func (m *Memory) FindByID(_ context.Context, id domain.CompanyID) (*models.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (m *Memory) FindByHandle(_ context.Context, handle domain.Handle) (*models.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byHandle[handle]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := m.companies[id]
	return &c, nil
}

// List returns all companies ordered by creation time, newest first.
func (m *Memory) List(_ context.Context) ([]*models.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Company, 0, len(m.companies))
	for _, c := range m.companies {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}

// IssueCapTable fixes the company's total shares and inserts the cap table
// rows in one step. Fails with sentinel.ErrInvalidState if the company has
// already issued.
func (m *Memory) IssueCapTable(_ context.Context, id domain.CompanyID, totalShares int64, holders []*models.Shareholder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.TotalShares > 0 {
		return sentinel.ErrInvalidState
	}
	c.TotalShares = totalShares
	m.companies[id] = c
	for _, h := range holders {
		m.shareholders[shareholderKey{companyID: id, email: h.Email}] = *h
	}
	return nil
}

// Shareholders returns the cap table ordered by email.
func (m *Memory) Shareholders(_ context.Context, id domain.CompanyID) ([]*models.Shareholder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Shareholder
	for key, h := range m.shareholders {
		if key.companyID == id {
			h := h
			out = append(out, &h)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Email < out[b].Email })
	return out, nil
}

func (m *Memory) FindShareholder(_ context.Context, id domain.CompanyID, email string) (*models.Shareholder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.shareholders[shareholderKey{companyID: id, email: email}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &h, nil
}

// MarkFunded flips a shareholder's funded flag. It is idempotent: the
// returned bool reports whether this call performed the flip.
func (m *Memory) MarkFunded(_ context.Context, id domain.CompanyID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := shareholderKey{companyID: id, email: email}
	h, ok := m.shareholders[key]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if h.Funded {
		return false, nil
	}
	h.Funded = true
	m.shareholders[key] = h
	return true, nil
}

// ListUnfunded returns every shareholder row across all companies that has
// not been marked funded. The reconciliation sweep walks this set.
func (m *Memory) ListUnfunded(_ context.Context) ([]*models.Shareholder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Shareholder
	for _, h := range m.shareholders {
		if !h.Funded {
			h := h
			out = append(out, &h)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].CompanyID != out[b].CompanyID {
			return out[a].CompanyID.String() < out[b].CompanyID.String()
		}
		return out[a].Email < out[b].Email
	})
	return out, nil
}
