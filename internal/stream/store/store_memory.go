package store

import (
	"context"
	"sort"
	"sync"

	"incorp/internal/stream/models"
	"incorp/pkg/domain"
	"incorp/pkg/platform/sentinel"
)

// Memory is an in-memory stream store for tests and single-process runs.
type Memory struct {
	mu      sync.RWMutex
	streams map[domain.StreamID]models.Stream
}

// NewMemory constructs an empty in-memory stream store.
func NewMemory() *Memory {
	return &Memory{streams: make(map[domain.StreamID]models.Stream)}
}

func (m *Memory) Create(_ context.Context, stream *models.Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.streams[stream.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	m.streams[stream.ID] = *stream
	return nil
}

func (m *Memory) FindByID(_ context.Context, id domain.StreamID) (*models.Stream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.streams[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &s, nil
}

// ListByPayee returns the user's streams ordered by start date, oldest first.
func (m *Memory) ListByPayee(_ context.Context, userID domain.UserID) ([]*models.Stream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Stream
	for _, s := range m.streams {
		if s.UserID == userID {
			s := s
			out = append(out, &s)
		}
	}
	sortStreams(out)
	return out, nil
}

// ListByCompany returns the company's streams ordered by start date.
func (m *Memory) ListByCompany(_ context.Context, companyID domain.CompanyID) ([]*models.Stream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Stream
	for _, s := range m.streams {
		if s.CompanyID == companyID {
			s := s
			out = append(out, &s)
		}
	}
	sortStreams(out)
	return out, nil
}

// AddClaimed advances the claimed counter by delta if and only if it still
// equals expected. sentinel.ErrConflict reports a lost race.
func (m *Memory) AddClaimed(_ context.Context, id domain.StreamID, expected, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if s.TotalClaimed != expected {
		return sentinel.ErrConflict
	}
	s.TotalClaimed += delta
	m.streams[id] = s
	return nil
}

func sortStreams(streams []*models.Stream) {
	sort.SliceStable(streams, func(a, b int) bool {
		if streams[a].StartDate.Equal(streams[b].StartDate) {
			return streams[a].ID.String() < streams[b].ID.String()
		}
		return streams[a].StartDate.Before(streams[b].StartDate)
	})
}
