package store

import (
	"context"
	"maps"
	"sync"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
)

// InMemory stores registration entries keyed by identity.
type InMemory struct {
	mu      sync.RWMutex
	entries map[domain.Address]models.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[domain.Address]models.Entry)}
}

func (s *InMemory) Find(_ context.Context, identity domain.Address) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[identity]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &e, nil
}

// Create adds entry; an existing identity yields sentinel.ErrConflict.
func (s *InMemory) Create(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.Identity]; ok {
		return sentinel.ErrConflict
	}
	e := *entry
	e.Villages = append([]string(nil), entry.Villages...)
	s.entries[entry.Identity] = e
	return nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := maps.Clone(s.entries)
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.entries = saved
		s.mu.Unlock()
	}
}
