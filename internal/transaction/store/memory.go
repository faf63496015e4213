// Package store persists purchase transactions.
package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/transaction/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
)

type InMemory struct {
	mu           sync.RWMutex
	transactions map[domain.TransactionID]models.Transaction
	byProperty   map[domain.PropertyID][]domain.TransactionID
	lastID       domain.TransactionID
}

func NewInMemory() *InMemory {
	return &InMemory{
		transactions: make(map[domain.TransactionID]models.Transaction),
		byProperty:   make(map[domain.PropertyID][]domain.TransactionID),
	}
}

func (s *InMemory) NextID(_ context.Context) (domain.TransactionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID, nil
}

func (s *InMemory) Create(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[t.ID]; ok {
		return sentinel.ErrConflict
	}
	s.transactions[t.ID] = *t
	s.byProperty[t.PropertyID] = append(s.byProperty[t.PropertyID], t.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.TransactionID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &t, nil
}

func (s *InMemory) Execute(_ context.Context, id domain.TransactionID, validate func(*models.Transaction) error, mutate func(*models.Transaction)) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&t); err != nil {
		return nil, err
	}
	mutate(&t)
	s.transactions[id] = t
	return &t, nil
}

// ListByProperty returns the property's transactions in creation order.
func (s *InMemory) ListByProperty(_ context.Context, propertyID domain.PropertyID) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byProperty[propertyID]
	out := make([]*models.Transaction, 0, len(ids))
	for _, id := range ids {
		t := s.transactions[id]
		out = append(out, &t)
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(s.lastID), nil
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	transactions := maps.Clone(s.transactions)
	byProperty := make(map[domain.PropertyID][]domain.TransactionID, len(s.byProperty))
	for id, txIDs := range s.byProperty {
		byProperty[id] = slices.Clone(txIDs)
	}
	lastID := s.lastID
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		s.transactions = transactions
		s.byProperty = byProperty
		s.lastID = lastID
		s.mu.Unlock()
	}
}
