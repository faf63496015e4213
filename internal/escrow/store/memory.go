// Package store persists escrow holdings and payout balances.
package store

import (
	"context"
	"maps"
	"math"
	"sync"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
)

// InMemory keeps one holding per transaction.
type InMemory struct {
	mu       sync.RWMutex
	holdings map[domain.TransactionID]models.Holding
}

func NewInMemory() *InMemory {
	return &InMemory{holdings: make(map[domain.TransactionID]models.Holding)}
}

func (s *InMemory) Create(_ context.Context, h *models.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holdings[h.TransactionID]; ok {
		return sentinel.ErrConflict
	}
	s.holdings[h.TransactionID] = *h
	return nil
}

func (s *InMemory) Find(_ context.Context, txID domain.TransactionID) (*models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holdings[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &h, nil
}

func (s *InMemory) Execute(_ context.Context, txID domain.TransactionID, validate func(*models.Holding) error, mutate func(*models.Holding)) (*models.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holdings[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&h); err != nil {
		return nil, err
	}
	mutate(&h)
	s.holdings[txID] = h
	return &h, nil
}

func (s *InMemory) Totals(_ context.Context) (models.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var t models.Totals
	for _, h := range s.holdings {
		t.Add(&h)
	}
	return t, nil
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := maps.Clone(s.holdings)
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.holdings = saved
		s.mu.Unlock()
	}
}

// InMemoryBalances tracks what the ledger has paid out to each identity.
type InMemoryBalances struct {
	mu       sync.RWMutex
	balances map[domain.Address]uint64
}

func NewInMemoryBalances() *InMemoryBalances {
	return &InMemoryBalances{balances: make(map[domain.Address]uint64)}
}

func (s *InMemoryBalances) Credit(_ context.Context, to domain.Address, amount uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.balances[to]
	if amount > math.MaxUint64-current {
		return 0, sentinel.ErrInvalidState
	}
	s.balances[to] = current + amount
	return current + amount, nil
}

func (s *InMemoryBalances) Balance(_ context.Context, of domain.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[of], nil
}

func (s *InMemoryBalances) Snapshot() func() {
	s.mu.RLock()
	saved := maps.Clone(s.balances)
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.balances = saved
		s.mu.Unlock()
	}
}
