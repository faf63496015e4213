package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/property/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
)

// InMemory owns property records and the per-owner index.
type InMemory struct {
	mu         sync.RWMutex
	properties map[domain.PropertyID]models.Property
	byOwner    map[domain.Address]mapset.Set[domain.PropertyID]
	lastID     domain.PropertyID
}

func NewInMemory() *InMemory {
	return &InMemory{
		properties: make(map[domain.PropertyID]models.Property),
		byOwner:    make(map[domain.Address]mapset.Set[domain.PropertyID]),
	}
}

// NextID allocates the next id. Ids are never handed out twice.
func (s *InMemory) NextID(_ context.Context) (domain.PropertyID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID, nil
}

func (s *InMemory) Create(_ context.Context, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[p.ID]; ok {
		return sentinel.ErrConflict
	}
	s.properties[p.ID] = *p
	s.index(p.Owner).Add(p.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.PropertyID) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

// Execute loads a property, runs validate, then mutate, and stores the result
// atomically. An owner change moves the id between owner sets.
func (s *InMemory) Execute(_ context.Context, id domain.PropertyID, validate func(*models.Property) error, mutate func(*models.Property)) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&p); err != nil {
		return nil, err
	}
	previousOwner := p.Owner
	mutate(&p)
	s.properties[id] = p
	if p.Owner != previousOwner {
		s.index(previousOwner).Remove(id)
		s.index(p.Owner).Add(id)
	}
	return &p, nil
}

// ListByOwner returns the owner's properties in ascending id order.
func (s *InMemory) ListByOwner(_ context.Context, owner domain.Address) ([]*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.byOwner[owner]
	if !ok {
		return []*models.Property{}, nil
	}
	ids := set.ToSlice()
	slices.Sort(ids)
	out := make([]*models.Property, 0, len(ids))
	for _, id := range ids {
		p := s.properties[id]
		out = append(out, &p)
	}
	return out, nil
}

// Count returns the id high-water mark.
func (s *InMemory) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(s.lastID), nil
}

func (s *InMemory) index(owner domain.Address) mapset.Set[domain.PropertyID] {
	set, ok := s.byOwner[owner]
	if !ok {
		set = mapset.NewThreadUnsafeSet[domain.PropertyID]()
		s.byOwner[owner] = set
	}
	return set
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	properties := maps.Clone(s.properties)
	byOwner := make(map[domain.Address]mapset.Set[domain.PropertyID], len(s.byOwner))
	for owner, set := range s.byOwner {
		byOwner[owner] = set.Clone()
	}
	lastID := s.lastID
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		s.properties = properties
		s.byOwner = byOwner
		s.lastID = lastID
		s.mu.Unlock()
	}
}
