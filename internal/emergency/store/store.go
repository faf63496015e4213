// Package store persists the global pause flag.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/tx"
)

// InMemory holds the pause flag for a single process.
type InMemory struct {
	mu     sync.RWMutex
	paused bool
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Paused(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused, nil
}

func (s *InMemory) SetPaused(_ context.Context, paused bool, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
	return nil
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := s.paused
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.paused = saved
		s.mu.Unlock()
	}
}

// StateRecord is the single emergency_state row.
type StateRecord struct {
	ID        uint `gorm:"primaryKey"`
	Paused    bool `gorm:"not null"`
	UpdatedAt time.Time
}

func (StateRecord) TableName() string { return "emergency_state" }

const stateRowID = 1

// Gorm persists the pause flag so it survives restarts.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) AutoMigrate() error {
	if err := s.db.AutoMigrate(&StateRecord{}); err != nil {
		return fmt.Errorf("auto-migrate emergency_state: %w", err)
	}
	return nil
}

func (s *Gorm) Paused(ctx context.Context) (bool, error) {
	var rec StateRecord
	err := tx.Conn(ctx, s.db).First(&rec, stateRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load emergency state: %w", err)
	}
	return rec.Paused, nil
}

func (s *Gorm) SetPaused(ctx context.Context, paused bool, now time.Time) error {
	rec := StateRecord{ID: stateRowID, Paused: paused, UpdatedAt: now}
	err := tx.Conn(ctx, s.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"paused", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save emergency state: %w", err)
	}
	return nil
}
