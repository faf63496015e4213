package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/tx"
)

// EntryRecord is the access_entries row.
type EntryRecord struct {
	Identity     string   `gorm:"primaryKey;size:42"`
	Role         string   `gorm:"size:32;not null"`
	Villages     []string `gorm:"serializer:json"`
	RegisteredAt time.Time
}

func (EntryRecord) TableName() string { return "access_entries" }

// Gorm stores registration entries in SQL.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) AutoMigrate() error {
	if err := s.db.AutoMigrate(&EntryRecord{}); err != nil {
		return fmt.Errorf("auto-migrate access_entries: %w", err)
	}
	return nil
}

func (s *Gorm) Find(ctx context.Context, identity domain.Address) (*models.Entry, error) {
	var rec EntryRecord
	err := tx.Conn(ctx, s.db).Where("identity = ?", identity.String()).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find access entry: %w", err)
	}
	return toEntry(rec)
}

func (s *Gorm) Create(ctx context.Context, entry *models.Entry) error {
	conn := tx.Conn(ctx, s.db)
	var n int64
	if err := conn.Model(&EntryRecord{}).Where("identity = ?", entry.Identity.String()).Count(&n).Error; err != nil {
		return fmt.Errorf("check access entry: %w", err)
	}
	if n > 0 {
		return sentinel.ErrConflict
	}
	rec := EntryRecord{
		Identity:     entry.Identity.String(),
		Role:         string(entry.Role),
		Villages:     entry.Villages,
		RegisteredAt: entry.RegisteredAt,
	}
	if err := conn.Create(&rec).Error; err != nil {
		return fmt.Errorf("create access entry: %w", err)
	}
	return nil
}

func (s *Gorm) Count(ctx context.Context) (int, error) {
	var n int64
	if err := tx.Conn(ctx, s.db).Model(&EntryRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count access entries: %w", err)
	}
	return int(n), nil
}

func toEntry(rec EntryRecord) (*models.Entry, error) {
	identity, err := domain.ParseAddress(rec.Identity)
	if err != nil {
		return nil, fmt.Errorf("decode identity %q: %w", rec.Identity, err)
	}
	return &models.Entry{
		Identity:     identity,
		Role:         models.Role(rec.Role),
		Villages:     rec.Villages,
		RegisteredAt: rec.RegisteredAt,
	}, nil
}
