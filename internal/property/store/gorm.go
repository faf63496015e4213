package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/property/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/tx"
)

// PropertyRecord is the properties row. Amounts are stored as int64; values
// above math.MaxInt64 are not representable in SQL backends.
type PropertyRecord struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement:false"`
	State        string `gorm:"not null"`
	District     string `gorm:"not null"`
	Village      string `gorm:"not null;index"`
	SurveyNumber string `gorm:"not null"`
	Identifier   string `gorm:"not null;uniqueIndex"`
	Owner        string `gorm:"size:42;not null;index"`
	MarketValue  int64  `gorm:"not null"`
	DocumentRef  string `gorm:"not null"`
	Status       string `gorm:"size:32;not null"`
	RegisteredAt time.Time
	LastUpdated  time.Time
	Active       bool `gorm:"not null"`
}

func (PropertyRecord) TableName() string { return "properties" }

// Gorm stores properties in SQL. The owner index is the indexed owner column.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) AutoMigrate() error {
	if err := s.db.AutoMigrate(&PropertyRecord{}); err != nil {
		return fmt.Errorf("auto-migrate properties: %w", err)
	}
	return nil
}

// NextID is the committed high-water mark plus one. Rejected properties keep
// their rows, so ids are never reused.
func (s *Gorm) NextID(ctx context.Context) (domain.PropertyID, error) {
	var maxID uint64
	if err := tx.Conn(ctx, s.db).Model(&PropertyRecord{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
		return 0, fmt.Errorf("allocate property id: %w", err)
	}
	return domain.PropertyID(maxID + 1), nil
}

func (s *Gorm) Create(ctx context.Context, p *models.Property) error {
	rec, err := toRecord(p)
	if err != nil {
		return err
	}
	if err := tx.Conn(ctx, s.db).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create property: %w", err)
	}
	return nil
}

func (s *Gorm) FindByID(ctx context.Context, id domain.PropertyID) (*models.Property, error) {
	return s.find(tx.Conn(ctx, s.db), id)
}

func (s *Gorm) find(conn *gorm.DB, id domain.PropertyID) (*models.Property, error) {
	var rec PropertyRecord
	err := conn.First(&rec, uint64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find property: %w", err)
	}
	return fromRecord(rec)
}

// Execute reads the row under a row lock (where the dialect supports it),
// validates, mutates and writes it back.
func (s *Gorm) Execute(ctx context.Context, id domain.PropertyID, validate func(*models.Property) error, mutate func(*models.Property)) (*models.Property, error) {
	conn := tx.Conn(ctx, s.db)
	if conn.Dialector.Name() == "postgres" {
		conn = conn.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	p, err := s.find(conn, id)
	if err != nil {
		return nil, err
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)
	rec, err := toRecord(p)
	if err != nil {
		return nil, err
	}
	if err := tx.Conn(ctx, s.db).Save(&rec).Error; err != nil {
		return nil, fmt.Errorf("save property: %w", err)
	}
	return p, nil
}

func (s *Gorm) ListByOwner(ctx context.Context, owner domain.Address) ([]*models.Property, error) {
	var recs []PropertyRecord
	if err := tx.Conn(ctx, s.db).Where("owner = ?", owner.String()).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list properties by owner: %w", err)
	}
	out := make([]*models.Property, 0, len(recs))
	for _, rec := range recs {
		p, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Gorm) Count(ctx context.Context) (uint64, error) {
	var maxID uint64
	if err := tx.Conn(ctx, s.db).Model(&PropertyRecord{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
		return 0, fmt.Errorf("count properties: %w", err)
	}
	return maxID, nil
}

func toRecord(p *models.Property) (PropertyRecord, error) {
	if p.MarketValue > math.MaxInt64 {
		return PropertyRecord{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("market value %d exceeds column range", p.MarketValue))
	}
	return PropertyRecord{
		ID:           uint64(p.ID),
		State:        p.State,
		District:     p.District,
		Village:      p.Village,
		SurveyNumber: p.SurveyNumber,
		Identifier:   p.Identifier,
		Owner:        p.Owner.String(),
		MarketValue:  int64(p.MarketValue),
		DocumentRef:  p.DocumentRef,
		Status:       string(p.Status),
		RegisteredAt: p.RegisteredAt,
		LastUpdated:  p.LastUpdated,
		Active:       p.Active,
	}, nil
}

func fromRecord(rec PropertyRecord) (*models.Property, error) {
	owner, err := domain.ParseAddress(rec.Owner)
	if err != nil {
		return nil, fmt.Errorf("decode owner %q: %w", rec.Owner, err)
	}
	return &models.Property{
		ID:           domain.PropertyID(rec.ID),
		State:        rec.State,
		District:     rec.District,
		Village:      rec.Village,
		SurveyNumber: rec.SurveyNumber,
		Identifier:   rec.Identifier,
		Owner:        owner,
		MarketValue:  uint64(rec.MarketValue),
		DocumentRef:  rec.DocumentRef,
		Status:       models.Status(rec.Status),
		RegisteredAt: rec.RegisteredAt,
		LastUpdated:  rec.LastUpdated,
		Active:       rec.Active,
	}, nil
}
