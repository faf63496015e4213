package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/transaction/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/tx"
)

type TransactionRecord struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement:false"`
	PropertyID  uint64 `gorm:"not null;index"`
	Seller      string `gorm:"size:42;not null"`
	Buyer       string `gorm:"size:42;not null;index"`
	Price       int64  `gorm:"not null"`
	Escrow      int64  `gorm:"not null"`
	Status      string `gorm:"size:16;not null"`
	RequestedAt time.Time
	CompletedAt *time.Time
	DocumentRef string
}

func (TransactionRecord) TableName() string { return "transactions" }

type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) AutoMigrate() error {
	if err := s.db.AutoMigrate(&TransactionRecord{}); err != nil {
		return fmt.Errorf("auto-migrate transactions: %w", err)
	}
	return nil
}

func (s *Gorm) NextID(ctx context.Context) (domain.TransactionID, error) {
	maxID, err := s.maxID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate transaction id: %w", err)
	}
	return domain.TransactionID(maxID + 1), nil
}

func (s *Gorm) Create(ctx context.Context, t *models.Transaction) error {
	rec, err := toRecord(t)
	if err != nil {
		return err
	}
	if err := tx.Conn(ctx, s.db).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (s *Gorm) FindByID(ctx context.Context, id domain.TransactionID) (*models.Transaction, error) {
	return s.find(tx.Conn(ctx, s.db), id)
}

func (s *Gorm) find(conn *gorm.DB, id domain.TransactionID) (*models.Transaction, error) {
	var rec TransactionRecord
	err := conn.First(&rec, uint64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return fromRecord(rec)
}

func (s *Gorm) Execute(ctx context.Context, id domain.TransactionID, validate func(*models.Transaction) error, mutate func(*models.Transaction)) (*models.Transaction, error) {
	conn := tx.Conn(ctx, s.db)
	if conn.Dialector.Name() == "postgres" {
		conn = conn.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	t, err := s.find(conn, id)
	if err != nil {
		return nil, err
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	mutate(t)
	rec, err := toRecord(t)
	if err != nil {
		return nil, err
	}
	if err := tx.Conn(ctx, s.db).Save(&rec).Error; err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}
	return t, nil
}

func (s *Gorm) ListByProperty(ctx context.Context, propertyID domain.PropertyID) ([]*models.Transaction, error) {
	var recs []TransactionRecord
	err := tx.Conn(ctx, s.db).Where("property_id = ?", uint64(propertyID)).Order("id").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]*models.Transaction, 0, len(recs))
	for _, rec := range recs {
		t, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Gorm) Count(ctx context.Context) (uint64, error) {
	maxID, err := s.maxID(ctx)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return maxID, nil
}

func (s *Gorm) maxID(ctx context.Context) (uint64, error) {
	var maxID uint64
	err := tx.Conn(ctx, s.db).Model(&TransactionRecord{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error
	return maxID, err
}

func toRecord(t *models.Transaction) (TransactionRecord, error) {
	if t.Price > math.MaxInt64 || t.Escrow > math.MaxInt64 {
		return TransactionRecord{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("transaction %d amount exceeds column range", t.ID))
	}
	rec := TransactionRecord{
		ID:          uint64(t.ID),
		PropertyID:  uint64(t.PropertyID),
		Seller:      t.Seller.String(),
		Buyer:       t.Buyer.String(),
		Price:       int64(t.Price),
		Escrow:      int64(t.Escrow),
		Status:      string(t.Status),
		RequestedAt: t.RequestedAt,
		DocumentRef: t.DocumentRef,
	}
	if !t.CompletedAt.IsZero() {
		completed := t.CompletedAt
		rec.CompletedAt = &completed
	}
	return rec, nil
}

func fromRecord(rec TransactionRecord) (*models.Transaction, error) {
	seller, err := domain.ParseAddress(rec.Seller)
	if err != nil {
		return nil, fmt.Errorf("decode seller %q: %w", rec.Seller, err)
	}
	buyer, err := domain.ParseAddress(rec.Buyer)
	if err != nil {
		return nil, fmt.Errorf("decode buyer %q: %w", rec.Buyer, err)
	}
	t := &models.Transaction{
		ID:          domain.TransactionID(rec.ID),
		PropertyID:  domain.PropertyID(rec.PropertyID),
		Seller:      seller,
		Buyer:       buyer,
		Price:       uint64(rec.Price),
		Escrow:      uint64(rec.Escrow),
		Status:      models.Status(rec.Status),
		RequestedAt: rec.RequestedAt,
		DocumentRef: rec.DocumentRef,
	}
	if rec.CompletedAt != nil {
		t.CompletedAt = *rec.CompletedAt
	}
	return t, nil
}
