package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/tx"
)

type HoldingRecord struct {
	TransactionID uint64 `gorm:"primaryKey;autoIncrement:false"`
	Depositor     string `gorm:"size:42;not null"`
	Beneficiary   string `gorm:"size:42"`
	Amount        int64  `gorm:"not null"`
	State         string `gorm:"size:16;not null;index"`
	DepositedAt   time.Time
	SettledAt     *time.Time
}

func (HoldingRecord) TableName() string { return "escrow_holdings" }

type BalanceRecord struct {
	Identity  string `gorm:"primaryKey;size:42"`
	Amount    int64  `gorm:"not null"`
	UpdatedAt time.Time
}

func (BalanceRecord) TableName() string { return "ledger_balances" }

// Gorm stores escrow holdings.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) AutoMigrate() error {
	if err := s.db.AutoMigrate(&HoldingRecord{}); err != nil {
		return fmt.Errorf("auto-migrate escrow_holdings: %w", err)
	}
	return nil
}

func (s *Gorm) Create(ctx context.Context, h *models.Holding) error {
	rec, err := toHoldingRecord(h)
	if err != nil {
		return err
	}
	if err := tx.Conn(ctx, s.db).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create holding: %w", err)
	}
	return nil
}

func (s *Gorm) Find(ctx context.Context, txID domain.TransactionID) (*models.Holding, error) {
	return s.find(tx.Conn(ctx, s.db), txID)
}

func (s *Gorm) find(conn *gorm.DB, txID domain.TransactionID) (*models.Holding, error) {
	var rec HoldingRecord
	err := conn.First(&rec, "transaction_id = ?", uint64(txID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find holding: %w", err)
	}
	return fromHoldingRecord(rec)
}

func (s *Gorm) Execute(ctx context.Context, txID domain.TransactionID, validate func(*models.Holding) error, mutate func(*models.Holding)) (*models.Holding, error) {
	conn := tx.Conn(ctx, s.db)
	if conn.Dialector.Name() == "postgres" {
		conn = conn.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	h, err := s.find(conn, txID)
	if err != nil {
		return nil, err
	}
	if err := validate(h); err != nil {
		return nil, err
	}
	mutate(h)
	rec, err := toHoldingRecord(h)
	if err != nil {
		return nil, err
	}
	if err := tx.Conn(ctx, s.db).Save(&rec).Error; err != nil {
		return nil, fmt.Errorf("save holding: %w", err)
	}
	return h, nil
}

func (s *Gorm) Totals(ctx context.Context) (models.Totals, error) {
	var rows []struct {
		State string
		Total int64
	}
	err := tx.Conn(ctx, s.db).Model(&HoldingRecord{}).
		Select("state, COALESCE(SUM(amount), 0) AS total").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return models.Totals{}, fmt.Errorf("sum holdings: %w", err)
	}
	var t models.Totals
	for _, row := range rows {
		amount := uint64(row.Total)
		t.Collected += amount
		switch models.State(row.State) {
		case models.StateHeld:
			t.Held += amount
		case models.StateReleased:
			t.Released += amount
		case models.StateRefunded:
			t.Refunded += amount
		}
	}
	return t, nil
}

func toHoldingRecord(h *models.Holding) (HoldingRecord, error) {
	if h.Amount > math.MaxInt64 {
		return HoldingRecord{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("holding amount %d exceeds column range", h.Amount))
	}
	rec := HoldingRecord{
		TransactionID: uint64(h.TransactionID),
		Depositor:     h.Depositor.String(),
		Amount:        int64(h.Amount),
		State:         string(h.State),
		DepositedAt:   h.DepositedAt,
	}
	if !h.Beneficiary.IsZero() {
		rec.Beneficiary = h.Beneficiary.String()
	}
	if !h.SettledAt.IsZero() {
		settled := h.SettledAt
		rec.SettledAt = &settled
	}
	return rec, nil
}

func fromHoldingRecord(rec HoldingRecord) (*models.Holding, error) {
	depositor, err := domain.ParseAddress(rec.Depositor)
	if err != nil {
		return nil, fmt.Errorf("decode depositor %q: %w", rec.Depositor, err)
	}
	h := &models.Holding{
		TransactionID: domain.TransactionID(rec.TransactionID),
		Depositor:     depositor,
		Amount:        uint64(rec.Amount),
		State:         models.State(rec.State),
		DepositedAt:   rec.DepositedAt,
	}
	if rec.Beneficiary != "" {
		if h.Beneficiary, err = domain.ParseAddress(rec.Beneficiary); err != nil {
			return nil, fmt.Errorf("decode beneficiary %q: %w", rec.Beneficiary, err)
		}
	}
	if rec.SettledAt != nil {
		h.SettledAt = *rec.SettledAt
	}
	return h, nil
}

// GormBalances stores ledger balances.
type GormBalances struct {
	db *gorm.DB
}

func NewGormBalances(db *gorm.DB) *GormBalances {
	return &GormBalances{db: db}
}

func (s *GormBalances) AutoMigrate() error {
	if err := s.db.AutoMigrate(&BalanceRecord{}); err != nil {
		return fmt.Errorf("auto-migrate ledger_balances: %w", err)
	}
	return nil
}

func (s *GormBalances) Credit(ctx context.Context, to domain.Address, amount uint64) (uint64, error) {
	current, err := s.Balance(ctx, to)
	if err != nil {
		return 0, err
	}
	if amount > math.MaxInt64-current {
		return 0, sentinel.ErrInvalidState
	}
	rec := BalanceRecord{Identity: to.String(), Amount: int64(current + amount), UpdatedAt: time.Now()}
	err = tx.Conn(ctx, s.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return current + amount, nil
}

func (s *GormBalances) Balance(ctx context.Context, of domain.Address) (uint64, error) {
	var rec BalanceRecord
	err := tx.Conn(ctx, s.db).First(&rec, "identity = ?", of.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load balance: %w", err)
	}
	return uint64(rec.Amount), nil
}
