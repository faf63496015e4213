package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/testutil"
)

type holdingStore interface {
	Create(ctx context.Context, h *models.Holding) error
	Find(ctx context.Context, txID domain.TransactionID) (*models.Holding, error)
	Execute(ctx context.Context, txID domain.TransactionID, validate func(*models.Holding) error, mutate func(*models.Holding)) (*models.Holding, error)
	Totals(ctx context.Context) (models.Totals, error)
}

var (
	depositor = domain.MustParseAddress("0xe200000000000000000000000000000000000001")
	payee     = domain.MustParseAddress("0xe200000000000000000000000000000000000002")
)

type HoldingStoreSuite struct {
	suite.Suite
	newStore func() holdingStore
	store    holdingStore
	ctx      context.Context
}

func TestInMemoryHoldingStore(t *testing.T) {
	suite.Run(t, &HoldingStoreSuite{newStore: func() holdingStore { return NewInMemory() }})
}

func TestGormHoldingStore(t *testing.T) {
	suite.Run(t, &HoldingStoreSuite{newStore: func() holdingStore {
		s := NewGorm(testutil.NewSQLiteDB(t))
		if err := s.AutoMigrate(); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return s
	}})
}

func (s *HoldingStoreSuite) SetupTest() {
	s.store = s.newStore()
	s.ctx = context.Background()
}

func (s *HoldingStoreSuite) hold(txID domain.TransactionID, amount uint64) {
	h, err := models.NewHolding(txID, depositor, amount, time.Now().UTC().Truncate(time.Second))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, h))
}

func (s *HoldingStoreSuite) TestSettleAndTotal() {
	s.hold(1, 150)
	s.hold(2, 200)
	s.hold(3, 75)

	_, err := s.store.Execute(s.ctx, 2, (*models.Holding).CanSettle,
		func(h *models.Holding) { h.ApplyRelease(payee, time.Now()) })
	s.Require().NoError(err)
	_, err = s.store.Execute(s.ctx, 3, (*models.Holding).CanSettle,
		func(h *models.Holding) { h.ApplyRefund(time.Now()) })
	s.Require().NoError(err)

	released, err := s.store.Find(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal(models.StateReleased, released.State)
	s.Equal(payee, released.Beneficiary)
	s.False(released.SettledAt.IsZero())

	totals, err := s.store.Totals(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Totals{Collected: 425, Released: 200, Refunded: 75, Held: 150}, totals)
	s.True(totals.Balanced())
}

func (s *HoldingStoreSuite) TestMissing() {
	_, err := s.store.Find(s.ctx, 5)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Execute(s.ctx, 5, (*models.Holding).CanSettle, func(*models.Holding) {})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *HoldingStoreSuite) TestDuplicateHoldingConflicts() {
	s.hold(4, 90)
	h, err := models.NewHolding(4, depositor, 90, time.Now().UTC())
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(s.ctx, h), sentinel.ErrConflict)
}
