package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	accessmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	accessservice "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/service"
	accessstore "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/store"
	escrowmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/models"
	escrowservice "github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/service"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/service/mocks"
	escrowstore "github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/store"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/events"
	propertymodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/property/models"
	propertyservice "github.com/Elelei/Blockchain-Land-Registry-System/internal/property/service"
	propertystore "github.com/Elelei/Blockchain-Land-Registry-System/internal/property/store"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/transaction/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/transaction/store"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/tx"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/requestcontext"
)

var (
	official = domain.MustParseAddress("0x1c00000000000000000000000000000000000001")
	seller   = domain.MustParseAddress("0x1c00000000000000000000000000000000000002")
	buyer    = domain.MustParseAddress("0x1c00000000000000000000000000000000000003")
	rival    = domain.MustParseAddress("0x1c00000000000000000000000000000000000004")
)

type WorkflowSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	payments   *mocks.MockPayments
	access     *accessservice.Service
	properties *propertyservice.Service
	vault      *escrowservice.Vault
	workflow   *Workflow
	ctx        context.Context
	facts      *events.Buffer
	propertyID domain.PropertyID
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.payments = mocks.NewMockPayments(s.ctrl)

	accessStore := accessstore.NewInMemory()
	propertyStore := propertystore.NewInMemory()
	holdings := escrowstore.NewInMemory()
	transactions := store.NewInMemory()
	runner := tx.NewMemoryRunner(accessStore, propertyStore, holdings, transactions)

	s.access = accessservice.New(accessStore)
	s.properties = propertyservice.New(propertyStore, s.access)
	s.vault = escrowservice.New(holdings, s.payments)
	s.workflow = New(transactions, s.properties, s.access, s.vault, runner)

	s.ctx, s.facts = events.WithBuffer(requestcontext.WithTime(context.Background(), time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)))
	_, err := s.access.Bootstrap(s.ctx, official, accessmodels.RoleGovernment, nil)
	s.Require().NoError(err)

	p, err := s.properties.Register(s.ctx, seller, propertymodels.Registration{
		State: "Telangana", District: "Ranga Reddy", Village: "Kothur",
		SurveyNumber: "142/3", Owner: seller, MarketValue: 100, DocumentRef: "bafy-deed",
	})
	s.Require().NoError(err)
	_, err = s.properties.Review(s.ctx, official, p.ID, true)
	s.Require().NoError(err)
	_, err = s.properties.ListForSale(s.ctx, seller, p.ID, 150)
	s.Require().NoError(err)
	s.propertyID = p.ID
	s.facts.Reset()
}

func (s *WorkflowSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *WorkflowSuite) offer(price, escrow uint64) models.Offer {
	return models.Offer{PropertyID: s.propertyID, Price: price, Escrow: escrow, DocumentRef: "bafy-offer"}
}

func (s *WorkflowSuite) propertyStatus() propertymodels.Status {
	p, err := s.properties.Get(s.ctx, s.propertyID)
	s.Require().NoError(err)
	return p.Status
}

func (s *WorkflowSuite) totals() escrowmodels.Totals {
	t, err := s.vault.Totals(s.ctx)
	s.Require().NoError(err)
	return t
}

func (s *WorkflowSuite) TestRequestPurchaseChecks() {
	s.Run("unknown property", func() {
		_, err := s.workflow.RequestPurchase(s.ctx, buyer, models.Offer{PropertyID: 99, Price: 150, Escrow: 150})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("self trade is checked before price", func() {
		_, err := s.workflow.RequestPurchase(s.ctx, seller, s.offer(10, 0))
		s.True(dErrors.HasCode(err, dErrors.CodeSelfTrade))
	})

	s.Run("below market value is checked before funds", func() {
		_, err := s.workflow.RequestPurchase(s.ctx, buyer, s.offer(99, 0))
		s.True(dErrors.HasCode(err, dErrors.CodeBelowMarketValue))
		s.Equal(propertymodels.StatusListedForSale, s.propertyStatus())
	})

	s.Run("insufficient funds rolls back the sale start", func() {
		_, err := s.workflow.RequestPurchase(s.ctx, buyer, s.offer(150, 149))
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
		s.Equal(propertymodels.StatusListedForSale, s.propertyStatus())

		list, err := s.workflow.ListByProperty(s.ctx, s.propertyID)
		s.Require().NoError(err)
		s.Empty(list)
	})

	s.Run("one open sale at a time", func() {
		_, err := s.workflow.RequestPurchase(s.ctx, buyer, s.offer(150, 150))
		s.Require().NoError(err)
		s.Equal(propertymodels.StatusSaleInProgress, s.propertyStatus())

		_, err = s.workflow.RequestPurchase(s.ctx, rival, s.offer(200, 200))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *WorkflowSuite) TestApproveAndComplete() {
	t, err := s.workflow.RequestPurchase(s.ctx, buyer, s.offer(150, 150))
	s.Require().NoError(err)
	s.Equal(seller, t.Seller)

	_, err = s.workflow.ProcessRequest(s.ctx, buyer, t.ID, true)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.workflow.ProcessRequest(s.ctx, seller, t.ID, true)
	s.Require().NoError(err)

	_, err = s.workflow.CompletePurchase(s.ctx, seller, t.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.payments.EXPECT().Transfer(gomock.Any(), seller, uint64(150)).
		DoAndReturn(func(ctx context.Context, _ domain.Address, _ uint64) error {
			p, err := s.properties.Get(ctx, s.propertyID)
			s.Require().NoError(err)
			s.Equal(buyer, p.Owner, "ownership moved before payout")
			current, err := s.workflow.Get(ctx, t.ID)
			s.Require().NoError(err)
			s.Equal(models.StatusCompleted, current.Status)
			return nil
		})

	done, err := s.workflow.CompletePurchase(s.ctx, buyer, t.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, done.Status)
	s.False(done.CompletedAt.IsZero())

	p, err := s.properties.Get(s.ctx, s.propertyID)
	s.Require().NoError(err)
	s.Equal(buyer, p.Owner)
	s.Equal(uint64(150), p.MarketValue)
	s.Equal(propertymodels.StatusApproved, p.Status)

	ok, err := s.access.HasCapability(s.ctx, buyer, accessmodels.CapabilityOwner)
	s.Require().NoError(err)
	s.True(ok, "buyer auto-registered as owner")

	s.Equal(escrowmodels.Totals{Collected: 150, Released: 150}, s.totals())
}

func (s *WorkflowSuite) TestRejectRefundsBuyer() {
	t, err := s.workflow.RequestPurchase(s.ctx, buyer, s.offer(150, 180))
	s.Require().NoError(err)

	s.payments.EXPECT().Transfer(gomock.Any(), buyer, uint64(180)).Return(nil)
	rejected, err := s.workflow.ProcessRequest(s.ctx, seller, t.ID, false)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, rejected.Status)
	s.False(rejected.CompletedAt.IsZero())
	s.Equal(propertymodels.StatusListedForSale, s.propertyStatus())
	s.Equal(escrowmodels.Totals{Collected: 180, Refunded: 180}, s.totals())

	_, err = s.workflow.ProcessRequest(s.ctx, seller, t.ID, true)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *WorkflowSuite) TestPaymentFailureRollsBack() {
	t, err := s.workflow.RequestPurchase(s.ctx, buyer, s.offer(150, 150))
	s.Require().NoError(err)

	s.Run("refund failure keeps the request pending", func() {
		s.payments.EXPECT().Transfer(gomock.Any(), buyer, uint64(150)).Return(errors.New("recipient reverted"))
		_, err := s.workflow.ProcessRequest(s.ctx, seller, t.ID, false)
		s.True(dErrors.HasCode(err, dErrors.CodePaymentFailed))

		current, err := s.workflow.Get(s.ctx, t.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, current.Status)
		s.Equal(propertymodels.StatusSaleInProgress, s.propertyStatus())
		s.Equal(escrowmodels.Totals{Collected: 150, Held: 150}, s.totals())
	})

	s.Run("release failure keeps ownership with seller", func() {
		_, err := s.workflow.ProcessRequest(s.ctx, seller, t.ID, true)
		s.Require().NoError(err)

		s.payments.EXPECT().Transfer(gomock.Any(), seller, uint64(150)).Return(errors.New("recipient reverted"))
		_, err = s.workflow.CompletePurchase(s.ctx, buyer, t.ID)
		s.True(dErrors.HasCode(err, dErrors.CodePaymentFailed))

		p, err := s.properties.Get(s.ctx, s.propertyID)
		s.Require().NoError(err)
		s.Equal(seller, p.Owner)
		s.Equal(propertymodels.StatusSaleInProgress, p.Status)

		current, err := s.workflow.Get(s.ctx, t.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, current.Status)
		s.Equal(escrowmodels.Totals{Collected: 150, Held: 150}, s.totals())
	})
}

func (s *WorkflowSuite) TestOrphanedPendingTransaction() {
	t, err := s.workflow.RequestPurchase(s.ctx, buyer, s.offer(150, 150))
	s.Require().NoError(err)

	_, err = s.properties.RemoveFromSale(s.ctx, seller, s.propertyID)
	s.Require().NoError(err)
	s.Equal(propertymodels.StatusApproved, s.propertyStatus())

	pending, err := s.workflow.ListPendingByProperty(s.ctx, s.propertyID)
	s.Require().NoError(err)
	s.Require().Len(pending, 1, "delisting leaves the request open")
	s.Equal(t.ID, pending[0].ID)

	s.payments.EXPECT().Transfer(gomock.Any(), buyer, uint64(150)).Return(nil)
	_, err = s.workflow.ProcessRequest(s.ctx, seller, t.ID, false)
	s.Require().NoError(err)
	s.Equal(propertymodels.StatusApproved, s.propertyStatus(), "rejection does not relist a delisted property")
}

func (s *WorkflowSuite) TestQueries() {
	_, err := s.workflow.Get(s.ctx, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.workflow.ListByProperty(s.ctx, 77)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	first, err := s.workflow.RequestPurchase(s.ctx, buyer, s.offer(150, 150))
	s.Require().NoError(err)
	s.payments.EXPECT().Transfer(gomock.Any(), buyer, uint64(150)).Return(nil)
	_, err = s.workflow.ProcessRequest(s.ctx, seller, first.ID, false)
	s.Require().NoError(err)
	second, err := s.workflow.RequestPurchase(s.ctx, rival, s.offer(160, 160))
	s.Require().NoError(err)

	all, err := s.workflow.ListByProperty(s.ctx, s.propertyID)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(first.ID, all[0].ID)
	s.Equal(second.ID, all[1].ID)

	pending, err := s.workflow.ListPendingByProperty(s.ctx, s.propertyID)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(second.ID, pending[0].ID)
}
