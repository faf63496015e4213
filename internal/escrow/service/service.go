package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Payments

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, h *models.Holding) error
	Find(ctx context.Context, txID domain.TransactionID) (*models.Holding, error)
	Execute(ctx context.Context, txID domain.TransactionID, validate func(*models.Holding) error, mutate func(*models.Holding)) (*models.Holding, error)
	Totals(ctx context.Context) (models.Totals, error)
}

// Payments moves value out of the vault. The recipient may run arbitrary
// code on receipt, so Transfer must be the last call of any unit.
type Payments interface {
	Transfer(ctx context.Context, to domain.Address, amount uint64) error
}

// Vault holds buyer funds between a purchase request and its resolution.
type Vault struct {
	store    Store
	payments Payments
	logger   *slog.Logger
}

type Option func(*Vault)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) {
		v.logger = logger
	}
}

func New(store Store, payments Payments, opts ...Option) *Vault {
	v := &Vault{store: store, payments: payments, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Deposit takes custody of amount for the transaction.
func (v *Vault) Deposit(ctx context.Context, txID domain.TransactionID, depositor domain.Address, amount uint64) (*models.Holding, error) {
	h, err := models.NewHolding(txID, depositor, amount, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := v.store.Create(ctx, h); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeInvalidState, "escrow already held for transaction")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record escrow")
	}
	return h, nil
}

// Release pays the full holding to beneficiary.
func (v *Vault) Release(ctx context.Context, txID domain.TransactionID, beneficiary domain.Address) (*models.Holding, error) {
	now := requestcontext.Now(ctx)
	return v.settle(ctx, txID, func(h *models.Holding) { h.ApplyRelease(beneficiary, now) })
}

// Refund returns the full holding to its depositor.
func (v *Vault) Refund(ctx context.Context, txID domain.TransactionID) (*models.Holding, error) {
	now := requestcontext.Now(ctx)
	return v.settle(ctx, txID, func(h *models.Holding) { h.ApplyRefund(now) })
}

// settle marks the holding settled and only then pays out.
func (v *Vault) settle(ctx context.Context, txID domain.TransactionID, mutate func(*models.Holding)) (*models.Holding, error) {
	h, err := v.store.Execute(ctx, txID, (*models.Holding).CanSettle, mutate)
	if err != nil {
		var de *dErrors.Error
		switch {
		case errors.As(err, &de):
			return nil, err
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "no escrow for transaction")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to settle escrow")
		}
	}

	if err := v.payments.Transfer(ctx, h.Beneficiary, h.Amount); err != nil {
		if dErrors.HasCode(err, dErrors.CodeReentrantCall) {
			return nil, err
		}
		v.logger.WarnContext(ctx, "escrow payout failed",
			"transaction_id", txID,
			"recipient", h.Beneficiary,
			"amount", h.Amount,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodePaymentFailed, "payout failed")
	}
	return h, nil
}

func (v *Vault) Holding(ctx context.Context, txID domain.TransactionID) (*models.Holding, error) {
	h, err := v.store.Find(ctx, txID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no escrow for transaction")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load escrow")
	}
	return h, nil
}

func (v *Vault) Totals(ctx context.Context) (models.Totals, error) {
	t, err := v.store.Totals(ctx)
	if err != nil {
		return models.Totals{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to total escrow")
	}
	return t, nil
}
