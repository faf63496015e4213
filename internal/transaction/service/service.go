// Package service runs the purchase protocol: request, seller decision,
// buyer completion. Escrow payouts are always the final effect of a call.
package service

import (
	"context"
	"errors"
	"log/slog"

	accessmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	escrowmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/events"
	propertymodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/property/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/transaction/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/tx"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/requestcontext"
)

type Store interface {
	NextID(ctx context.Context) (domain.TransactionID, error)
	Create(ctx context.Context, t *models.Transaction) error
	FindByID(ctx context.Context, id domain.TransactionID) (*models.Transaction, error)
	Execute(ctx context.Context, id domain.TransactionID, validate func(*models.Transaction) error, mutate func(*models.Transaction)) (*models.Transaction, error)
	ListByProperty(ctx context.Context, propertyID domain.PropertyID) ([]*models.Transaction, error)
}

// Properties is the slice of the property service the workflow drives.
type Properties interface {
	Get(ctx context.Context, id domain.PropertyID) (*propertymodels.Property, error)
	StartSale(ctx context.Context, buyer domain.Address, id domain.PropertyID, offered uint64) (*propertymodels.Property, error)
	CancelSale(ctx context.Context, actor domain.Address, id domain.PropertyID) (*propertymodels.Property, error)
	Transfer(ctx context.Context, seller, buyer domain.Address, id domain.PropertyID, price uint64) (*propertymodels.Property, error)
}

type Identities interface {
	AutoRegister(ctx context.Context, identity domain.Address, role accessmodels.Role) (bool, error)
}

type Escrow interface {
	Deposit(ctx context.Context, txID domain.TransactionID, depositor domain.Address, amount uint64) (*escrowmodels.Holding, error)
	Release(ctx context.Context, txID domain.TransactionID, beneficiary domain.Address) (*escrowmodels.Holding, error)
	Refund(ctx context.Context, txID domain.TransactionID) (*escrowmodels.Holding, error)
}

// Workflow owns transaction records. Each mutating call is one unit of work
// and joins the caller's unit when there is one.
type Workflow struct {
	store      Store
	properties Properties
	identities Identities
	escrow     Escrow
	runner     tx.Runner
	logger     *slog.Logger
}

type Option func(*Workflow)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

func New(store Store, properties Properties, identities Identities, escrow Escrow, runner tx.Runner, opts ...Option) *Workflow {
	w := &Workflow{
		store:      store,
		properties: properties,
		identities: identities,
		escrow:     escrow,
		runner:     runner,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RequestPurchase opens a transaction for a listed property and takes the
// buyer's escrow into custody. Failures are reported in this order:
// NotFound, InvalidState, SelfTrade, BelowMarketValue, InsufficientFunds.
func (w *Workflow) RequestPurchase(ctx context.Context, caller domain.Address, offer models.Offer) (*models.Transaction, error) {
	var t *models.Transaction
	err := w.runner.RunInTx(ctx, func(ctx context.Context) error {
		p, err := w.properties.StartSale(ctx, caller, offer.PropertyID, offer.Price)
		if err != nil {
			return err
		}
		if err := offer.CheckFunds(); err != nil {
			return err
		}

		id, err := w.store.NextID(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate transaction id")
		}
		now := requestcontext.Now(ctx)
		t, err = models.NewTransaction(id, p.Owner, caller, offer, now)
		if err != nil {
			return err
		}
		if err := w.store.Create(ctx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save transaction")
		}
		if _, err := w.escrow.Deposit(ctx, t.ID, caller, offer.Escrow); err != nil {
			return err
		}
		w.record(ctx, events.KindPurchaseRequested, caller, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	w.logger.InfoContext(ctx, "purchase requested",
		"transaction_id", t.ID,
		"property_id", t.PropertyID,
		"price", t.Price,
		"request_id", requestcontext.RequestID(ctx),
	)
	return t, nil
}

// ProcessRequest records the seller's decision. A rejection puts the
// property back on the market and refunds the buyer in full, refund last.
func (w *Workflow) ProcessRequest(ctx context.Context, caller domain.Address, id domain.TransactionID, approve bool) (*models.Transaction, error) {
	var t *models.Transaction
	err := w.runner.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		var err error
		t, err = w.execute(ctx, id,
			func(t *models.Transaction) error { return t.CanProcess(caller) },
			func(t *models.Transaction) {
				if approve {
					t.ApplyApproval()
				} else {
					t.ApplyRejection(now)
				}
			})
		if err != nil {
			return err
		}
		if approve {
			w.record(ctx, events.KindPurchaseApproved, caller, t)
			return nil
		}

		if _, err := w.properties.CancelSale(ctx, caller, t.PropertyID); err != nil {
			return err
		}
		w.record(ctx, events.KindPurchaseRejected, caller, t)
		_, err = w.escrow.Refund(ctx, t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.logger.InfoContext(ctx, "purchase request processed",
		"transaction_id", t.ID,
		"status", t.Status,
		"request_id", requestcontext.RequestID(ctx),
	)
	return t, nil
}

// CompletePurchase transfers the property to the buyer, closes the
// transaction and pays the seller, payout last.
func (w *Workflow) CompletePurchase(ctx context.Context, caller domain.Address, id domain.TransactionID) (*models.Transaction, error) {
	var t *models.Transaction
	err := w.runner.RunInTx(ctx, func(ctx context.Context) error {
		current, err := w.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := current.CanComplete(caller); err != nil {
			return err
		}

		if _, err := w.properties.Transfer(ctx, current.Seller, current.Buyer, current.PropertyID, current.Price); err != nil {
			return err
		}
		if _, err := w.identities.AutoRegister(ctx, current.Buyer, accessmodels.RolePropertyOwner); err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		t, err = w.execute(ctx, id,
			func(t *models.Transaction) error { return t.CanComplete(caller) },
			func(t *models.Transaction) { t.ApplyCompletion(now) })
		if err != nil {
			return err
		}
		w.record(ctx, events.KindOwnershipTransferred, caller, t)
		_, err = w.escrow.Release(ctx, t.ID, t.Seller)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.logger.InfoContext(ctx, "ownership transferred",
		"transaction_id", t.ID,
		"property_id", t.PropertyID,
		"from", t.Seller,
		"to", t.Buyer,
		"request_id", requestcontext.RequestID(ctx),
	)
	return t, nil
}

func (w *Workflow) Get(ctx context.Context, id domain.TransactionID) (*models.Transaction, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeNotFound, "transaction not found")
	}
	t, err := w.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load transaction")
	}
	return t, nil
}

// ListByProperty returns every transaction for the property in creation order.
func (w *Workflow) ListByProperty(ctx context.Context, propertyID domain.PropertyID) ([]*models.Transaction, error) {
	if _, err := w.properties.Get(ctx, propertyID); err != nil {
		return nil, err
	}
	list, err := w.store.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transactions")
	}
	return list, nil
}

func (w *Workflow) ListPendingByProperty(ctx context.Context, propertyID domain.PropertyID) ([]*models.Transaction, error) {
	list, err := w.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	pending := make([]*models.Transaction, 0, len(list))
	for _, t := range list {
		if t.Status == models.StatusPending {
			pending = append(pending, t)
		}
	}
	return pending, nil
}

func (w *Workflow) execute(ctx context.Context, id domain.TransactionID, validate func(*models.Transaction) error, mutate func(*models.Transaction)) (*models.Transaction, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeNotFound, "transaction not found")
	}
	t, err := w.store.Execute(ctx, id, validate, mutate)
	if err != nil {
		return nil, translate(err, "failed to update transaction")
	}
	return t, nil
}

func (w *Workflow) record(ctx context.Context, kind events.Kind, actor domain.Address, t *models.Transaction) {
	at := t.CompletedAt
	if at.IsZero() {
		at = requestcontext.Now(ctx)
	}
	events.Record(ctx, events.Fact{
		Kind:          kind,
		At:            at,
		RequestID:     requestcontext.RequestID(ctx),
		Actor:         actor,
		Subject:       t.Buyer,
		Counterparty:  t.Seller,
		PropertyID:    t.PropertyID,
		TransactionID: t.ID,
		NewStatus:     string(t.Status),
		Amount:        t.Price,
		DocumentRef:   t.DocumentRef,
	})
}

func translate(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "transaction not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
