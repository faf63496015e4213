package models

import (
	"fmt"
	"time"

	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Transaction is one purchase negotiation for a property. Seller is the
// owner at request time and does not follow later ownership changes.
type Transaction struct {
	ID          domain.TransactionID `json:"id"`
	PropertyID  domain.PropertyID    `json:"property_id"`
	Seller      domain.Address       `json:"seller"`
	Buyer       domain.Address       `json:"buyer"`
	Price       uint64               `json:"price"`
	Escrow      uint64               `json:"escrow"`
	Status      Status               `json:"status"`
	RequestedAt time.Time            `json:"requested_at"`
	CompletedAt time.Time            `json:"completed_at,omitzero"`
	DocumentRef string               `json:"document_ref"`
}

// Offer is a buyer's purchase request.
type Offer struct {
	PropertyID  domain.PropertyID
	Price       uint64
	Escrow      uint64
	DocumentRef string
}

// CheckFunds fails with CodeInsufficientFunds when the escrow does not cover
// the offered price.
func (o Offer) CheckFunds() error {
	if o.Escrow < o.Price {
		return dErrors.New(dErrors.CodeInsufficientFunds,
			fmt.Sprintf("escrow %d does not cover offer %d", o.Escrow, o.Price))
	}
	return nil
}

func NewTransaction(id domain.TransactionID, seller, buyer domain.Address, offer Offer, now time.Time) (*Transaction, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeInternal, "transaction id must be allocated")
	}
	if buyer.IsZero() || seller.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "buyer and seller are required")
	}
	if err := offer.CheckFunds(); err != nil {
		return nil, err
	}
	return &Transaction{
		ID:          id,
		PropertyID:  offer.PropertyID,
		Seller:      seller,
		Buyer:       buyer,
		Price:       offer.Price,
		Escrow:      offer.Escrow,
		Status:      StatusPending,
		RequestedAt: now,
		DocumentRef: offer.DocumentRef,
	}, nil
}

// IsOpen reports whether the transaction still holds a sale slot.
func (t *Transaction) IsOpen() bool {
	return t.Status == StatusPending || t.Status == StatusApproved
}

func (t *Transaction) CanProcess(caller domain.Address) error {
	if t.Seller != caller {
		return dErrors.New(dErrors.CodeUnauthorized, "only the seller can process the request")
	}
	if t.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("transaction is %s, expected %s", t.Status, StatusPending))
	}
	return nil
}

func (t *Transaction) ApplyApproval() {
	t.Status = StatusApproved
}

func (t *Transaction) ApplyRejection(now time.Time) {
	t.Status = StatusRejected
	t.CompletedAt = now
}

func (t *Transaction) CanComplete(caller domain.Address) error {
	if t.Buyer != caller {
		return dErrors.New(dErrors.CodeUnauthorized, "only the buyer can complete the purchase")
	}
	if t.Status != StatusApproved {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("transaction is %s, expected %s", t.Status, StatusApproved))
	}
	return nil
}

func (t *Transaction) ApplyCompletion(now time.Time) {
	t.Status = StatusCompleted
	t.CompletedAt = now
}
