package models

import (
	"time"

	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

// State of an escrow holding. A holding is settled exactly once.
type State string

const (
	StateHeld     State = "held"
	StateReleased State = "released"
	StateRefunded State = "refunded"
)

// Holding is the escrow attached to one transaction.
type Holding struct {
	TransactionID domain.TransactionID `json:"transaction_id"`
	Depositor     domain.Address       `json:"depositor"`
	Beneficiary   domain.Address       `json:"beneficiary,omitempty"`
	Amount        uint64               `json:"amount"`
	State         State                `json:"state"`
	DepositedAt   time.Time            `json:"deposited_at"`
	SettledAt     time.Time            `json:"settled_at,omitzero"`
}

func NewHolding(txID domain.TransactionID, depositor domain.Address, amount uint64, now time.Time) (*Holding, error) {
	if txID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInternal, "transaction id must be allocated")
	}
	if depositor.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "depositor is required")
	}
	if amount == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "escrow must be greater than zero")
	}
	return &Holding{
		TransactionID: txID,
		Depositor:     depositor,
		Amount:        amount,
		State:         StateHeld,
		DepositedAt:   now,
	}, nil
}

func (h *Holding) CanSettle() error {
	if h.State != StateHeld {
		return dErrors.New(dErrors.CodeInvalidState, "escrow already "+string(h.State))
	}
	return nil
}

func (h *Holding) ApplyRelease(beneficiary domain.Address, now time.Time) {
	h.State = StateReleased
	h.Beneficiary = beneficiary
	h.SettledAt = now
}

func (h *Holding) ApplyRefund(now time.Time) {
	h.State = StateRefunded
	h.Beneficiary = h.Depositor
	h.SettledAt = now
}

// Totals summarises the vault. Collected always equals
// Released + Refunded + Held.
type Totals struct {
	Collected uint64 `json:"collected"`
	Released  uint64 `json:"released"`
	Refunded  uint64 `json:"refunded"`
	Held      uint64 `json:"held"`
}

func (t *Totals) Add(h *Holding) {
	t.Collected += h.Amount
	switch h.State {
	case StateHeld:
		t.Held += h.Amount
	case StateReleased:
		t.Released += h.Amount
	case StateRefunded:
		t.Refunded += h.Amount
	}
}

// Balanced reports whether no value was created or destroyed.
func (t Totals) Balanced() bool {
	return t.Collected == t.Released+t.Refunded+t.Held
}
