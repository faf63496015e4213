// Package ledger is the in-process payment rail: a payout credits the
// recipient's balance. It stands in for an external settlement network and
// implements the vault's Payments port.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
)

type Store interface {
	Credit(ctx context.Context, to domain.Address, amount uint64) (uint64, error)
	Balance(ctx context.Context, of domain.Address) (uint64, error)
}

// ErrRecipientRejected is returned when a payout cannot be accepted.
var ErrRecipientRejected = errors.New("recipient cannot accept payment")

type Ledger struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Transfer credits amount to the recipient. The null identity and balance
// overflow are refused.
func (l *Ledger) Transfer(ctx context.Context, to domain.Address, amount uint64) error {
	if to.IsZero() {
		return ErrRecipientRejected
	}
	balance, err := l.store.Credit(ctx, to, amount)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return fmt.Errorf("%w: balance overflow", ErrRecipientRejected)
	}
	if err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}
	l.logger.DebugContext(ctx, "ledger credited", "recipient", to, "amount", amount, "balance", balance)
	return nil
}

func (l *Ledger) Balance(ctx context.Context, of domain.Address) (uint64, error) {
	return l.store.Balance(ctx, of)
}
