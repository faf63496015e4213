package registry

import (
	"context"
	"sync/atomic"

	escrowservice "github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/service"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
)

// payoutLatch is raised while value is leaving the vault. The recipient runs
// inside Transfer with the writer lock held, so any registry call it makes
// must be turned away rather than queued behind that lock, whichever context
// it carries.
type payoutLatch struct {
	raised atomic.Bool
}

func (l *payoutLatch) active() bool {
	return l != nil && l.raised.Load()
}

// guard returns next with the latch raised for the duration of each Transfer.
func (l *payoutLatch) guard(next escrowservice.Payments) escrowservice.Payments {
	return latchedPayments{next: next, latch: l}
}

type latchedPayments struct {
	next  escrowservice.Payments
	latch *payoutLatch
}

func (p latchedPayments) Transfer(ctx context.Context, to domain.Address, amount uint64) error {
	p.latch.raised.Store(true)
	defer p.latch.raised.Store(false)
	return p.next.Transfer(ctx, to, amount)
}

func withPayoutLatch(l *payoutLatch) Option {
	return func(r *Registry) {
		r.payout = l
	}
}
