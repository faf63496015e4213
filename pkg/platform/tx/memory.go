package tx

import (
	"context"
	"sync"

	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

// Participant is an in-memory store that can restore its own state.
// Snapshot is called at the start of a unit; the returned func is called
// only if the unit fails.
type Participant interface {
	Snapshot() (restore func())
}

// MemoryRunner gives in-memory stores all-or-nothing semantics by
// snapshotting every participant before fn runs and restoring them on error
// or panic. Units are serialized.
type MemoryRunner struct {
	mu           sync.Mutex
	participants []Participant
}

func NewMemoryRunner(participants ...Participant) *MemoryRunner {
	return &MemoryRunner{participants: participants}
}

// Enlist adds stores created after the runner.
func (r *MemoryRunner) Enlist(participants ...Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants = append(r.participants, participants...)
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	restores := make([]func(), 0, len(r.participants))
	for _, p := range r.participants {
		restores = append(restores, p.Snapshot())
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}()

	if err := fn(context.WithValue(ctx, memoryKey{}, true)); err != nil {
		return err
	}
	committed = true
	return nil
}
