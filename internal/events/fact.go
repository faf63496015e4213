// Package events defines the immutable facts the registry emits on state
// change and the bus that fans them out to external observers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
)

// Kind names a fact.
type Kind string

const (
	KindUserRegistered        Kind = "user_registered"
	KindPropertyRegistered    Kind = "property_registered"
	KindPropertyStatusChanged Kind = "property_status_changed"
	KindPropertyListedForSale Kind = "property_listed_for_sale"
	KindPurchaseRequested     Kind = "purchase_requested"
	KindPurchaseApproved      Kind = "purchase_approved"
	KindPurchaseRejected      Kind = "purchase_rejected"
	KindOwnershipTransferred  Kind = "ownership_transferred"
	KindDocumentsUpdated      Kind = "documents_updated"
	KindPaused                Kind = "paused"
	KindUnpaused              Kind = "unpaused"
)

// Fact is an immutable record of one state change. Only the fields relevant
// to Kind are set.
type Fact struct {
	Kind          Kind                 `json:"kind"`
	At            time.Time            `json:"at"`
	RequestID     string               `json:"request_id,omitempty"`
	Actor         domain.Address       `json:"actor"`
	Subject       domain.Address       `json:"subject"`
	Counterparty  domain.Address       `json:"counterparty"`
	PropertyID    domain.PropertyID    `json:"property_id,omitempty"`
	TransactionID domain.TransactionID `json:"transaction_id,omitempty"`
	OldStatus     string               `json:"old_status,omitempty"`
	NewStatus     string               `json:"new_status,omitempty"`
	Amount        uint64               `json:"amount,omitempty"`
	Role          string               `json:"role,omitempty"`
	DocumentRef   string               `json:"document_ref,omitempty"`
}

// Buffer collects facts raised during one mutating call. They are published
// only after the call's unit of work commits.
type Buffer struct {
	mu    sync.Mutex
	facts []Fact
}

type bufferKey struct{}

// WithBuffer returns a context that collects facts recorded under it.
func WithBuffer(ctx context.Context) (context.Context, *Buffer) {
	b := &Buffer{}
	return context.WithValue(ctx, bufferKey{}, b), b
}

// Record appends f to the buffer carried by ctx. Without a buffer it is a no-op.
func Record(ctx context.Context, f Fact) {
	b, ok := ctx.Value(bufferKey{}).(*Buffer)
	if !ok {
		return
	}
	b.mu.Lock()
	b.facts = append(b.facts, f)
	b.mu.Unlock()
}

// Facts returns the recorded facts in emission order.
func (b *Buffer) Facts() []Fact {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Fact(nil), b.facts...)
}

// Reset drops everything recorded so far. Used when a unit rolls back.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.facts = nil
	b.mu.Unlock()
}
