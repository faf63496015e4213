package registry

import (
	"context"

	accessmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	escrowmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/models"
	propertymodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/property/models"
	txmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/transaction/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
)

// -----------------------------------------------------------------------------
// Identity
// -----------------------------------------------------------------------------

func (r *Registry) RegisterUser(ctx context.Context, caller, identity domain.Address, role accessmodels.Role) (*accessmodels.Entry, error) {
	var entry *accessmodels.Entry
	err := r.mutate(ctx, "register_user", caller, true, func(ctx context.Context) error {
		var err error
		entry, err = r.Access.Register(ctx, caller, identity, role)
		return err
	})
	return entry, err
}

func (r *Registry) AssignTerritorial(ctx context.Context, caller, identity domain.Address, villages []string, role accessmodels.Role) (*accessmodels.Entry, error) {
	var entry *accessmodels.Entry
	err := r.mutate(ctx, "assign_territorial", caller, true, func(ctx context.Context) error {
		var err error
		entry, err = r.Access.AssignTerritorial(ctx, caller, identity, villages, role)
		return err
	})
	return entry, err
}

func (r *Registry) HasCapability(ctx context.Context, identity domain.Address, capability accessmodels.Capability) (bool, error) {
	return view(r, ctx, "has_capability", func(ctx context.Context) (bool, error) {
		return r.Access.HasCapability(ctx, identity, capability)
	})
}

func (r *Registry) User(ctx context.Context, identity domain.Address) (*accessmodels.Entry, error) {
	return view(r, ctx, "user", func(ctx context.Context) (*accessmodels.Entry, error) {
		return r.Access.Lookup(ctx, identity)
	})
}

// -----------------------------------------------------------------------------
// Emergency control
// -----------------------------------------------------------------------------

// SetPaused is the only mutation allowed while paused.
func (r *Registry) SetPaused(ctx context.Context, caller domain.Address, paused bool) error {
	return r.mutate(ctx, "set_paused", caller, false, func(ctx context.Context) error {
		return r.Emergency.SetPaused(ctx, caller, paused)
	})
}

func (r *Registry) Paused(ctx context.Context) (bool, error) {
	return view(r, ctx, "paused", r.Emergency.Paused)
}

// -----------------------------------------------------------------------------
// Properties
// -----------------------------------------------------------------------------

func (r *Registry) RegisterProperty(ctx context.Context, caller domain.Address, reg propertymodels.Registration) (*propertymodels.Property, error) {
	var p *propertymodels.Property
	err := r.mutate(ctx, "register_property", caller, true, func(ctx context.Context) error {
		var err error
		p, err = r.Properties.Register(ctx, caller, reg)
		return err
	})
	if err == nil && r.metrics != nil {
		r.metrics.IncrementPropertiesCreated()
	}
	return p, err
}

func (r *Registry) ApproveProperty(ctx context.Context, caller domain.Address, id domain.PropertyID, approve bool) (*propertymodels.Property, error) {
	return r.mutateProperty(ctx, "approve_property", caller, func(ctx context.Context) (*propertymodels.Property, error) {
		return r.Properties.Review(ctx, caller, id, approve)
	})
}

func (r *Registry) ListForSale(ctx context.Context, caller domain.Address, id domain.PropertyID, price uint64) (*propertymodels.Property, error) {
	return r.mutateProperty(ctx, "list_for_sale", caller, func(ctx context.Context) (*propertymodels.Property, error) {
		return r.Properties.ListForSale(ctx, caller, id, price)
	})
}

func (r *Registry) RemoveFromSale(ctx context.Context, caller domain.Address, id domain.PropertyID) (*propertymodels.Property, error) {
	return r.mutateProperty(ctx, "remove_from_sale", caller, func(ctx context.Context) (*propertymodels.Property, error) {
		return r.Properties.RemoveFromSale(ctx, caller, id)
	})
}

func (r *Registry) UpdatePropertyDocuments(ctx context.Context, caller domain.Address, id domain.PropertyID, documentRef string) (*propertymodels.Property, error) {
	return r.mutateProperty(ctx, "update_documents", caller, func(ctx context.Context) (*propertymodels.Property, error) {
		return r.Properties.UpdateDocuments(ctx, caller, id, documentRef)
	})
}

func (r *Registry) mutateProperty(ctx context.Context, op string, caller domain.Address, fn func(ctx context.Context) (*propertymodels.Property, error)) (*propertymodels.Property, error) {
	var p *propertymodels.Property
	err := r.mutate(ctx, op, caller, true, func(ctx context.Context) error {
		var err error
		p, err = fn(ctx)
		return err
	})
	return p, err
}

func (r *Registry) Property(ctx context.Context, id domain.PropertyID) (*propertymodels.Property, error) {
	return view(r, ctx, "property", func(ctx context.Context) (*propertymodels.Property, error) {
		return r.Properties.Get(ctx, id)
	})
}

func (r *Registry) PropertiesByOwner(ctx context.Context, owner domain.Address) ([]*propertymodels.Property, error) {
	return view(r, ctx, "properties_by_owner", func(ctx context.Context) ([]*propertymodels.Property, error) {
		return r.Properties.ListByOwner(ctx, owner)
	})
}

func (r *Registry) PropertyCount(ctx context.Context) (uint64, error) {
	return view(r, ctx, "property_count", r.Properties.Count)
}

// -----------------------------------------------------------------------------
// Purchases
// -----------------------------------------------------------------------------

func (r *Registry) RequestPurchase(ctx context.Context, caller domain.Address, offer txmodels.Offer) (*txmodels.Transaction, error) {
	t, err := r.mutateTransaction(ctx, "request_purchase", caller, func(ctx context.Context) (*txmodels.Transaction, error) {
		return r.Workflow.RequestPurchase(ctx, caller, offer)
	})
	if err == nil && r.metrics != nil {
		r.metrics.AddEscrow("deposit", t.Escrow)
	}
	return t, err
}

func (r *Registry) ProcessRequest(ctx context.Context, caller domain.Address, id domain.TransactionID, approve bool) (*txmodels.Transaction, error) {
	t, err := r.mutateTransaction(ctx, "process_request", caller, func(ctx context.Context) (*txmodels.Transaction, error) {
		return r.Workflow.ProcessRequest(ctx, caller, id, approve)
	})
	if err == nil && !approve && r.metrics != nil {
		r.metrics.AddEscrow("refund", t.Escrow)
	}
	return t, err
}

func (r *Registry) CompletePurchase(ctx context.Context, caller domain.Address, id domain.TransactionID) (*txmodels.Transaction, error) {
	t, err := r.mutateTransaction(ctx, "complete_purchase", caller, func(ctx context.Context) (*txmodels.Transaction, error) {
		return r.Workflow.CompletePurchase(ctx, caller, id)
	})
	if err == nil && r.metrics != nil {
		r.metrics.IncrementOwnershipTransfers()
		r.metrics.AddEscrow("release", t.Escrow)
	}
	return t, err
}

func (r *Registry) mutateTransaction(ctx context.Context, op string, caller domain.Address, fn func(ctx context.Context) (*txmodels.Transaction, error)) (*txmodels.Transaction, error) {
	var t *txmodels.Transaction
	err := r.mutate(ctx, op, caller, true, func(ctx context.Context) error {
		var err error
		t, err = fn(ctx)
		return err
	})
	return t, err
}

func (r *Registry) Transaction(ctx context.Context, id domain.TransactionID) (*txmodels.Transaction, error) {
	return view(r, ctx, "transaction", func(ctx context.Context) (*txmodels.Transaction, error) {
		return r.Workflow.Get(ctx, id)
	})
}

func (r *Registry) TransactionsByProperty(ctx context.Context, propertyID domain.PropertyID) ([]*txmodels.Transaction, error) {
	return view(r, ctx, "transactions_by_property", func(ctx context.Context) ([]*txmodels.Transaction, error) {
		return r.Workflow.ListByProperty(ctx, propertyID)
	})
}

func (r *Registry) PendingTransactionsByProperty(ctx context.Context, propertyID domain.PropertyID) ([]*txmodels.Transaction, error) {
	return view(r, ctx, "pending_transactions", func(ctx context.Context) ([]*txmodels.Transaction, error) {
		return r.Workflow.ListPendingByProperty(ctx, propertyID)
	})
}

// -----------------------------------------------------------------------------
// Escrow
// -----------------------------------------------------------------------------

func (r *Registry) EscrowTotals(ctx context.Context) (escrowmodels.Totals, error) {
	return view(r, ctx, "escrow_totals", r.Vault.Totals)
}

// Balance is what the payment ledger has paid out to identity.
func (r *Registry) Balance(ctx context.Context, identity domain.Address) (uint64, error) {
	return view(r, ctx, "balance", func(ctx context.Context) (uint64, error) {
		return r.Ledger.Balance(ctx, identity)
	})
}
