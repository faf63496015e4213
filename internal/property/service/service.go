package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	accessmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/events"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/property/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/requestcontext"
)

type Store interface {
	NextID(ctx context.Context) (domain.PropertyID, error)
	Create(ctx context.Context, p *models.Property) error
	FindByID(ctx context.Context, id domain.PropertyID) (*models.Property, error)
	Execute(ctx context.Context, id domain.PropertyID, validate func(*models.Property) error, mutate func(*models.Property)) (*models.Property, error)
	ListByOwner(ctx context.Context, owner domain.Address) ([]*models.Property, error)
	Count(ctx context.Context) (uint64, error)
}

type Identities interface {
	Require(ctx context.Context, identity domain.Address, capability accessmodels.Capability) error
	AutoRegister(ctx context.Context, identity domain.Address, role accessmodels.Role) (bool, error)
}

// Service owns the property lifecycle from registration through listing.
// Sale-time transitions are driven by the transaction workflow.
type Service struct {
	store      Store
	identities Identities
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, identities Identities, opts ...Option) *Service {
	s := &Service{store: store, identities: identities, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register records a new pending property and auto-registers its owner.
// Any caller may register on an owner's behalf.
func (s *Service) Register(ctx context.Context, caller domain.Address, reg models.Registration) (*models.Property, error) {
	reg.Normalize()
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	id, err := s.store.NextID(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate property id")
	}
	now := requestcontext.Now(ctx)
	p, err := models.NewProperty(id, reg, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save property")
	}
	if _, err := s.identities.AutoRegister(ctx, p.Owner, accessmodels.RolePropertyOwner); err != nil {
		return nil, err
	}

	events.Record(ctx, events.Fact{
		Kind:        events.KindPropertyRegistered,
		At:          now,
		RequestID:   requestcontext.RequestID(ctx),
		Actor:       caller,
		Subject:     p.Owner,
		PropertyID:  p.ID,
		NewStatus:   string(p.Status),
		Amount:      p.MarketValue,
		DocumentRef: p.DocumentRef,
	})
	s.logger.InfoContext(ctx, "property registered",
		"property_id", p.ID,
		"identifier", p.Identifier,
		"owner", p.Owner,
		"request_id", requestcontext.RequestID(ctx),
	)
	return p, nil
}

// Review approves or rejects a pending property. Approvers only.
func (s *Service) Review(ctx context.Context, caller domain.Address, id domain.PropertyID, approve bool) (*models.Property, error) {
	if err := s.identities.Require(ctx, caller, accessmodels.CapabilityApprover); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	var old models.Status
	p, err := s.execute(ctx, id,
		func(p *models.Property) error {
			old = p.Status
			return p.CanReview()
		},
		func(p *models.Property) {
			if approve {
				p.ApplyApproval(now)
			} else {
				p.ApplyRejection(now)
			}
		})
	if err != nil {
		return nil, err
	}
	s.recordStatusChange(ctx, caller, p, old)
	return p, nil
}

// ListForSale puts an approved property on the market at price. The price is
// announced in the listing fact; the market value is unchanged until a sale.
func (s *Service) ListForSale(ctx context.Context, caller domain.Address, id domain.PropertyID, price uint64) (*models.Property, error) {
	now := requestcontext.Now(ctx)
	var old models.Status
	p, err := s.execute(ctx, id,
		func(p *models.Property) error {
			if err := p.RequireOwner(caller); err != nil {
				return err
			}
			if price == 0 {
				return dErrors.New(dErrors.CodeInvalidInput, "price must be greater than zero")
			}
			old = p.Status
			return p.CanList()
		},
		func(p *models.Property) { p.ApplyListing(now) })
	if err != nil {
		return nil, err
	}
	s.recordStatusChange(ctx, caller, p, old)
	events.Record(ctx, events.Fact{
		Kind:       events.KindPropertyListedForSale,
		At:         now,
		RequestID:  requestcontext.RequestID(ctx),
		Actor:      caller,
		Subject:    p.Owner,
		PropertyID: p.ID,
		Amount:     price,
	})
	return p, nil
}

// RemoveFromSale takes a property off the market. It is allowed mid-sale and
// leaves any in-flight transaction untouched.
func (s *Service) RemoveFromSale(ctx context.Context, caller domain.Address, id domain.PropertyID) (*models.Property, error) {
	now := requestcontext.Now(ctx)
	var old models.Status
	p, err := s.execute(ctx, id,
		func(p *models.Property) error {
			if err := p.RequireOwner(caller); err != nil {
				return err
			}
			old = p.Status
			return p.CanDelist()
		},
		func(p *models.Property) { p.ApplyDelisting(now) })
	if err != nil {
		return nil, err
	}
	s.recordStatusChange(ctx, caller, p, old)
	return p, nil
}

// UpdateDocuments replaces the property's document reference.
func (s *Service) UpdateDocuments(ctx context.Context, caller domain.Address, id domain.PropertyID, documentRef string) (*models.Property, error) {
	documentRef = strings.TrimSpace(documentRef)
	now := requestcontext.Now(ctx)
	p, err := s.execute(ctx, id,
		func(p *models.Property) error {
			if err := p.RequireOwner(caller); err != nil {
				return err
			}
			if documentRef == "" {
				return dErrors.New(dErrors.CodeInvalidInput, "document reference is required")
			}
			return p.CanUpdateDocuments()
		},
		func(p *models.Property) { p.ApplyDocuments(documentRef, now) })
	if err != nil {
		return nil, err
	}
	events.Record(ctx, events.Fact{
		Kind:        events.KindDocumentsUpdated,
		At:          now,
		RequestID:   requestcontext.RequestID(ctx),
		Actor:       caller,
		Subject:     p.Owner,
		PropertyID:  p.ID,
		DocumentRef: documentRef,
	})
	return p, nil
}

// StartSale moves a listed property into SaleInProgress for buyer's offer.
// Checks run in order: listed and active, not self-trade, offer at or above
// market value.
func (s *Service) StartSale(ctx context.Context, buyer domain.Address, id domain.PropertyID, offered uint64) (*models.Property, error) {
	now := requestcontext.Now(ctx)
	p, err := s.execute(ctx, id,
		func(p *models.Property) error {
			if err := p.CanStartSale(); err != nil {
				return err
			}
			if p.Owner == buyer {
				return dErrors.New(dErrors.CodeSelfTrade, "owner cannot buy their own property")
			}
			if offered < p.MarketValue {
				return dErrors.New(dErrors.CodeBelowMarketValue, "offer is below market value")
			}
			return nil
		},
		func(p *models.Property) { p.ApplySaleStarted(now) })
	if err != nil {
		return nil, err
	}
	s.recordStatusChange(ctx, buyer, p, models.StatusListedForSale)
	return p, nil
}

// CancelSale returns a property to the market after its sale was rejected.
// A property taken off the market in the meantime is left as it is.
func (s *Service) CancelSale(ctx context.Context, actor domain.Address, id domain.PropertyID) (*models.Property, error) {
	now := requestcontext.Now(ctx)
	var reverted bool
	p, err := s.execute(ctx, id,
		func(*models.Property) error { return nil },
		func(p *models.Property) { reverted = p.ApplySaleCancelled(now) })
	if err != nil {
		return nil, err
	}
	if reverted {
		s.recordStatusChange(ctx, actor, p, models.StatusSaleInProgress)
	}
	return p, nil
}

// Transfer hands the property from seller to buyer at price. It fails with
// CodeInvalidState when seller no longer owns the property.
func (s *Service) Transfer(ctx context.Context, seller, buyer domain.Address, id domain.PropertyID, price uint64) (*models.Property, error) {
	now := requestcontext.Now(ctx)
	var old models.Status
	p, err := s.execute(ctx, id,
		func(p *models.Property) error {
			old = p.Status
			return p.CanTransferFrom(seller)
		},
		func(p *models.Property) { p.ApplyTransfer(buyer, price, now) })
	if err != nil {
		return nil, err
	}
	if old != p.Status {
		s.recordStatusChange(ctx, buyer, p, old)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id domain.PropertyID) (*models.Property, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeNotFound, "property not found")
	}
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load property")
	}
	return p, nil
}

func (s *Service) ListByOwner(ctx context.Context, owner domain.Address) ([]*models.Property, error) {
	ps, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list properties")
	}
	return ps, nil
}

// Count is the number of properties ever registered, rejected ones included.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count properties")
	}
	return n, nil
}

func (s *Service) execute(ctx context.Context, id domain.PropertyID, validate func(*models.Property) error, mutate func(*models.Property)) (*models.Property, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeNotFound, "property not found")
	}
	p, err := s.store.Execute(ctx, id, validate, mutate)
	if err != nil {
		return nil, translate(err, "failed to update property")
	}
	return p, nil
}

func (s *Service) recordStatusChange(ctx context.Context, caller domain.Address, p *models.Property, old models.Status) {
	events.Record(ctx, events.Fact{
		Kind:       events.KindPropertyStatusChanged,
		At:         p.LastUpdated,
		RequestID:  requestcontext.RequestID(ctx),
		Actor:      caller,
		Subject:    p.Owner,
		PropertyID: p.ID,
		OldStatus:  string(old),
		NewStatus:  string(p.Status),
	})
	s.logger.InfoContext(ctx, "property status changed",
		"property_id", p.ID,
		"from", old,
		"to", p.Status,
		"request_id", requestcontext.RequestID(ctx),
	)
}

// translate maps store facts to domain errors and passes domain errors through.
func translate(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "property not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
