package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

// Status is a property's position in the approval and sale lifecycle.
type Status string

const (
	StatusPending        Status = "pending"
	StatusApproved       Status = "approved"
	StatusRejected       Status = "rejected"
	StatusListedForSale  Status = "listed_for_sale"
	StatusSaleInProgress Status = "sale_in_progress"
	// StatusSold is part of the schema but never entered: a completed sale
	// returns the property to StatusApproved so the new owner can relist it.
	StatusSold Status = "sold"
)

var transitions = map[Status][]Status{
	StatusPending:        {StatusApproved, StatusRejected},
	StatusApproved:       {StatusListedForSale},
	StatusListedForSale:  {StatusSaleInProgress, StatusApproved},
	StatusSaleInProgress: {StatusApproved, StatusListedForSale},
}

// CanTransitionTo reports whether next is an edge of the lifecycle graph.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Property is a registered land parcel.
//
// Invariants:
//   - ID is never 0 for a stored property and is never reused
//   - Identifier is derived from the jurisdiction, survey number and ID
//   - Status moves only along the edges in transitions
//   - Active becomes false only through rejection, and an inactive property
//     accepts no further mutation
type Property struct {
	ID           domain.PropertyID `json:"id"`
	State        string            `json:"state"`
	District     string            `json:"district"`
	Village      string            `json:"village"`
	SurveyNumber string            `json:"survey_number"`
	Identifier   string            `json:"property_identifier"`
	Owner        domain.Address    `json:"owner"`
	MarketValue  uint64            `json:"market_value"`
	DocumentRef  string            `json:"document_ref"`
	Status       Status            `json:"status"`
	RegisteredAt time.Time         `json:"registered_at"`
	LastUpdated  time.Time         `json:"last_updated"`
	Active       bool              `json:"is_active"`
}

// Registration is the input to property registration.
type Registration struct {
	State        string
	District     string
	Village      string
	SurveyNumber string
	Owner        domain.Address
	MarketValue  uint64
	DocumentRef  string
}

func (r *Registration) Normalize() {
	r.State = strings.TrimSpace(r.State)
	r.District = strings.TrimSpace(r.District)
	r.Village = strings.TrimSpace(r.Village)
	r.SurveyNumber = strings.TrimSpace(r.SurveyNumber)
	r.DocumentRef = strings.TrimSpace(r.DocumentRef)
}

func (r *Registration) Validate() error {
	switch {
	case r.State == "":
		return dErrors.New(dErrors.CodeInvalidInput, "state is required")
	case r.District == "":
		return dErrors.New(dErrors.CodeInvalidInput, "district is required")
	case r.Village == "":
		return dErrors.New(dErrors.CodeInvalidInput, "village is required")
	case r.SurveyNumber == "":
		return dErrors.New(dErrors.CodeInvalidInput, "survey number is required")
	case r.DocumentRef == "":
		return dErrors.New(dErrors.CodeInvalidInput, "document reference is required")
	case r.Owner.IsZero():
		return dErrors.New(dErrors.CodeInvalidInput, "owner is required")
	case r.MarketValue == 0:
		return dErrors.New(dErrors.CodeInvalidInput, "market value must be greater than zero")
	}
	return nil
}

// NewProperty builds a pending property from a validated registration.
func NewProperty(id domain.PropertyID, reg Registration, now time.Time) (*Property, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeInternal, "property id must be allocated")
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &Property{
		ID:           id,
		State:        reg.State,
		District:     reg.District,
		Village:      reg.Village,
		SurveyNumber: reg.SurveyNumber,
		Identifier:   Identifier(reg.State, reg.District, reg.Village, reg.SurveyNumber, id),
		Owner:        reg.Owner,
		MarketValue:  reg.MarketValue,
		DocumentRef:  reg.DocumentRef,
		Status:       StatusPending,
		RegisteredAt: now,
		LastUpdated:  now,
		Active:       true,
	}, nil
}

// Identifier derives the human-readable property identifier, for example
// "TELANGANA-RANGAREDDY-KOTHUR-SY_142/3-7".
func Identifier(state, district, village, survey string, id domain.PropertyID) string {
	seg := func(s string) string {
		return strings.ToUpper(strings.Join(strings.Fields(s), "_"))
	}
	return fmt.Sprintf("%s-%s-%s-%s-%d", seg(state), seg(district), seg(village), seg(survey), id)
}

// -----------------------------------------------------------------------------
// Transitions. Each Can<X> validates, Apply<X> mutates; use them as the
// validate/mutate pair of a store Execute call.
// -----------------------------------------------------------------------------

func (p *Property) requireActive() error {
	if !p.Active {
		return dErrors.New(dErrors.CodeInvalidState, "property is inactive")
	}
	return nil
}

func (p *Property) requireStatus(want Status) error {
	if err := p.requireActive(); err != nil {
		return err
	}
	if p.Status != want {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("property is %s, expected %s", p.Status, want))
	}
	return nil
}

// RequireOwner fails with CodeUnauthorized unless caller owns the property.
func (p *Property) RequireOwner(caller domain.Address) error {
	if p.Owner != caller {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the property owner")
	}
	return nil
}

func (p *Property) CanReview() error {
	return p.requireStatus(StatusPending)
}

func (p *Property) ApplyApproval(now time.Time) {
	p.Status = StatusApproved
	p.LastUpdated = now
}

// ApplyRejection is the only transition that deactivates a property.
func (p *Property) ApplyRejection(now time.Time) {
	p.Status = StatusRejected
	p.Active = false
	p.LastUpdated = now
}

func (p *Property) CanList() error {
	return p.requireStatus(StatusApproved)
}

func (p *Property) ApplyListing(now time.Time) {
	p.Status = StatusListedForSale
	p.LastUpdated = now
}

func (p *Property) CanDelist() error {
	if p.Status != StatusListedForSale && p.Status != StatusSaleInProgress {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("property is %s, not on sale", p.Status))
	}
	return p.requireActive()
}

func (p *Property) ApplyDelisting(now time.Time) {
	p.Status = StatusApproved
	p.LastUpdated = now
}

func (p *Property) CanUpdateDocuments() error {
	return p.requireActive()
}

func (p *Property) ApplyDocuments(ref string, now time.Time) {
	p.DocumentRef = ref
	p.LastUpdated = now
}

func (p *Property) CanStartSale() error {
	return p.requireStatus(StatusListedForSale)
}

func (p *Property) ApplySaleStarted(now time.Time) {
	p.Status = StatusSaleInProgress
	p.LastUpdated = now
}

// ApplySaleCancelled puts a property whose sale was rejected back on the
// market. Properties no longer mid-sale are left alone.
func (p *Property) ApplySaleCancelled(now time.Time) bool {
	if p.Status != StatusSaleInProgress {
		return false
	}
	p.Status = StatusListedForSale
	p.LastUpdated = now
	return true
}

// CanTransferFrom fails with CodeInvalidState when seller no longer owns the
// property, for example after a delist and a second sale.
func (p *Property) CanTransferFrom(seller domain.Address) error {
	if err := p.requireActive(); err != nil {
		return err
	}
	if p.Owner != seller {
		return dErrors.New(dErrors.CodeInvalidState, "seller no longer owns the property")
	}
	return nil
}

// ApplyTransfer hands the property to buyer at price and makes it relistable.
func (p *Property) ApplyTransfer(buyer domain.Address, price uint64, now time.Time) {
	p.Owner = buyer
	p.MarketValue = price
	p.Status = StatusApproved
	p.LastUpdated = now
}
