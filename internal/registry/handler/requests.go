package handler

import (
	"strings"

	accessmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	propertymodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/property/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

// Request types only check shape: addresses parse and required switches are
// present. Value rules stay in the services so the pause and capability
// checks run first.

type RegisterUserRequest struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`

	identity domain.Address
	role     accessmodels.Role
}

func (r *RegisterUserRequest) Validate() error {
	identity, err := domain.ParseAddress(r.Identity)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "identity must be an address")
	}
	r.identity, r.role = identity, accessmodels.Role(r.Role)
	return nil
}

type AssignTerritorialRequest struct {
	RegisterUserRequest
	Villages []string `json:"villages"`
}

func (r *AssignTerritorialRequest) Validate() error {
	return r.RegisterUserRequest.Validate()
}

type SetPausedRequest struct {
	Paused *bool `json:"paused"`
}

func (r *SetPausedRequest) Validate() error {
	if r.Paused == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "paused is required")
	}
	return nil
}

type RegisterPropertyRequest struct {
	State        string `json:"state"`
	District     string `json:"district"`
	Village      string `json:"village"`
	SurveyNumber string `json:"survey_number"`
	Owner        string `json:"owner"`
	MarketValue  uint64 `json:"market_value"`
	DocumentRef  string `json:"document_ref"`

	registration propertymodels.Registration
}

func (r *RegisterPropertyRequest) Validate() error {
	owner, err := domain.ParseAddress(r.Owner)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "owner must be an address")
	}
	r.registration = propertymodels.Registration{
		State:        r.State,
		District:     r.District,
		Village:      r.Village,
		SurveyNumber: r.SurveyNumber,
		Owner:        owner,
		MarketValue:  r.MarketValue,
		DocumentRef:  r.DocumentRef,
	}
	return nil
}

// DecisionRequest carries approve/reject for properties and transactions.
type DecisionRequest struct {
	Approve *bool `json:"approve"`
}

func (r *DecisionRequest) Validate() error {
	if r.Approve == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "approve is required")
	}
	return nil
}

type ListingRequest struct {
	Price uint64 `json:"price"`
}

func (r *ListingRequest) Validate() error { return nil }

type DocumentsRequest struct {
	DocumentRef string `json:"document_ref"`
}

func (r *DocumentsRequest) Validate() error { return nil }

// PurchaseRequest is validated by the workflow, which orders the offer checks.
type PurchaseRequest struct {
	OfferedPrice uint64 `json:"offered_price"`
	DocumentRef  string `json:"document_ref"`
	Escrow       uint64 `json:"escrow"`
}

func (r *PurchaseRequest) Validate() error {
	r.DocumentRef = strings.TrimSpace(r.DocumentRef)
	return nil
}

type countResponse struct {
	Count uint64 `json:"count"`
}

type pausedResponse struct {
	Paused bool `json:"paused"`
}

type capabilityResponse struct {
	Identity   domain.Address          `json:"identity"`
	Capability accessmodels.Capability `json:"capability"`
	Granted    bool                    `json:"granted"`
}

type balanceResponse struct {
	Identity domain.Address `json:"identity"`
	Balance  uint64         `json:"balance"`
}

type escrowResponse struct {
	Collected uint64 `json:"collected"`
	Released  uint64 `json:"released"`
	Refunded  uint64 `json:"refunded"`
	Held      uint64 `json:"held"`
	Balanced  bool   `json:"balanced"`
}
