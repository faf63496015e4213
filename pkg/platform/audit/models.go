package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so stores
// can apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: title changes,
	// registrations, approvals. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers privileged control-plane actions such as the
	// emergency pause.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is one row of the audit trail. Keep it transport-agnostic so stores
// and sinks can fan out.
type Event struct {
	Category      EventCategory
	Timestamp     time.Time
	Action        string
	Actor         string
	Subject       string
	PropertyID    uint64
	TransactionID uint64
	Decision      string
	PriorState    string // status left behind by a transition
	Reference     string // document reference carried by the fact
	Amount        uint64
	RequestID     string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListByProperty(ctx context.Context, propertyID uint64) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

type AuditEvent string

const (
	EventUserRegistered        AuditEvent = "user_registered"
	EventPropertyRegistered    AuditEvent = "property_registered"
	EventPropertyStatusChanged AuditEvent = "property_status_changed"
	EventPropertyListedForSale AuditEvent = "property_listed_for_sale"
	EventPurchaseRequested     AuditEvent = "purchase_requested"
	EventPurchaseApproved      AuditEvent = "purchase_approved"
	EventPurchaseRejected      AuditEvent = "purchase_rejected"
	EventOwnershipTransferred  AuditEvent = "ownership_transferred"
	EventDocumentsUpdated      AuditEvent = "documents_updated"
	EventPaused                AuditEvent = "paused"
	EventUnpaused              AuditEvent = "unpaused"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserRegistered:        CategoryCompliance,
	EventPropertyRegistered:    CategoryCompliance,
	EventPropertyStatusChanged: CategoryCompliance,
	EventPurchaseRequested:     CategoryCompliance,
	EventPurchaseApproved:      CategoryCompliance,
	EventPurchaseRejected:      CategoryCompliance,
	EventOwnershipTransferred:  CategoryCompliance,

	EventPaused:   CategorySecurity,
	EventUnpaused: CategorySecurity,

	EventPropertyListedForSale: CategoryOperations,
	EventDocumentsUpdated:      CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
