package models

import (
	"slices"
	"strings"
	"time"

	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

// Role is the label assigned to a registered identity.
type Role string

const (
	RoleSuperadmin    Role = "superadmin"
	RoleGovernment    Role = "government"
	RolePropertyOwner Role = "property_owner"
	RoleLegal         Role = "legal"
	RoleBuyer         Role = "buyer"
)

// Capability is a named permission checked before privileged operations.
type Capability string

const (
	CapabilitySuperadmin Capability = "superadmin"
	CapabilityApprover   Capability = "approver"
	CapabilityOwner      Capability = "owner"
	CapabilityLegal      Capability = "legal"
	CapabilityBuyer      Capability = "buyer"
)

// grants is the closed role → capability membership table.
var grants = map[Role][]Capability{
	RoleSuperadmin:    {CapabilitySuperadmin, CapabilityApprover},
	RoleGovernment:    {CapabilityApprover},
	RolePropertyOwner: {CapabilityOwner},
	RoleLegal:         {CapabilityLegal},
	RoleBuyer:         {CapabilityBuyer},
}

// ParseRole validates a role label.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if r == "" {
		return "", dErrors.New(dErrors.CodeInvalidRole, "role is required")
	}
	if _, ok := grants[r]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidRole, "unknown role: "+string(r))
	}
	return r, nil
}

// ParseCapability validates a capability name.
func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.TrimSpace(s))
	for _, caps := range grants {
		if slices.Contains(caps, c) {
			return c, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown capability: "+s)
}

// Grants reports whether the role is a member of the capability set.
func (r Role) Grants(c Capability) bool {
	return slices.Contains(grants[r], c)
}

// Entry is an identity's registration record.
//
// Invariants:
//   - Identity is never the zero address
//   - Role is one of the known roles
//   - Villages holds trimmed, unique, non-empty names (territorial assignments only)
type Entry struct {
	Identity     domain.Address `json:"identity"`
	Role         Role           `json:"role"`
	Villages     []string       `json:"villages,omitempty"`
	RegisteredAt time.Time      `json:"registered_at"`
}

// NewEntry builds a registration record, normalizing the village list.
func NewEntry(identity domain.Address, role Role, villages []string, now time.Time) (*Entry, error) {
	if identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	if _, ok := grants[role]; !ok {
		return nil, dErrors.New(dErrors.CodeInvalidRole, "unknown role: "+string(role))
	}
	return &Entry{
		Identity:     identity,
		Role:         role,
		Villages:     normalizeVillages(villages),
		RegisteredAt: now,
	}, nil
}

// Has reports whether the entry's role grants c. A nil entry grants nothing.
func (e *Entry) Has(c Capability) bool {
	return e != nil && e.Role.Grants(c)
}

func normalizeVillages(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
