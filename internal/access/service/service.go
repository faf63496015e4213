package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/events"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/sentinel"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/requestcontext"
)

type Store interface {
	Find(ctx context.Context, identity domain.Address) (*models.Entry, error)
	Create(ctx context.Context, entry *models.Entry) error
}

// Service is the role and identity registry. It gates privileged operations
// and auto-registers identities on first contact.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register assigns role to identity. Superadmin only.
func (s *Service) Register(ctx context.Context, caller, identity domain.Address, role models.Role) (*models.Entry, error) {
	return s.register(ctx, caller, identity, role, nil, false)
}

// AssignTerritorial registers identity with role and the villages it is
// responsible for. Superadmin only.
func (s *Service) AssignTerritorial(ctx context.Context, caller, identity domain.Address, villages []string, role models.Role) (*models.Entry, error) {
	return s.register(ctx, caller, identity, role, villages, true)
}

func (s *Service) register(ctx context.Context, caller, identity domain.Address, role models.Role, villages []string, territorial bool) (*models.Entry, error) {
	if err := s.Require(ctx, caller, models.CapabilitySuperadmin); err != nil {
		return nil, err
	}
	role, err := models.ParseRole(string(role))
	if err != nil {
		return nil, err
	}
	if territorial && !slices.ContainsFunc(villages, func(v string) bool { return strings.TrimSpace(v) != "" }) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one village is required")
	}
	entry, err := models.NewEntry(identity, role, villages, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, entry); err != nil {
		return nil, err
	}
	events.Record(ctx, userRegistered(ctx, caller, entry))
	s.logger.InfoContext(ctx, "identity registered",
		"identity", identity,
		"role", role,
		"villages", len(entry.Villages),
		"request_id", requestcontext.RequestID(ctx),
	)
	return entry, nil
}

// AutoRegister registers an unknown identity with role. Known identities are
// left untouched. Reports whether a registration happened.
func (s *Service) AutoRegister(ctx context.Context, identity domain.Address, role models.Role) (bool, error) {
	_, err := s.store.Find(ctx, identity)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	entry, err := models.NewEntry(identity, role, nil, requestcontext.Now(ctx))
	if err != nil {
		return false, err
	}
	if err := s.create(ctx, entry); err != nil {
		return false, err
	}
	events.Record(ctx, userRegistered(ctx, identity, entry))
	return true, nil
}

// Bootstrap seeds an identity outside the capability check. Used at startup
// for the configured superadmins and the seed file; existing identities are
// skipped.
func (s *Service) Bootstrap(ctx context.Context, identity domain.Address, role models.Role, villages []string) (bool, error) {
	entry, err := models.NewEntry(identity, role, villages, requestcontext.Now(ctx))
	if err != nil {
		return false, err
	}
	err = s.create(ctx, entry)
	if dErrors.HasCode(err, dErrors.CodeAlreadyRegistered) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) create(ctx context.Context, entry *models.Entry) error {
	if err := s.store.Create(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeAlreadyRegistered, "identity is already registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register identity")
	}
	return nil
}

// HasCapability reports whether identity's role grants capability. Unknown
// identities hold nothing.
func (s *Service) HasCapability(ctx context.Context, identity domain.Address, capability models.Capability) (bool, error) {
	entry, err := s.store.Find(ctx, identity)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	return entry.Has(capability), nil
}

// Require fails with CodeUnauthorized unless identity holds capability.
func (s *Service) Require(ctx context.Context, identity domain.Address, capability models.Capability) error {
	ok, err := s.HasCapability(ctx, identity, capability)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "caller lacks the "+string(capability)+" capability")
	}
	return nil
}

// Lookup returns the registration entry for identity.
func (s *Service) Lookup(ctx context.Context, identity domain.Address) (*models.Entry, error) {
	entry, err := s.store.Find(ctx, identity)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "identity is not registered")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	return entry, nil
}

func userRegistered(ctx context.Context, actor domain.Address, entry *models.Entry) events.Fact {
	return events.Fact{
		Kind:      events.KindUserRegistered,
		At:        entry.RegisteredAt,
		RequestID: requestcontext.RequestID(ctx),
		Actor:     actor,
		Subject:   entry.Identity,
		Role:      string(entry.Role),
	}
}
