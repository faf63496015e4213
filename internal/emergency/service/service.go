// Package service implements the emergency stop: a single flag, settable only
// by superadmins, that every mutating registry operation consults first.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/events"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/requestcontext"
)

type Store interface {
	Paused(ctx context.Context) (bool, error)
	SetPaused(ctx context.Context, paused bool, now time.Time) error
}

type Authorizer interface {
	Require(ctx context.Context, identity domain.Address, capability models.Capability) error
}

type Service struct {
	store  Store
	access Authorizer
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, access Authorizer, opts ...Option) *Service {
	s := &Service{store: store, access: access, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPaused sets or clears the flag. Setting the current value is a no-op.
func (s *Service) SetPaused(ctx context.Context, caller domain.Address, paused bool) error {
	if err := s.access.Require(ctx, caller, models.CapabilitySuperadmin); err != nil {
		return err
	}
	current, err := s.Paused(ctx)
	if err != nil {
		return err
	}
	if current == paused {
		return nil
	}

	now := requestcontext.Now(ctx)
	if err := s.store.SetPaused(ctx, paused, now); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save emergency state")
	}

	kind := events.KindUnpaused
	if paused {
		kind = events.KindPaused
	}
	events.Record(ctx, events.Fact{
		Kind:      kind,
		At:        now,
		RequestID: requestcontext.RequestID(ctx),
		Actor:     caller,
	})
	s.logger.WarnContext(ctx, "emergency state changed",
		"paused", paused,
		"caller", caller,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (s *Service) Paused(ctx context.Context) (bool, error) {
	paused, err := s.store.Paused(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load emergency state")
	}
	return paused, nil
}

// EnsureRunning fails with CodePaused while the flag is set.
func (s *Service) EnsureRunning(ctx context.Context) error {
	paused, err := s.Paused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return dErrors.New(dErrors.CodePaused, "registry is paused")
	}
	return nil
}
