// Package registry is the public surface of the land registry core. It
// composes identity, emergency control, properties, the purchase workflow
// and escrow, and wraps every mutating call in one envelope:
//
//  1. reject nested calls made from inside another mutation or a payout
//  2. serialize writers (readers share the same lock)
//  3. fail fast while paused (except SetPaused)
//  4. run the call as one unit of work
//  5. publish buffered facts once the unit commits
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	accessmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	escrowmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/events"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/metrics"
	propertymodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/property/models"
	txmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/transaction/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/tx"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/requestcontext"
)

type Access interface {
	Register(ctx context.Context, caller, identity domain.Address, role accessmodels.Role) (*accessmodels.Entry, error)
	AssignTerritorial(ctx context.Context, caller, identity domain.Address, villages []string, role accessmodels.Role) (*accessmodels.Entry, error)
	HasCapability(ctx context.Context, identity domain.Address, capability accessmodels.Capability) (bool, error)
	Lookup(ctx context.Context, identity domain.Address) (*accessmodels.Entry, error)
}

type Emergency interface {
	SetPaused(ctx context.Context, caller domain.Address, paused bool) error
	Paused(ctx context.Context) (bool, error)
	EnsureRunning(ctx context.Context) error
}

type Properties interface {
	Register(ctx context.Context, caller domain.Address, reg propertymodels.Registration) (*propertymodels.Property, error)
	Review(ctx context.Context, caller domain.Address, id domain.PropertyID, approve bool) (*propertymodels.Property, error)
	ListForSale(ctx context.Context, caller domain.Address, id domain.PropertyID, price uint64) (*propertymodels.Property, error)
	RemoveFromSale(ctx context.Context, caller domain.Address, id domain.PropertyID) (*propertymodels.Property, error)
	UpdateDocuments(ctx context.Context, caller domain.Address, id domain.PropertyID, documentRef string) (*propertymodels.Property, error)
	Get(ctx context.Context, id domain.PropertyID) (*propertymodels.Property, error)
	ListByOwner(ctx context.Context, owner domain.Address) ([]*propertymodels.Property, error)
	Count(ctx context.Context) (uint64, error)
}

type Workflow interface {
	RequestPurchase(ctx context.Context, caller domain.Address, offer txmodels.Offer) (*txmodels.Transaction, error)
	ProcessRequest(ctx context.Context, caller domain.Address, id domain.TransactionID, approve bool) (*txmodels.Transaction, error)
	CompletePurchase(ctx context.Context, caller domain.Address, id domain.TransactionID) (*txmodels.Transaction, error)
	Get(ctx context.Context, id domain.TransactionID) (*txmodels.Transaction, error)
	ListByProperty(ctx context.Context, propertyID domain.PropertyID) ([]*txmodels.Transaction, error)
	ListPendingByProperty(ctx context.Context, propertyID domain.PropertyID) ([]*txmodels.Transaction, error)
}

type Vault interface {
	Totals(ctx context.Context) (escrowmodels.Totals, error)
}

type Ledger interface {
	Balance(ctx context.Context, of domain.Address) (uint64, error)
}

// Publisher receives committed facts.
type Publisher interface {
	Publish(facts ...events.Fact)
}

// Components are the collaborators the registry composes.
type Components struct {
	Access     Access
	Emergency  Emergency
	Properties Properties
	Workflow   Workflow
	Vault      Vault
	Ledger     Ledger
	Runner     tx.Runner
}

type Registry struct {
	Components

	publisher Publisher
	writeMu   sync.RWMutex
	payout    *payoutLatch
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithPublisher(p Publisher) Option {
	return func(r *Registry) {
		r.publisher = p
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Registry) {
		r.tracer = tp.Tracer(tracerName)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

const tracerName = "github.com/Elelei/Blockchain-Land-Registry-System/internal/registry"

func New(c Components, opts ...Option) *Registry {
	r := &Registry{
		Components: c,
		publisher:  discardPublisher{},
		tracer:     otel.Tracer(tracerName),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type discardPublisher struct{}

func (discardPublisher) Publish(...events.Fact) {}

type mutationKey struct{}

func inMutation(ctx context.Context) bool {
	active, _ := ctx.Value(mutationKey{}).(bool)
	return active
}

func (r *Registry) rejectReentry(ctx context.Context, op string, caller domain.Address) error {
	if r.metrics != nil {
		r.metrics.IncrementReentrantRejected()
	}
	r.logger.WarnContext(ctx, "nested registry call rejected",
		"operation", op,
		"caller", caller,
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.New(dErrors.CodeReentrantCall, "registry is already processing a mutation for this call")
}

// mutate runs fn under the mutation envelope. Pause-exempt callers pass
// gated=false.
func (r *Registry) mutate(ctx context.Context, op string, caller domain.Address, gated bool, fn func(ctx context.Context) error) error {
	if inMutation(ctx) || r.payout.active() {
		return r.rejectReentry(ctx, op, caller)
	}
	ctx = context.WithValue(ctx, mutationKey{}, true)
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))

	ctx, span := r.tracer.Start(ctx, "registry."+op, trace.WithAttributes(
		attribute.String("registry.caller", caller.String()),
	))
	defer span.End()

	start := time.Now()
	err := func() error {
		r.writeMu.Lock()
		defer r.writeMu.Unlock()
		return r.run(ctx, gated, fn)
	}()

	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if r.metrics != nil {
		r.metrics.ObserveOperation(op, outcome, time.Since(start))
	}
	return err
}

// view runs a read against committed state. Reads made from inside a
// mutation see that mutation's own writes; reads arriving from elsewhere
// during a payout are rejected since the writer lock cannot be released
// until the payout returns.
func view[T any](r *Registry, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if inMutation(ctx) {
		return fn(ctx)
	}
	if r.payout.active() {
		var zero T
		return zero, r.rejectReentry(ctx, op, requestcontext.Caller(ctx))
	}
	r.writeMu.RLock()
	defer r.writeMu.RUnlock()
	return fn(ctx)
}

func (r *Registry) run(ctx context.Context, gated bool, fn func(ctx context.Context) error) error {
	if gated {
		if err := r.Emergency.EnsureRunning(ctx); err != nil {
			return err
		}
	}
	ctx, buffer := events.WithBuffer(ctx)
	if err := r.Runner.RunInTx(ctx, fn); err != nil {
		buffer.Reset()
		return err
	}
	facts := buffer.Facts()
	if len(facts) > 0 {
		r.publisher.Publish(facts...)
	}
	return nil
}
