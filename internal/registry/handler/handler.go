// Package handler exposes the registry facade over HTTP/JSON.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	accessmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	escrowmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/escrow/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/metrics"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/middleware"
	propertymodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/property/models"
	txmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/transaction/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/httputil"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/middleware/metadata"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/middleware/requesttime"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/requestcontext"
)

// Registry is the facade surface the handler serves.
type Registry interface {
	RegisterUser(ctx context.Context, caller, identity domain.Address, role accessmodels.Role) (*accessmodels.Entry, error)
	AssignTerritorial(ctx context.Context, caller, identity domain.Address, villages []string, role accessmodels.Role) (*accessmodels.Entry, error)
	HasCapability(ctx context.Context, identity domain.Address, capability accessmodels.Capability) (bool, error)
	User(ctx context.Context, identity domain.Address) (*accessmodels.Entry, error)

	SetPaused(ctx context.Context, caller domain.Address, paused bool) error
	Paused(ctx context.Context) (bool, error)

	RegisterProperty(ctx context.Context, caller domain.Address, reg propertymodels.Registration) (*propertymodels.Property, error)
	ApproveProperty(ctx context.Context, caller domain.Address, id domain.PropertyID, approve bool) (*propertymodels.Property, error)
	ListForSale(ctx context.Context, caller domain.Address, id domain.PropertyID, price uint64) (*propertymodels.Property, error)
	RemoveFromSale(ctx context.Context, caller domain.Address, id domain.PropertyID) (*propertymodels.Property, error)
	UpdatePropertyDocuments(ctx context.Context, caller domain.Address, id domain.PropertyID, documentRef string) (*propertymodels.Property, error)
	Property(ctx context.Context, id domain.PropertyID) (*propertymodels.Property, error)
	PropertiesByOwner(ctx context.Context, owner domain.Address) ([]*propertymodels.Property, error)
	PropertyCount(ctx context.Context) (uint64, error)

	RequestPurchase(ctx context.Context, caller domain.Address, offer txmodels.Offer) (*txmodels.Transaction, error)
	ProcessRequest(ctx context.Context, caller domain.Address, id domain.TransactionID, approve bool) (*txmodels.Transaction, error)
	CompletePurchase(ctx context.Context, caller domain.Address, id domain.TransactionID) (*txmodels.Transaction, error)
	Transaction(ctx context.Context, id domain.TransactionID) (*txmodels.Transaction, error)
	TransactionsByProperty(ctx context.Context, propertyID domain.PropertyID) ([]*txmodels.Transaction, error)
	PendingTransactionsByProperty(ctx context.Context, propertyID domain.PropertyID) ([]*txmodels.Transaction, error)

	EscrowTotals(ctx context.Context) (escrowmodels.Totals, error)
	Balance(ctx context.Context, identity domain.Address) (uint64, error)
}

// Handler serves the /v1 registry API.
type Handler struct {
	logger       *slog.Logger
	registry     Registry
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	rateLimit    func(http.Handler) http.Handler
	timeout      time.Duration
}

type Option func(*Handler)

// WithRateLimit installs a limiter that runs once the caller is known.
func WithRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.rateLimit = mw }
}

func New(registry Registry, logger *slog.Logger, metrics *metrics.Metrics, jwtValidator middleware.JWTValidator, opts ...Option) *Handler {
	h := &Handler{
		logger:       logger,
		registry:     registry,
		metrics:      metrics,
		jwtValidator: jwtValidator,
		timeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the registry routes with the chi router. Every route
// requires a bearer token.
func (h *Handler) Register(r chi.Router) {
	v1 := chi.NewRouter()
	v1.Use(middleware.Recovery(h.logger))
	v1.Use(middleware.RequestID)
	v1.Use(requesttime.Middleware)
	v1.Use(metadata.ClientMetadata)
	v1.Use(middleware.Logger(h.logger))
	v1.Use(middleware.Timeout(h.timeout))
	v1.Use(middleware.ContentTypeJSON)
	if h.metrics != nil {
		v1.Use(middleware.LatencyMiddleware(h.metrics))
	}
	v1.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	if h.rateLimit != nil {
		v1.Use(h.rateLimit)
	}

	v1.Route("/users", func(r chi.Router) {
		r.Post("/", h.handleRegisterUser)
		r.Post("/territorial", h.handleAssignTerritorial)
		r.Get("/{address}", h.handleGetUser)
		r.Get("/{address}/capabilities/{capability}", h.handleHasCapability)
	})

	v1.Get("/emergency", h.handleGetPaused)
	v1.Put("/emergency", h.handleSetPaused)

	v1.Route("/properties", func(r chi.Router) {
		r.Post("/", h.handleRegisterProperty)
		r.Get("/", h.handleListByOwner)
		r.Get("/count", h.handlePropertyCount)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetProperty)
			r.Post("/approval", h.handleApproveProperty)
			r.Put("/listing", h.handleListForSale)
			r.Delete("/listing", h.handleRemoveFromSale)
			r.Put("/documents", h.handleUpdateDocuments)
			r.Post("/purchases", h.handleRequestPurchase)
			r.Get("/transactions", h.handleListTransactions)
		})
	})

	v1.Route("/transactions/{id}", func(r chi.Router) {
		r.Get("/", h.handleGetTransaction)
		r.Post("/decision", h.handleProcessRequest)
		r.Post("/completion", h.handleCompletePurchase)
	})

	v1.Get("/escrow", h.handleEscrowTotals)
	v1.Get("/balances/{address}", h.handleBalance)

	r.Mount("/v1", v1)
}

// fail logs at a level matching the failure and writes the error envelope.
// Domain rejections are warnings; anything uncoded is an error.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	attrs := []any{
		"operation", op,
		"request_id", requestcontext.RequestID(ctx),
		"caller", requestcontext.Caller(ctx),
		"error", err,
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "registry operation failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "registry operation rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

func decode[T any, PT interface {
	*T
	httputil.Validatable
}](h *Handler, w http.ResponseWriter, r *http.Request) (*T, bool) {
	ctx := r.Context()
	return httputil.DecodeAndPrepare[T, PT](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
}

func propertyID(r *http.Request) (domain.PropertyID, error) {
	return domain.ParsePropertyID(chi.URLParam(r, "id"))
}

func transactionID(r *http.Request) (domain.TransactionID, error) {
	return domain.ParseTransactionID(chi.URLParam(r, "id"))
}

func address(r *http.Request) (domain.Address, error) {
	return domain.ParseAddress(chi.URLParam(r, "address"))
}
