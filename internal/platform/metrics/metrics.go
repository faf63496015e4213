package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the registry and its HTTP surface.
type Metrics struct {
	Operations         *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	ReentrantRejected  prometheus.Counter
	PropertiesCreated  prometheus.Counter
	OwnershipTransfers prometheus.Counter
	EscrowMoved        *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
}

// New creates and registers all metrics with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "land_registry_operations_total",
			Help: "Mutating registry operations by outcome code",
		}, []string{"operation", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "land_registry_operation_duration_seconds",
			Help:    "Time spent inside mutating registry operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		ReentrantRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "land_registry_reentrant_calls_rejected_total",
			Help: "Nested mutating calls rejected by the reentrancy latch",
		}),
		PropertiesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "land_registry_properties_registered_total",
			Help: "Properties registered",
		}),
		OwnershipTransfers: factory.NewCounter(prometheus.CounterOpts{
			Name: "land_registry_ownership_transfers_total",
			Help: "Completed purchases",
		}),
		EscrowMoved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "land_registry_escrow_amount_total",
			Help: "Escrow value moved, by direction",
		}, []string{"direction"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "land_registry_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementReentrantRejected() {
	m.ReentrantRejected.Inc()
}

func (m *Metrics) IncrementPropertiesCreated() {
	m.PropertiesCreated.Inc()
}

func (m *Metrics) IncrementOwnershipTransfers() {
	m.OwnershipTransfers.Inc()
}

// AddEscrow records value entering ("deposit") or leaving ("release",
// "refund") the vault.
func (m *Metrics) AddEscrow(direction string, amount uint64) {
	m.EscrowMoved.WithLabelValues(direction).Add(float64(amount))
}
