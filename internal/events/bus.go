package events

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultQueueSize = 1000
	defaultWorkers   = 1
)

// Sink delivers facts to one external observer. Close must be idempotent.
type Sink interface {
	Name() string
	Deliver(Fact) error
	Close()
}

// Bus fans facts out to sinks from a bounded async queue so observers never
// sit on the registry's write path. With one worker (the default) sinks see
// facts in commit order.
type Bus struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger *slog.Logger
	reg    prometheus.Registerer

	queue   chan Fact
	wg      sync.WaitGroup
	workers int

	closeMu sync.RWMutex
	closed  bool

	published      *prometheus.CounterVec
	dropped        prometheus.Counter
	deliveryErrors *prometheus.CounterVec
}

type BusOption func(*Bus)

func WithLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) { b.logger = logger }
}

func WithRegisterer(reg prometheus.Registerer) BusOption {
	return func(b *Bus) { b.reg = reg }
}

func WithWorkers(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.workers = n
		}
	}
}

func WithQueueSize(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.queue = make(chan Fact, n)
		}
	}
}

// NewBus starts the worker pool. Call Close to drain and stop it.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		logger:  slog.New(slog.DiscardHandler),
		queue:   make(chan Fact, defaultQueueSize),
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.reg != nil {
		b.initMetrics(b.reg)
	}
	for range b.workers {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

func (b *Bus) initMetrics(reg prometheus.Registerer) {
	b.published = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "land_registry_facts_published_total",
		Help: "Facts accepted by the bus, by kind",
	}, []string{"kind"})
	b.dropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "land_registry_facts_dropped_total",
		Help: "Facts dropped because the bus queue was full or closed",
	})
	b.deliveryErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "land_registry_fact_delivery_errors_total",
		Help: "Failed fact deliveries, by sink",
	}, []string{"sink"})
	reg.MustRegister(b.published, b.dropped, b.deliveryErrors)
}

// Subscribe adds a sink. Sinks added after facts were queued may miss them.
func (b *Bus) Subscribe(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Publish enqueues facts without blocking. Facts that do not fit are dropped
// and counted.
func (b *Bus) Publish(facts ...Fact) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	for _, f := range facts {
		if b.closed {
			b.drop(f, "bus closed")
			continue
		}
		select {
		case b.queue <- f:
			if b.published != nil {
				b.published.WithLabelValues(string(f.Kind)).Inc()
			}
		default:
			b.drop(f, "queue full")
		}
	}
}

func (b *Bus) drop(f Fact, reason string) {
	b.logger.Warn("dropping fact", "kind", f.Kind, "reason", reason)
	if b.dropped != nil {
		b.dropped.Inc()
	}
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for f := range b.queue {
		b.deliver(f)
	}
}

func (b *Bus) deliver(f Fact) {
	b.mu.RLock()
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, s := range sinks {
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("sink panic: %v", r)
				}
			}()
			err = s.Deliver(f)
		}()
		if err != nil {
			b.logger.Error("fact delivery failed", "sink", s.Name(), "kind", f.Kind, "error", err)
			if b.deliveryErrors != nil {
				b.deliveryErrors.WithLabelValues(s.Name()).Inc()
			}
		}
	}
}

// Close stops accepting facts, drains the queue and closes every sink.
func (b *Bus) Close() {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.closeMu.Unlock()

	b.wg.Wait()

	b.mu.Lock()
	sinks := b.sinks
	b.sinks = nil
	b.mu.Unlock()
	for _, s := range sinks {
		s.Close()
	}
}
