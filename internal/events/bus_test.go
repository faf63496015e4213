package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/goleak"

	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	audit "github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/audit"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/audit/store/memory"
)

type recordingSink struct {
	mu     sync.Mutex
	facts  []Fact
	err    error
	closed bool
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Deliver(f Fact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.facts = append(r.facts, f)
	return nil
}

func (r *recordingSink) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

type panickingSink struct{}

func (panickingSink) Name() string       { return "panics" }
func (panickingSink) Deliver(Fact) error { panic("sink exploded") }
func (panickingSink) Close()             {}

type fakeProducer struct {
	records []*kgo.Record
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		out = append(out, kgo.ProduceResult{Record: r})
	}
	return out
}

type BusSuite struct {
	suite.Suite
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, new(BusSuite))
}

func (s *BusSuite) TearDownTest() {
	goleak.VerifyNone(s.T())
}

func (s *BusSuite) TestDeliversInOrderAndDrainsOnClose() {
	sink := &recordingSink{}
	bus := NewBus()
	bus.Subscribe(sink)

	bus.Publish(
		Fact{Kind: KindPropertyRegistered, PropertyID: 1},
		Fact{Kind: KindPropertyStatusChanged, PropertyID: 1},
		Fact{Kind: KindPropertyListedForSale, PropertyID: 1},
	)
	bus.Close()

	s.Require().Len(sink.facts, 3)
	s.Equal(KindPropertyRegistered, sink.facts[0].Kind)
	s.Equal(KindPropertyListedForSale, sink.facts[2].Kind)
	s.True(sink.closed)
}

func (s *BusSuite) TestFailingSinksDoNotStopOthers() {
	reg := prometheus.NewRegistry()
	good := &recordingSink{}
	bad := &recordingSink{err: errors.New("unreachable")}
	bus := NewBus(WithRegisterer(reg))
	bus.Subscribe(bad)
	bus.Subscribe(panickingSink{})
	bus.Subscribe(good)

	bus.Publish(Fact{Kind: KindPaused})
	bus.Close()

	s.Len(good.facts, 1)
	s.Equal(float64(1), testutil.ToFloat64(bus.deliveryErrors.WithLabelValues("recording")))
	s.Equal(float64(1), testutil.ToFloat64(bus.deliveryErrors.WithLabelValues("panics")))
}

func (s *BusSuite) TestPublishAfterCloseDrops() {
	reg := prometheus.NewRegistry()
	bus := NewBus(WithRegisterer(reg))
	bus.Close()
	bus.Close()

	bus.Publish(Fact{Kind: KindUnpaused})
	s.Equal(float64(1), testutil.ToFloat64(bus.dropped))
}

func (s *BusSuite) TestAuditSink() {
	store := memory.NewInMemoryStore()
	sink := NewAuditSink(audit.NewPublisher(store))
	buyer := domain.MustParseAddress("0x2222222222222222222222222222222222222222")

	s.Require().NoError(sink.Deliver(Fact{
		Kind:       KindOwnershipTransferred,
		Subject:    buyer,
		PropertyID: 5,
		NewStatus:  "approved",
		Amount:     150,
	}))

	events, err := store.ListByProperty(context.Background(), 5)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(buyer.String(), events[0].Subject)
	s.Equal(audit.CategoryCompliance, events[0].Category)
	s.Empty(events[0].Actor)
}

func (s *BusSuite) TestKafkaSinkKeysByProperty() {
	producer := &fakeProducer{}
	sink := NewKafkaSink(producer, "land.facts")

	s.Require().NoError(sink.Deliver(Fact{Kind: KindPurchaseRequested, PropertyID: 12, TransactionID: 3}))
	s.Require().Len(producer.records, 1)
	s.Equal("land.facts", producer.records[0].Topic)
	s.Equal("12", string(producer.records[0].Key))
	s.Equal("purchase_requested", string(producer.records[0].Headers[0].Value))
}

func (s *BusSuite) TestBufferCollectsOnlyWithBuffer() {
	Record(context.Background(), Fact{Kind: KindPaused})

	ctx, buf := WithBuffer(context.Background())
	Record(ctx, Fact{Kind: KindPaused})
	Record(ctx, Fact{Kind: KindUnpaused})
	s.Len(buf.Facts(), 2)

	buf.Reset()
	s.Empty(buf.Facts())
}

func TestToAuditEventKeepsTransitionDetail(t *testing.T) {
	changed := ToAuditEvent(Fact{
		Kind:       KindPropertyStatusChanged,
		PropertyID: 7,
		OldStatus:  "listed_for_sale",
		NewStatus:  "sale_in_progress",
	})
	assert.Equal(t, "sale_in_progress", changed.Decision)
	assert.Equal(t, "listed_for_sale", changed.PriorState)
	assert.Equal(t, uint64(7), changed.PropertyID)

	docs := ToAuditEvent(Fact{Kind: KindDocumentsUpdated, PropertyID: 7, DocumentRef: "bafy-new"})
	assert.Equal(t, "bafy-new", docs.Reference)
}
