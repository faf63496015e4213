package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/audit"
)

const deliverTimeout = 5 * time.Second

// AuditSink writes every fact to the audit trail.
type AuditSink struct {
	publisher *audit.Publisher
}

func NewAuditSink(publisher *audit.Publisher) *AuditSink {
	return &AuditSink{publisher: publisher}
}

func (s *AuditSink) Name() string { return "audit" }

func (s *AuditSink) Deliver(f Fact) error {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	return s.publisher.Emit(ctx, ToAuditEvent(f))
}

func (s *AuditSink) Close() {}

// ToAuditEvent flattens a fact into an audit row.
func ToAuditEvent(f Fact) audit.Event {
	e := audit.Event{
		Timestamp:     f.At,
		Action:        string(f.Kind),
		PropertyID:    uint64(f.PropertyID),
		TransactionID: uint64(f.TransactionID),
		Decision:      f.NewStatus,
		PriorState:    f.OldStatus,
		Reference:     f.DocumentRef,
		Amount:        f.Amount,
		RequestID:     f.RequestID,
	}
	if !f.Actor.IsZero() {
		e.Actor = f.Actor.String()
	}
	if !f.Subject.IsZero() {
		e.Subject = f.Subject.String()
	}
	if f.Kind == KindUserRegistered {
		e.Decision = f.Role
	}
	return e
}

// RedisSink publishes facts as JSON on a pub/sub channel for live UIs.
type RedisSink struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisSink(client redis.UniversalClient, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(f Fact) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal fact: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Close leaves the client open; its owner closes it.
func (s *RedisSink) Close() {}

// Producer is the slice of *kgo.Client the kafka sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSink produces facts to a topic keyed by property id, so facts for one
// parcel land on one partition in order.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(f Fact) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal fact: %w", err)
	}
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(f.PropertyID.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(f.Kind)},
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := s.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("kafka produce: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() {}
