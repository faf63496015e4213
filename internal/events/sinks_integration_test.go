//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/kafka"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/testutil/containers"
)

func sampleFact() Fact {
	return Fact{
		Kind:       KindOwnershipTransferred,
		At:         time.Now().UTC().Truncate(time.Millisecond),
		Subject:    domain.MustParseAddress("0x6e00000000000000000000000000000000000001"),
		PropertyID: 42,
		Amount:     1500,
	}
}

func TestRedisSinkPublishes(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	sub := rc.Client.Subscribe(ctx, "facts")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, NewRedisSink(rc.Client, "facts").Deliver(sampleFact()))

	select {
	case msg := <-sub.Channel():
		var got Fact
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, KindOwnershipTransferred, got.Kind)
		assert.Equal(t, domain.PropertyID(42), got.PropertyID)
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestKafkaSinkProduces(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	producer, err := kafka.NewProducer(ctx, []string{rp.Broker}, "land-registry.facts")
	require.NoError(t, err)
	t.Cleanup(producer.Close)

	require.NoError(t, NewKafkaSink(producer, "land-registry.facts").Deliver(sampleFact()))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics("land-registry.facts"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)
	assert.Equal(t, "42", string(records[0].Key))
	assert.Equal(t, "kind", records[0].Headers[0].Key)
}
