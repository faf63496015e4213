//go:build integration

package containers

import (
	"context"
	"testing"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	platformredis "github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/redis"
)

// RedisContainer is a throwaway redis reachable through the same client
// wrapper the server uses.
type RedisContainer struct {
	URL    string
	Client *platformredis.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis url: %v", err)
	}
	client, err := platformredis.New(ctx, url)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Health(ctx); err != nil {
		t.Fatalf("redis health: %v", err)
	}
	return &RedisContainer{URL: url, Client: client}
}
