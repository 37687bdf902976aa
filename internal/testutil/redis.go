package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestRedisContainer wraps a Redis test container with a connected client.
type TestRedisContainer struct {
	Container testcontainers.Container
	Client    *redis.Client
	Addr      string
}

// SetupTestRedis creates a Redis container and returns a ready client.
// The returned cleanup function terminates the container.
func SetupTestRedis(t *testing.T) (*TestRedisContainer, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to ping Redis: %v", err)
	}

	tc := &TestRedisContainer{
		Container: container,
		Client:    client,
		Addr:      endpoint,
	}

	cleanup := func() {
		_ = client.Close()
		_ = container.Terminate(context.Background())
	}

	return tc, cleanup
}
