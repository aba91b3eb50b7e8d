package reservation

import (
	"context"
	"testing"
	"time"

	"eventhub/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			Cmd:          []string{"redis-server", "--notify-keyspace-events", "Ex"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestHoldAndRelease(t *testing.T) {
	client := startRedis(t)
	tracker := NewTracker(client, logger.NewTestLogger(), time.Minute)
	ctx := context.Background()

	require.NoError(t, tracker.Hold(ctx, "order-1"))

	held, err := tracker.Held(ctx, "order-1")
	require.NoError(t, err)
	assert.True(t, held)

	tracker.Release(ctx, "order-1")

	held, err = tracker.Held(ctx, "order-1")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestSubscribeFiresOnExpiry(t *testing.T) {
	client := startRedis(t)
	tracker := NewTracker(client, logger.NewTestLogger(), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired := make(chan string, 1)
	tracker.Subscribe(ctx, func(orderID string) {
		expired <- orderID
	})

	// Give the subscriber a moment to attach before the key fires.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, tracker.Hold(ctx, "order-2"))

	select {
	case orderID := <-expired:
		assert.Equal(t, "order-2", orderID)
	case <-time.After(10 * time.Second):
		t.Fatal("reservation expiry never reached subscriber")
	}
}

func TestReleasedHoldDoesNotExpire(t *testing.T) {
	client := startRedis(t)
	tracker := NewTracker(client, logger.NewTestLogger(), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired := make(chan string, 1)
	tracker.Subscribe(ctx, func(orderID string) {
		expired <- orderID
	})

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, tracker.Hold(ctx, "order-3"))
	tracker.Release(ctx, "order-3")

	select {
	case orderID := <-expired:
		t.Fatalf("released hold %s still expired", orderID)
	case <-time.After(3 * time.Second):
	}
}
