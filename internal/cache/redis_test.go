package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/trogers1052/market-returns/internal/logger"
)

func setupRedis(t *testing.T) *RedisStore {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	return NewRedisStoreFromClient(client, "test:", logger.Discard())
}

type cachedCloses struct {
	Symbol string    `json:"symbol"`
	Closes []float64 `json:"closes"`
}

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store := setupRedis(t)
	ctx := context.Background()

	t.Run("miss reports not found", func(t *testing.T) {
		var dst cachedCloses
		found, err := store.Get(ctx, "absent", &dst)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("round trips JSON values", func(t *testing.T) {
		in := cachedCloses{Symbol: "AAPL", Closes: []float64{100, 101.5}}
		require.NoError(t, store.Set(ctx, "closes:AAPL", in, time.Minute))

		var out cachedCloses
		found, err := store.Get(ctx, "closes:AAPL", &out)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, in, out)

		ttl, err := store.client.TTL(ctx, "test:closes:AAPL").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("expired values are gone", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "short", cachedCloses{Symbol: "X"}, 50*time.Millisecond))
		time.Sleep(200 * time.Millisecond)

		var dst cachedCloses
		found, err := store.Get(ctx, "short", &dst)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete removes keys", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "gone", cachedCloses{Symbol: "Y"}, time.Minute))
		require.NoError(t, store.Delete(ctx, "gone"))

		var dst cachedCloses
		found, err := store.Get(ctx, "gone", &dst)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("corrupt values surface an error", func(t *testing.T) {
		require.NoError(t, store.client.Set(ctx, "test:bad", "not json", time.Minute).Err())

		var dst cachedCloses
		_, err := store.Get(ctx, "bad", &dst)
		assert.Error(t, err)
	})

	assert.NoError(t, store.Health(ctx))
}
