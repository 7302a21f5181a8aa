package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "progress:snapshot:user-1", SnapshotKey("user-1"))
	assert.Equal(t, "pubsub:progress.badge", PubSubChannel("progress.badge"))
	assert.Equal(t, "pubsub:progress.streak", NotificationChannel("streak"))
}

func TestCacheRejectsBadInput(t *testing.T) {
	// No round trip happens for invalid input, so an unreachable address is fine.
	c := NewCacheFromClient(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"}))
	defer c.Close()

	ctx := context.Background()
	assert.ErrorIs(t, c.SetRaw(ctx, "", []byte("x"), time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.SetRaw(ctx, "k", []byte("x"), -time.Second), ErrCacheInvalidTTL)
	_, err := c.GetRaw(ctx, "")
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)
}

// newIntegrationCache connects to REDIS_TEST_ADDR or skips.
func newIntegrationCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	cfg := DefaultConfig()
	cfg.Addr = addr
	c, err := NewCache(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSnapshotCache_Integration(t *testing.T) {
	c := newIntegrationCache(t)
	ctx := context.Background()
	cache := NewSnapshotCache(c)

	userID := shared.UserID("test-" + uuid.NewString())
	t.Cleanup(func() { _ = cache.Delete(ctx, userID) })

	_, err := cache.Get(ctx, userID)
	assert.True(t, shared.IsNotFound(err))

	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	snap := progress.NewSnapshot(userID, progress.DefaultLevelTable(), now)
	snap.Version = 4
	require.NoError(t, cache.Set(ctx, snap, time.Minute))

	got, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	ttl, err := c.TTL(ctx, SnapshotKey(string(userID)))
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestCachePublishSubscribe_Integration(t *testing.T) {
	c := newIntegrationCache(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channel := NotificationChannel("test-" + uuid.NewString())
	sub := c.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Publish(ctx, channel, map[string]string{"kind": "badge"}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"badge"}`, msg.Payload)
}
