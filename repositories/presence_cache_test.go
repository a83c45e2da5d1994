package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newPresenceCache(t *testing.T, ttl time.Duration) (*PresenceCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewPresenceCache(rdb, ttl, "node-1"), server
}

func TestPresenceCache_MarkOnlineAndOffline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	cache, server := newPresenceCache(t, 90*time.Second)

	// When alice goes online
	req.NoError(cache.MarkOnline(ctx, "alice"))

	// Then her key holds the node id with the presence TTL
	node, err := server.Get("presence:alice")
	req.NoError(err)
	req.Equal("node-1", node)
	req.Equal(90*time.Second, server.TTL("presence:alice"))

	// When she goes offline the key is gone
	req.NoError(cache.MarkOffline(ctx, "alice"))
	req.False(server.Exists("presence:alice"))
}

func TestPresenceCache_RefreshKeepsKeyAlive(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	cache, server := newPresenceCache(t, 90*time.Second)
	req.NoError(cache.MarkOnline(ctx, "alice"))
	req.NoError(cache.MarkOnline(ctx, "bob"))

	// Given a minute passed and only alice answered her heartbeat
	server.FastForward(time.Minute)
	req.NoError(cache.Refresh(ctx, "alice"))

	// When the original TTL elapses
	server.FastForward(45 * time.Second)

	// Then only the refreshed key survives
	req.True(server.Exists("presence:alice"))
	req.False(server.Exists("presence:bob"))
}

func TestPresenceCache_UnreachableRedis(t *testing.T) {
	req := require.New(t)
	cache, server := newPresenceCache(t, time.Minute)
	server.Close()

	req.Error(cache.MarkOnline(context.Background(), "alice"))
}
