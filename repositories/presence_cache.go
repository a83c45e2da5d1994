package repositories

import (
	"chat-pulse/domain"
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceCache mirrors online flags into Redis so other services can read
// presence without asking this process.
// Key: presence:<user>, the TTL bounds how long a crashed process can leave
// a user marked online.
type PresenceCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	nodeID string
}

func NewPresenceCache(rdb *redis.Client, ttl time.Duration, nodeID string) *PresenceCache {
	return &PresenceCache{rdb: rdb, ttl: ttl, nodeID: nodeID}
}

func presenceKey(userID domain.UserID) string {
	return "presence:" + string(userID)
}

func (p *PresenceCache) MarkOnline(ctx context.Context, userID domain.UserID) error {
	return p.rdb.Set(ctx, presenceKey(userID), p.nodeID, p.ttl).Err()
}

func (p *PresenceCache) MarkOffline(ctx context.Context, userID domain.UserID) error {
	return p.rdb.Del(ctx, presenceKey(userID)).Err()
}

// Refresh renews the TTL of a user that answered its heartbeat.
func (p *PresenceCache) Refresh(ctx context.Context, userID domain.UserID) error {
	return p.rdb.Expire(ctx, presenceKey(userID), p.ttl).Err()
}
