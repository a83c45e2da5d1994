package services

import (
	"chat-pulse/contract"
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"chat-pulse/runtime"
	"context"
	"log/slog"
	"time"
)

type IPresenceService interface {
	SetOnline(ctx context.Context, identity domain.UserID, online bool) int
	Refresh(ctx context.Context, identity domain.UserID)
}

// PresenceService propagates online/offline transitions to friends.
// Propagation is best effort: failures are logged and never retried.
type PresenceService struct {
	log      *slog.Logger
	registry *runtime.Registry
	users    contract.UserStore
	friends  contract.FriendStore
	cache    contract.PresenceCache
	now      func() time.Time
}

func NewPresenceService(log *slog.Logger, registry *runtime.Registry, users contract.UserStore,
	friends contract.FriendStore, cache contract.PresenceCache) *PresenceService {
	return &PresenceService{
		log:      log,
		registry: registry,
		users:    users,
		friends:  friends,
		cache:    cache,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetOnline persists the flag and pushes friend_status_change to every friend
// holding a live connection. It returns how many friends were reached.
func (s *PresenceService) SetOnline(ctx context.Context, identity domain.UserID, online bool) int {
	if err := s.users.SetOnlineStatus(ctx, identity, online, s.now()); err != nil {
		s.log.Error("Failed to persist online status", "identity", identity, "online", online, "error", err)
	}
	s.mirror(ctx, identity, online)

	friends, err := s.friends.GetFriends(ctx, identity)
	if err != nil {
		s.log.Error("Failed to load friends, presence not propagated", "identity", identity, "error", err)
		return 0
	}

	evt := event.FriendStatusChangeEvent{Identity: identity, IsOnline: online}
	notified := 0
	for _, friend := range friends {
		conn, ok := s.registry.Lookup(friend)
		if !ok || !conn.IsLive() {
			continue
		}
		if err := conn.Send(ctx, evt); err != nil {
			s.log.Warn("Failed to notify friend of presence change",
				"identity", identity, "friend", friend, "error", err)
			continue
		}
		notified++
	}
	s.log.Debug("Presence propagated", "identity", identity, "online", online, "notified", notified)
	return notified
}

// Refresh keeps the shared presence entry of a responsive connection alive.
func (s *PresenceService) Refresh(ctx context.Context, identity domain.UserID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Refresh(ctx, identity); err != nil {
		s.log.Warn("Failed to refresh presence cache", "identity", identity, "error", err)
	}
}

func (s *PresenceService) mirror(ctx context.Context, identity domain.UserID, online bool) {
	if s.cache == nil {
		return
	}
	var err error
	if online {
		err = s.cache.MarkOnline(ctx, identity)
	} else {
		err = s.cache.MarkOffline(ctx, identity)
	}
	if err != nil {
		s.log.Warn("Failed to mirror presence", "identity", identity, "online", online, "error", err)
	}
}
