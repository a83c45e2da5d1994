package services

import (
	"chat-pulse/auth"
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"chat-pulse/errors"
	"chat-pulse/runtime"
	"chat-pulse/runtime/workers"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func (f fixture) connectionService() *ConnectionService {
	presence := NewPresenceService(f.log, f.registry, f.users, f.friends, nil)
	return NewConnectionService(f.log, f.registry, f.rooms, presence, auth.ClientTrust{})
}

func TestConnectionService_Authenticate(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	service := f.connectionService()
	_, bob := f.connect(t, "bob")

	f.users.EXPECT().SetOnlineStatus(gomock.Any(), domain.UserID("alice"), true, gomock.Any()).Return(nil).Times(1)
	f.friends.EXPECT().GetFriends(gomock.Any(), domain.UserID("alice")).Return([]domain.UserID{"bob"}, nil).Times(1)

	// When alice authenticates
	handle := &recordingHandle{}
	conn, err := service.Authenticate(ctx, "alice", "", handle)
	req.NoError(err)
	req.Equal(runtime.Live, conn.State())

	// Then she is acknowledged and bob sees her come online
	req.Len(handle.received(event.AuthSuccess), 1)
	req.Len(bob.received(event.FriendStatusChange), 1)

	// When she reconnects, no second online transition happens
	_, err = service.Authenticate(ctx, "alice", "", &recordingHandle{})
	req.NoError(err)
	req.True(handle.closed)
	req.Len(bob.received(event.FriendStatusChange), 1)
}

func TestConnectionService_Authenticate_RacingLoginsAnnounceOnce(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	service := f.connectionService()
	_, bob := f.connect(t, "bob")

	// Exactly one online transition for alice
	f.users.EXPECT().SetOnlineStatus(gomock.Any(), domain.UserID("alice"), true, gomock.Any()).Return(nil).Times(1)
	f.friends.EXPECT().GetFriends(gomock.Any(), domain.UserID("alice")).Return([]domain.UserID{"bob"}, nil).Times(1)

	// When alice authenticates from several sockets at once
	const logins = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, logins)
	for range logins {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := service.Authenticate(ctx, "alice", "", &recordingHandle{})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	// Then bob saw her come online once and a single connection remains
	req.Len(bob.received(event.FriendStatusChange), 1)
	req.True(f.registry.IsOnline("alice"))
	req.Equal(2, f.registry.Len())
}

func TestConnectionService_Authenticate_RejectsBadToken(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	presence := NewPresenceService(f.log, f.registry, f.users, f.friends, nil)
	service := NewConnectionService(f.log, f.registry, f.rooms, presence, auth.NewTokenVerifier("secret"))

	_, err := service.Authenticate(context.Background(), "alice", "not-a-jwt", &recordingHandle{})

	req.ErrorIs(err, errors.ErrInvalidToken)
	req.Equal(0, f.registry.Len())
}

func TestConnectionService_Disconnect(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	service := f.connectionService()
	_, bob := f.connect(t, "bob")
	alice, _ := f.connect(t, "alice")
	f.sessions.EXPECT().ListSessionMedia(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	_, err := f.rooms.Join(ctx, "alice", domain.SessionRoom("s1"))
	req.NoError(err)
	_, err = f.rooms.Join(ctx, "bob", domain.SessionRoom("s1"))
	req.NoError(err)

	f.users.EXPECT().SetOnlineStatus(gomock.Any(), domain.UserID("alice"), false, gomock.Any()).Return(nil)
	f.friends.EXPECT().GetFriends(gomock.Any(), domain.UserID("alice")).Return([]domain.UserID{"bob"}, nil)

	// When alice disconnects
	req.True(service.Disconnect(ctx, alice))

	// Then she left the session and bob sees her go offline
	req.False(f.rooms.IsMember(domain.SessionRoom("s1"), "alice"))
	req.Len(bob.received(event.ParticipantLeft), 1)
	changes := bob.received(event.FriendStatusChange)
	req.Len(changes, 1)
	req.False(decodeAs[event.FriendStatusChangeEvent](t, changes[0]).IsOnline)

	// A second close of the same connection does nothing
	req.False(service.Disconnect(ctx, alice))
}

func TestConnectionService_HeartbeatEvictionNotifiesFriends(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	service := f.connectionService()
	presence := NewPresenceService(f.log, f.registry, f.users, f.friends, nil)
	heartbeat := workers.NewHeartbeatWorker(f.log, f.registry, service, presence, time.Minute)

	_, bob := f.connect(t, "bob")
	alice, aliceHandle := f.connect(t, "alice")
	f.users.EXPECT().SetOnlineStatus(gomock.Any(), domain.UserID("alice"), false, gomock.Any()).Return(nil)
	f.friends.EXPECT().GetFriends(gomock.Any(), domain.UserID("alice")).Return([]domain.UserID{"bob"}, nil)

	// Given both were pinged, and only bob answered
	_, evicted := heartbeat.Tick(ctx)
	req.Equal(0, evicted)
	req.Len(aliceHandle.received(event.Ping), 1)
	f.registry.ForEach(func(conn *runtime.Connection) {
		if conn.Identity == "bob" {
			conn.MarkAlive()
		}
	})

	// When the next tick runs
	_, evicted = heartbeat.Tick(ctx)

	// Then alice is evicted and bob is told she went offline
	req.Equal(1, evicted)
	req.Equal(runtime.Gone, alice.State())
	req.True(aliceHandle.closed)
	req.False(f.registry.IsOnline("alice"))
	changes := bob.received(event.FriendStatusChange)
	req.Len(changes, 1)
	change := decodeAs[event.FriendStatusChangeEvent](t, changes[0])
	req.Equal(domain.UserID("alice"), change.Identity)
	req.False(change.IsOnline)
}
