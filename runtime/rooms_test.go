package runtime

import (
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"chat-pulse/errors"
	"chat-pulse/mocks"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type roomFixture struct {
	registry *Registry
	manager  *RoomManager
	rooms    *mocks.MockRoomStore
	users    *mocks.MockUserStore
	sessions *mocks.MockSessionStore
}

func newRoomFixture(t *testing.T) roomFixture {
	ctrl := gomock.NewController(t)
	log := slog.Default()
	registry := NewRegistry(log)
	rooms := mocks.NewMockRoomStore(ctrl)
	users := mocks.NewMockUserStore(ctrl)
	sessions := mocks.NewMockSessionStore(ctrl)
	users.EXPECT().GetUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id domain.UserID) (domain.User, error) {
			return domain.User{ID: id, DisplayName: "User " + string(id)}, nil
		}).AnyTimes()
	return roomFixture{
		registry: registry,
		manager:  NewRoomManager(log, registry, rooms, users, sessions),
		rooms:    rooms,
		users:    users,
		sessions: sessions,
	}
}

func (f roomFixture) connect(t *testing.T, identity domain.UserID) (*Connection, *recordingHandle) {
	handle := &recordingHandle{}
	conn, err := f.registry.Register(identity, handle)
	require.NoError(t, err)
	return conn, handle
}

func TestRoomManager_Join_ChatRoomRequiresDurableMembership(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newRoomFixture(t)
	f.connect(t, "alice")
	f.connect(t, "mallory")

	f.rooms.EXPECT().GetRoom(gomock.Any(), domain.RoomID("r1")).
		Return(domain.Room{ID: "r1", Type: domain.RoomGroup, Members: []domain.UserID{"alice", "bob"}}, nil).
		Times(2)

	// When a member joins
	res, err := f.manager.Join(ctx, "alice", domain.ChatRoom("r1"))
	req.NoError(err)
	req.True(res.FirstJoin)
	req.True(f.manager.IsMember(domain.ChatRoom("r1"), "alice"))

	// When a stranger joins
	_, err = f.manager.Join(ctx, "mallory", domain.ChatRoom("r1"))

	// Then it is refused and nothing changes
	req.ErrorIs(err, errors.ErrNotAuthorized)
	req.False(f.manager.IsMember(domain.ChatRoom("r1"), "mallory"))
}

func TestRoomManager_Join_UnknownRoomIsNotAuthorized(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t)
	f.connect(t, "alice")
	f.rooms.EXPECT().GetRoom(gomock.Any(), domain.RoomID("nope")).
		Return(domain.Room{}, fmt.Errorf("%w: room nope", errors.ErrNotFound))

	_, err := f.manager.Join(context.Background(), "alice", domain.ChatRoom("nope"))
	req.ErrorIs(err, errors.ErrNotAuthorized)
}

func TestRoomManager_Join_StorageFailure(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t)
	f.connect(t, "alice")
	f.rooms.EXPECT().GetRoom(gomock.Any(), gomock.Any()).Return(domain.Room{}, fmt.Errorf("disk full"))

	_, err := f.manager.Join(context.Background(), "alice", domain.ChatRoom("r1"))
	req.ErrorIs(err, errors.ErrPersistenceFailure)
	req.Equal(0, f.manager.RoomCount())
}

func TestRoomManager_Join_RequiresLiveConnection(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t)

	_, err := f.manager.Join(context.Background(), "ghost", domain.SessionRoom("s1"))
	req.ErrorIs(err, errors.ErrAuthRequired)
}

func TestRoomManager_Join_IsIdempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newRoomFixture(t)
	f.connect(t, "alice")
	_, bobHandle := f.connect(t, "bob")
	f.sessions.EXPECT().ListSessionMedia(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	_, err := f.manager.Join(ctx, "bob", domain.SessionRoom("s1"))
	req.NoError(err)

	first, err := f.manager.Join(ctx, "alice", domain.SessionRoom("s1"))
	req.NoError(err)
	req.True(first.FirstJoin)
	second, err := f.manager.Join(ctx, "alice", domain.SessionRoom("s1"))
	req.NoError(err)
	req.False(second.FirstJoin)
	req.Nil(second.State)

	// Then bob only heard about alice once
	req.Equal([]event.Type{event.ParticipantJoined}, bobHandle.types())
	req.Len(f.manager.Members(domain.SessionRoom("s1")), 2)
}

func TestRoomManager_SessionJoinAndLeave(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newRoomFixture(t)
	_, aliceHandle := f.connect(t, "alice")
	_, bobHandle := f.connect(t, "bob")
	f.sessions.EXPECT().ListSessionMedia(gomock.Any(), domain.SessionID("s1")).
		Return([]domain.SessionMedia{{SessionID: "s1", SenderID: "bob", MediaURL: "https://x/y.png", MediaType: "image/png"}}, nil).
		AnyTimes()

	// Given bob is in the session
	_, err := f.manager.Join(ctx, "bob", domain.SessionRoom("s1"))
	req.NoError(err)

	// When alice joins
	res, err := f.manager.Join(ctx, "alice", domain.SessionRoom("s1"))
	req.NoError(err)

	// Then bob receives participant_joined and alice gets the state
	req.Equal([]event.Type{event.ParticipantJoined}, bobHandle.types())
	var joined event.ParticipantJoinedEvent
	req.NoError(json.Unmarshal(bobHandle.frames[0].Payload, &joined))
	req.Equal(domain.UserID("alice"), joined.Identity)
	req.Equal("User alice", joined.DisplayName)
	req.Empty(aliceHandle.types())

	req.NotNil(res.State)
	req.Len(res.State.Participants, 2)
	req.Len(res.State.Media, 1)

	// When alice leaves
	req.NoError(f.manager.Leave(ctx, "alice", domain.SessionRoom("s1")))

	// Then bob receives participant_left
	req.Equal([]event.Type{event.ParticipantJoined, event.ParticipantLeft}, bobHandle.types())
	req.False(f.manager.IsMember(domain.SessionRoom("s1"), "alice"))
}

func TestRoomManager_LeaveAll_DropsEmptyRooms(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newRoomFixture(t)
	conn, _ := f.connect(t, "alice")
	f.sessions.EXPECT().ListSessionMedia(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	f.rooms.EXPECT().GetRoom(gomock.Any(), domain.RoomID("r1")).
		Return(domain.Room{ID: "r1", Members: []domain.UserID{"alice"}}, nil)

	_, err := f.manager.Join(ctx, "alice", domain.SessionRoom("s1"))
	req.NoError(err)
	_, err = f.manager.Join(ctx, "alice", domain.ChatRoom("r1"))
	req.NoError(err)
	req.Equal(2, f.manager.RoomCount())

	// When the connection goes away
	f.registry.Release(conn)
	f.manager.LeaveAll(ctx, conn)

	// Then no live channel is left behind
	req.Equal(0, f.manager.RoomCount())
	req.Empty(conn.Rooms())
}

func TestRoomManager_Broadcast(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newRoomFixture(t)
	f.sessions.EXPECT().ListSessionMedia(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	_, aliceHandle := f.connect(t, "alice")
	_, bobHandle := f.connect(t, "bob")
	carol, carolHandle := f.connect(t, "carol")

	for _, id := range []domain.UserID{"alice", "bob", "carol"} {
		_, err := f.manager.Join(ctx, id, domain.SessionRoom("s1"))
		req.NoError(err)
	}
	aliceHandle.frames, bobHandle.frames, carolHandle.frames = nil, nil, nil

	// Given carol went offline without leaving and bob's transport is failing
	f.registry.Release(carol)
	bobHandle.fail = fmt.Errorf("queue full")

	// When alice broadcasts including herself
	delivered := f.manager.Broadcast(ctx, domain.SessionRoom("s1"), "alice",
		event.UserTypingEvent{Identity: "alice", IsTyping: true}, false)

	// Then only alice received it, the others were skipped
	req.Equal(1, delivered)
	req.Len(aliceHandle.frames, 1)
	req.Empty(carolHandle.frames)

	// When excluding the sender
	bobHandle.fail = nil
	delivered = f.manager.Broadcast(ctx, domain.SessionRoom("s1"), "alice",
		event.UserTypingEvent{Identity: "alice", IsTyping: false}, true)
	req.Equal(1, delivered)
	req.Len(aliceHandle.frames, 1)
	req.Len(bobHandle.frames, 1)
}

func TestRoomManager_BroadcastTo_DeduplicatesMembers(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t)
	_, handle := f.connect(t, "alice")

	delivered := f.manager.BroadcastTo(context.Background(), []domain.UserID{"alice", "alice", "nobody"}, "x",
		event.PingEvent{}, true)
	req.Equal(1, delivered)
	req.Len(handle.frames, 1)
}
